// Package flagx lets several loaders share one command line. Each loader
// picks out the flags it owns and parses only those, so flags belonging
// to another loader never make it fail.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// flagName returns the name of a flag token, with "--x" and "-x" treated
// alike the way package flag does. ok is false for non-flag tokens.
func flagName(tok string) (name string, ok bool) {
	if len(tok) < 2 || tok[0] != '-' || tok == "--" {
		return "", false
	}
	name = strings.TrimPrefix(strings.TrimPrefix(tok, "-"), "-")
	name, _, _ = strings.Cut(name, "=")
	return name, name != ""
}

// FilterArgs keeps the tokens of the named flags (without dashes, e.g.
// "a", "config") and their values. A flag's value is either joined with
// "=" or the following token, unless that token is itself a flag.
func FilterArgs(args []string, names ...string) []string {
	owned := make(map[string]bool, len(names))
	for _, n := range names {
		owned[strings.TrimLeft(n, "-")] = true
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		name, ok := flagName(args[i])
		if !ok || !owned[name] {
			continue
		}
		out = append(out, args[i])
		if strings.Contains(args[i], "=") {
			continue
		}
		if i+1 < len(args) {
			if _, next := flagName(args[i+1]); !next {
				out = append(out, args[i+1])
				i++
			}
		}
	}
	return out
}

// NewFlagSet returns a silent, error-returning flag set.
func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// ConfigFile returns the value of -c / -config in args, "" when absent.
// When both are given the last one wins.
func ConfigFile(args []string) string {
	var path string
	fs := NewFlagSet("config")
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, "c", "config"))
	return path
}
