package cli

import (
	"fmt"
	"io"

	"github.com/dmitrijs2005/civicdesk/internal/client/geocode"
	"github.com/dmitrijs2005/civicdesk/internal/client/models"
)

func printIssue(w io.Writer, is models.Issue) {
	fmt.Fprintln(w, is.String())
	if is.Category != "" || is.Reporter() != "" {
		fmt.Fprintf(w, "    %s, reported by %s", orDash(is.Category), orDash(is.Reporter()))
		if !is.CreatedAt.IsZero() {
			fmt.Fprintf(w, " on %s", is.CreatedAt.Format("2006-01-02"))
		}
		fmt.Fprintln(w)
	}
}

func printIssueDetail(w io.Writer, is models.Issue) {
	printIssue(w, is)
	if is.Description != "" {
		fmt.Fprintf(w, "    %s\n", is.Description)
	}
	if is.HasCoordinates() {
		fmt.Fprintf(w, "    at %s\n", geocode.FormatCoordinates(*is.Latitude, *is.Longitude))
	}
	if is.ImageURL != "" {
		fmt.Fprintf(w, "    photo: %s\n", is.ImageURL)
	}
}

func printIssues(w io.Writer, list []models.Issue, hasMore bool) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No issues found.")
		return
	}
	for _, is := range list {
		printIssue(w, is)
	}
	if hasMore {
		fmt.Fprintln(w, "(type 'more' to load more)")
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
