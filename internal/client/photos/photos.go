// Package photos loads the image attached to a new report, either from the
// local filesystem or from an S3 bucket.
package photos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/civicdesk/internal/client/models"
	"github.com/dmitrijs2005/civicdesk/internal/logging"
)

// MaxSize is the largest photo accepted, 5 MiB.
const MaxSize = 5 << 20

var (
	ErrTooLarge = errors.New("image size should be less than 5MB")
	ErrNotImage = errors.New("please upload an image file")
	// ErrNoS3 is returned for s3:// references when no S3 client is set.
	ErrNoS3 = errors.New("s3 photo source is not configured")
)

// ObjectGetter is the part of *s3.Client the loader uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Loader struct {
	s3      ObjectGetter
	maxSize int64
	logger  logging.Logger
}

// Option customizes a Loader.
type Option func(*Loader)

// WithS3 enables s3:// references.
func WithS3(g ObjectGetter) Option { return func(l *Loader) { l.s3 = g } }

// WithLogger sets the logger for S3 fetches.
func WithLogger(lg logging.Logger) Option { return func(l *Loader) { l.logger = lg } }

// WithMaxSize overrides MaxSize.
func WithMaxSize(n int64) Option { return func(l *Loader) { l.maxSize = n } }

// NewLoader returns a loader for local files, capped at MaxSize.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{maxSize: MaxSize, logger: logging.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the photo at ref, a local path or s3://bucket/key, and checks
// its size and type.
func (l *Loader) Load(ctx context.Context, ref string) (*models.Photo, error) {
	ref = strings.TrimSpace(ref)
	if bucket, key, ok := parseS3Ref(ref); ok {
		return l.loadS3(ctx, bucket, key)
	}
	return l.loadFile(ref)
}

func parseS3Ref(ref string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(ref, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	return bucket, key, bucket != "" && key != ""
}

func (l *Loader) loadFile(p string) (*models.Photo, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()

	if st, err := f.Stat(); err == nil && st.Size() > l.maxSize {
		return nil, ErrTooLarge
	}
	data, err := l.readLimited(f)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(p)
	return l.photo(name, mime.TypeByExtension(filepath.Ext(name)), data)
}

func (l *Loader) loadS3(ctx context.Context, bucket, key string) (*models.Photo, error) {
	if l.s3 == nil {
		return nil, ErrNoS3
	}
	out, err := l.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	if out.ContentLength != nil && *out.ContentLength > l.maxSize {
		return nil, ErrTooLarge
	}
	data, err := l.readLimited(out.Body)
	if err != nil {
		return nil, err
	}
	l.logger.Debug(ctx, "photo fetched from s3", "bucket", bucket, "key", key, "bytes", len(data))
	return l.photo(path.Base(key), aws.ToString(out.ContentType), data)
}

func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	if int64(len(data)) > l.maxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}

// photo settles the content type: a declared image/* type wins, anything
// else is sniffed from the bytes.
func (l *Loader) photo(name, declared string, data []byte) (*models.Photo, error) {
	ct := declared
	if mt, _, err := mime.ParseMediaType(declared); err != nil || !strings.HasPrefix(mt, "image/") {
		ct = http.DetectContentType(data)
	}
	if !strings.HasPrefix(ct, "image/") {
		return nil, ErrNotImage
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNotImage
	}
	return &models.Photo{Name: name, ContentType: ct, Data: data}, nil
}
