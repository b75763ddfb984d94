package download

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/pvault/internal/client/api"
	"github.com/dmitrijs2005/pvault/internal/filex"
)

// DirSink saves blobs into a local directory. Files are written to a
// temporary name first and appear under their final name only when
// complete; existing files are never overwritten.
type DirSink struct {
	dir string
}

func NewDirSink(dir string) (*DirSink, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("download dir: %w", err)
	}
	return &DirSink{dir: abs}, nil
}

func (s *DirSink) Dir() string { return s.dir }

func (s *DirSink) Save(_ context.Context, name string, blob api.Blob) (string, error) {
	return filex.WriteAtomic(s.dir, name, bytes.NewReader(blob.Data))
}

// NewSink picks the sink for dest: "s3://bucket/prefix" uploads to a
// bucket, anything else is a local directory.
func NewSink(ctx context.Context, dest string, s3cfg S3Config) (Sink, error) {
	if rest, ok := strings.CutPrefix(dest, "s3://"); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, fmt.Errorf("download dest %q: missing bucket", dest)
		}
		return NewS3Sink(ctx, bucket, prefix, s3cfg)
	}
	return NewDirSink(dest)
}
