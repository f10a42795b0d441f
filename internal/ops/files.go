// Package ops implements the call-through operations that share the dispatch
// boundary with the command engine: file access and system information.
package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"github.com/example/deskd/internal/api"
)

// DefaultMaxReadSize caps read_file responses when no explicit limit is
// configured.
const DefaultMaxReadSize = 4 * 1024 * 1024

// Files serves the read_file and write_file operations.
type Files struct {
	fs      afs.Service
	maxRead int64
}

// NewFiles constructs a file service capping reads at maxRead bytes. A
// non-positive maxRead selects DefaultMaxReadSize.
func NewFiles(maxRead int64) *Files {
	if maxRead <= 0 {
		maxRead = DefaultMaxReadSize
	}
	return &Files{fs: afs.New(), maxRead: maxRead}
}

// ReadFile returns the file's content as UTF-8 text. Files beyond the
// configured cap are rejected rather than truncated silently.
func (f *Files) ReadFile(ctx context.Context, req api.ReadFileRequest) (*api.ReadFileResult, error) {
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return nil, fmt.Errorf("%w: path is required", api.ErrInvalidArgument)
	}
	object, err := f.fs.Object(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if object.Size() > f.maxRead {
		return nil, fmt.Errorf("%w: %s is %d bytes, exceeds the %d byte read limit", api.ErrInvalidArgument, path, object.Size(), f.maxRead)
	}
	data, err := f.fs.DownloadWithURL(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &api.ReadFileResult{
		Path:    path,
		Content: string(data),
		Size:    int64(len(data)),
	}, nil
}

// WriteFile creates or replaces the file with the supplied content.
func (f *Files) WriteFile(ctx context.Context, req api.WriteFileRequest) (*api.WriteFileResult, error) {
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return nil, fmt.Errorf("%w: path is required", api.ErrInvalidArgument)
	}
	if err := f.fs.Upload(ctx, path, file.DefaultFileOsMode, strings.NewReader(req.Content)); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return &api.WriteFileResult{
		Path:         path,
		BytesWritten: len(req.Content),
	}, nil
}
