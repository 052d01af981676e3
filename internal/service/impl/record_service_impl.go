package impl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"rdapi/internal/domain"
	"rdapi/internal/service"
)

var _ service.RecordService = (*RecordServiceImpl)(nil)

// RecordServiceImpl writes session recordings uploaded in chunks into a
// single directory.
type RecordServiceImpl struct {
	dir string
}

func NewRecordServiceImpl(dir string) (*RecordServiceImpl, error) {
	if dir == "" {
		return nil, errors.New("record dir is empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create record dir: %w", err)
	}
	return &RecordServiceImpl{dir: dir}, nil
}

func (r *RecordServiceImpl) Write(ctx context.Context, c service.RecordChunk) error {
	path, err := r.path(c.File)
	if err != nil {
		return err
	}
	if c.Offset < 0 || c.Length < 0 {
		return ErrBadRecordChunk
	}

	switch c.Type {
	case service.RecordNew:
		f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
		if err != nil {
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		slog.Info("recording started", "file", c.File)
		return nil
	case service.RecordPart, service.RecordTail:
		return r.writeAt(ctx, path, c)
	case service.RecordRemove:
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		slog.Info("recording removed", "file", c.File)
		return nil
	default:
		return fmt.Errorf("%w: type %q", ErrBadRecordChunk, c.Type)
	}
}

// writeAt stores the chunk at its offset. Tail chunks rewrite the header
// once the recording is complete.
func (r *RecordServiceImpl) writeAt(ctx context.Context, path string, c service.RecordChunk) error {
	if c.Data == nil {
		return ErrBadRecordChunk
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrRecordNotFound
		}
		return err
	}
	defer f.Close()

	if _, err := f.Seek(c.Offset, io.SeekStart); err != nil {
		return err
	}
	src := c.Data
	if c.Length > 0 {
		src = io.LimitReader(c.Data, c.Length)
	}
	n, err := io.Copy(f, readerWithContext{ctx: ctx, r: src})
	if err != nil {
		return err
	}
	if c.Length > 0 && n != c.Length {
		return fmt.Errorf("%w: got %d of %d bytes", ErrBadRecordChunk, n, c.Length)
	}
	if c.Type == service.RecordTail {
		slog.Info("recording finished", "file", c.File)
	}
	return f.Sync()
}

// path confines the file name to the record directory.
func (r *RecordServiceImpl) path(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) ||
		filepath.Base(name) != name {
		return "", fmt.Errorf("%w: file name %q", ErrBadRecordChunk, name)
	}
	return filepath.Join(r.dir, name), nil
}

type readerWithContext struct {
	ctx context.Context
	r   io.Reader
}

func (rc readerWithContext) Read(p []byte) (int, error) {
	if err := rc.ctx.Err(); err != nil {
		return 0, err
	}
	return rc.r.Read(p)
}
