// Package upload stages multipart image uploads in memory or scratch files.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	DefaultMaxFileBytes  int64 = 2 << 20
	DefaultMaxMemory     int64 = 256 << 10
	defaultMaxFieldBytes int64 = 64 << 10
	defaultMaxFields           = 32
	scratchDirName             = "picstore-uploads"
)

// ErrMalformed marks a request body that is not a readable multipart form.
var ErrMalformed = errors.New("malformed multipart request")

// Limits bounds the work done for one request.
type Limits struct {
	MaxFileBytes  int64
	MaxMemory     int64
	MaxFieldBytes int64
	MaxFields     int
}

func (l Limits) normalized() Limits {
	if l.MaxFileBytes <= 0 {
		l.MaxFileBytes = DefaultMaxFileBytes
	}
	if l.MaxMemory <= 0 {
		l.MaxMemory = DefaultMaxMemory
	}
	if l.MaxFieldBytes <= 0 {
		l.MaxFieldBytes = defaultMaxFieldBytes
	}
	if l.MaxFields <= 0 {
		l.MaxFields = defaultMaxFields
	}
	return l
}

// Stager parses multipart uploads, spilling large file parts into a scratch directory.
type Stager struct {
	dir     string
	once    sync.Once
	initErr error
	logger  *slog.Logger
}

// NewStager returns a stager rooted at dir. The directory is created lazily on first spill.
func NewStager(dir string) *Stager {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = filepath.Join(os.TempDir(), scratchDirName)
	}
	return &Stager{
		dir:    dir,
		logger: slog.Default().With("component", "upload"),
	}
}

// SetLogger replaces the logger. Call it before the first Parse.
func (s *Stager) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	s.logger = logger.With("component", "upload")
}

// Dir returns the scratch directory.
func (s *Stager) Dir() string {
	return s.dir
}

func (s *Stager) ensureDir() error {
	s.once.Do(func() {
		abs, err := filepath.Abs(s.dir)
		if err != nil {
			s.initErr = err
			return
		}
		if err := os.MkdirAll(abs, 0o700); err != nil {
			s.initErr = err
			return
		}
		s.dir = abs
		s.logger.Debug("scratch directory ready", "dir", abs)
	})
	return s.initErr
}

// Parse reads the multipart body of r in order. Plain fields are recorded, and
// the last part carrying a filename becomes Form.File. Parsing stops at the
// first file part exceeding limits.MaxFileBytes; that part is returned marked
// oversized. The caller must call Form.RemoveAll.
func (s *Stager) Parse(r *http.Request, limits Limits) (*Form, error) {
	limits = limits.normalized()
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	form := &Form{values: make(map[string]string)}
	for {
		if err := r.Context().Err(); err != nil {
			_ = form.RemoveAll()
			return nil, err
		}

		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			_ = form.RemoveAll()
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		if part.FileName() == "" {
			err = form.readField(part, limits)
			_ = part.Close()
			if err != nil {
				_ = form.RemoveAll()
				return nil, err
			}
			continue
		}

		file, err := s.stageFile(part, limits)
		_ = part.Close()
		if err != nil {
			_ = form.RemoveAll()
			return nil, err
		}
		form.replaceFile(file)
		if file.Oversized {
			return form, nil
		}
	}
}

func (s *Stager) stageFile(part *multipart.Part, limits Limits) (*File, error) {
	file := &File{Filename: part.FileName()}

	limited := io.LimitReader(part, limits.MaxFileBytes+1)
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, limited, limits.MaxMemory+1)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if n <= limits.MaxMemory {
		file.Size = n
		file.content = buf.Bytes()
		file.Oversized = n > limits.MaxFileBytes
		if file.Oversized {
			file.content = nil
		}
		return file, nil
	}

	if err := s.ensureDir(); err != nil {
		return nil, fmt.Errorf("prepare scratch dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "upload-*")
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	written, err := io.Copy(tmp, io.MultiReader(&buf, limited))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return nil, err
	}

	file.Size = written
	if written > limits.MaxFileBytes {
		_ = os.Remove(tmpPath)
		file.Oversized = true
		return file, nil
	}
	file.path = tmpPath
	return file, nil
}
