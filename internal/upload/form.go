package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"strings"
)

// File is one staged file part.
type File struct {
	Filename string
	Size     int64
	// Oversized is set when the part exceeded the file limit. Its bytes are discarded.
	Oversized bool

	content []byte
	path    string
}

// Bytes returns the staged payload.
func (f *File) Bytes() ([]byte, error) {
	if f == nil {
		return nil, nil
	}
	if f.Oversized {
		return nil, fmt.Errorf("file exceeds upload limit")
	}
	if f.path == "" {
		return f.content, nil
	}
	return os.ReadFile(f.path)
}

// Spilled reports whether the payload lives in a scratch file.
func (f *File) Spilled() bool {
	return f != nil && f.path != ""
}

func (f *File) remove() error {
	if f == nil || f.path == "" {
		return nil
	}
	err := os.Remove(f.path)
	f.path = ""
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Form is the parsed result of one multipart request.
type Form struct {
	values map[string]string
	fields int
	// File is the last file part seen, or nil when none was sent.
	File *File
}

// Value returns the trimmed value of a plain field.
func (f *Form) Value(name string) string {
	if f == nil {
		return ""
	}
	return strings.TrimSpace(f.values[name])
}

// Has reports whether a plain field was present.
func (f *Form) Has(name string) bool {
	if f == nil {
		return false
	}
	_, ok := f.values[name]
	return ok
}

// RemoveAll deletes any scratch file backing the form.
func (f *Form) RemoveAll() error {
	if f == nil {
		return nil
	}
	return f.File.remove()
}

func (f *Form) replaceFile(file *File) {
	if f.File != nil {
		_ = f.File.remove()
	}
	f.File = file
}

func (f *Form) readField(part *multipart.Part, limits Limits) error {
	name := part.FormName()
	if name == "" {
		return nil
	}
	f.fields++
	if f.fields > limits.MaxFields {
		return fmt.Errorf("%w: too many fields", ErrMalformed)
	}
	data, err := io.ReadAll(io.LimitReader(part, limits.MaxFieldBytes+1))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if int64(len(data)) > limits.MaxFieldBytes {
		return fmt.Errorf("%w: field %q too large", ErrMalformed, name)
	}
	f.values[name] = string(data)
	return nil
}
