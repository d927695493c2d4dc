package capture

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrFileTooLarge   = errors.New("file exceeds the maximum size")
	ErrFileType       = errors.New("file type is not allowed")
	ErrTooManyFiles   = errors.New("too many files selected")
	ErrUnreadableFile = errors.New("file could not be read")
)

// File is a user-selected file.
type File struct {
	Name string
	Type string
	Size int64
	Data []byte
}

// OpenFile reads a file from disk, deriving its type from the extension and
// falling back to content sniffing.
func OpenFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("%w: %w", ErrUnreadableFile, err)
	}
	typ := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if typ == "" {
		typ = http.DetectContentType(data)
	}
	if i := strings.IndexByte(typ, ';'); i >= 0 {
		typ = typ[:i]
	}
	return File{
		Name: filepath.Base(path),
		Type: typ,
		Size: int64(len(data)),
		Data: data,
	}, nil
}

func (f File) size() int64 {
	if f.Size > 0 {
		return f.Size
	}
	return int64(len(f.Data))
}

func (f File) mediaType() string {
	if f.Type != "" {
		return strings.ToLower(f.Type)
	}
	if len(f.Data) > 0 {
		t := http.DetectContentType(f.Data)
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return ""
}

// FileOptions bound a selection. Zero values mean "no limit".
type FileOptions struct {
	MaxSize      int64
	AllowedTypes []string
	MaxFiles     int
}

// DefaultFileOptions accept a single image up to 5 MiB.
var DefaultFileOptions = FileOptions{
	MaxSize:      5 << 20,
	AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"},
	MaxFiles:     1,
}

// FileError tags a validation failure with the offending file's name.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// FileResult is the outcome for one file.
type FileResult struct {
	File    File
	Success bool
	Err     error
}

// Selection is the outcome of a batch: every per-file result plus the valid
// subset, in input order.
type Selection struct {
	Results []FileResult
	Valid   []File
}

// Failed returns the failing results.
func (s Selection) Failed() []FileResult {
	var out []FileResult
	for _, r := range s.Results {
		if !r.Success {
			out = append(out, r)
		}
	}
	return out
}

// HandleFileSelection validates every file independently. A bad file never
// fails the batch; files beyond MaxFiles fail with ErrTooManyFiles.
func HandleFileSelection(files []File, opts FileOptions) Selection {
	sel := Selection{Results: make([]FileResult, 0, len(files))}
	for i, f := range files {
		err := validateFile(f, opts)
		if err == nil && opts.MaxFiles > 0 && len(sel.Valid) >= opts.MaxFiles {
			err = ErrTooManyFiles
		}
		if err != nil {
			sel.Results = append(sel.Results, FileResult{File: f, Err: &FileError{Name: fileName(f, i), Err: err}})
			continue
		}
		sel.Results = append(sel.Results, FileResult{File: f, Success: true})
		sel.Valid = append(sel.Valid, f)
	}
	return sel
}

func validateFile(f File, opts FileOptions) error {
	var errs []error
	if len(opts.AllowedTypes) > 0 && !typeAllowed(f.mediaType(), opts.AllowedTypes) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrFileType, displayType(f.mediaType())))
	}
	if opts.MaxSize > 0 && f.size() > opts.MaxSize {
		errs = append(errs, fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, f.size(), opts.MaxSize))
	}
	return errors.Join(errs...)
}

func typeAllowed(typ string, allowed []string) bool {
	if typ == "" {
		return false
	}
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == typ || a == "*/*" {
			return true
		}
		if prefix, ok := strings.CutSuffix(a, "/*"); ok && strings.HasPrefix(typ, prefix+"/") {
			return true
		}
	}
	return false
}

func displayType(t string) string {
	if t == "" {
		return "unknown"
	}
	return t
}

func fileName(f File, index int) string {
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("file #%d", index+1)
}
