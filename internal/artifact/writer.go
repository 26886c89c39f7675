package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/reloquent/schemair/internal/schema"
)

// Extension is the file extension of every artifact.
const Extension = ".yaml"

// WriteError is returned when an artifact cannot be written. The run
// skips the table and continues.
type WriteError struct {
	Table string
	Path  string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing artifact for %s to %s: %v", e.Table, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer writes one artifact file per table into a directory.
type Writer struct {
	Dir string
}

// NewWriter returns a Writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

// Path returns the artifact path for a table name.
func (w *Writer) Path(table string) string {
	return filepath.Join(w.Dir, FileName(table))
}

// Write serializes t and replaces any existing artifact for the same table.
// The file is written to a temporary name first and renamed into place, so
// readers never observe a partial artifact.
func (w *Writer) Write(t *schema.Table) (string, error) {
	path := w.Path(t.Name)

	data, err := t.ToYAML()
	if err != nil {
		return "", &WriteError{Table: t.Name, Path: path, Err: err}
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", &WriteError{Table: t.Name, Path: path, Err: fmt.Errorf("creating output directory: %w", err)}
	}

	tmp, err := os.CreateTemp(w.Dir, "."+FileName(t.Name)+".*")
	if err != nil {
		return "", &WriteError{Table: t.Name, Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", &WriteError{Table: t.Name, Path: path, Err: err}
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return "", &WriteError{Table: t.Name, Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &WriteError{Table: t.Name, Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", &WriteError{Table: t.Name, Path: path, Err: err}
	}
	return path, nil
}

// FileName derives the artifact file name from a table name. Path
// separators are replaced so a table name cannot escape the directory.
func FileName(table string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, table)
	if name == "" || name == "." || name == ".." {
		name = "_" + name
	}
	return name + Extension
}
