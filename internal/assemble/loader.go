package assemble

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Loader fetches raw template source by id.
type Loader interface {
	Load(templateID string) (string, error)
}

// TemplateNotFoundError is returned for an unknown template id.
type TemplateNotFoundError struct {
	TemplateID string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template %q not found", e.TemplateID)
}

// FSLoader reads "<template_id>.html" from a file system.
type FSLoader struct {
	fsys fs.FS
}

func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{fsys: fsys}
}

// NewDirLoader reads templates from a directory on disk.
func NewDirLoader(dir string) *FSLoader {
	return NewFSLoader(os.DirFS(dir))
}

func (l *FSLoader) Load(templateID string) (string, error) {
	name := templateID + ".html"
	if templateID == "" || strings.ContainsAny(templateID, `/\`) || !fs.ValidPath(name) {
		return "", fmt.Errorf("invalid template id %q", templateID)
	}
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &TemplateNotFoundError{TemplateID: templateID}
		}
		return "", fmt.Errorf("read template %s: %w", templateID, err)
	}
	return string(data), nil
}
