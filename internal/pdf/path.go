package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sandbox confines tool paths to a root directory.
type Sandbox struct {
	root string
}

// NewSandbox creates a sandbox rooted at dir.
func NewSandbox(dir string) (*Sandbox, error) {
	if dir == "" {
		return nil, fmt.Errorf("sandbox directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory: %w", err)
	}
	return &Sandbox{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute sandbox directory.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve joins relative paths onto the root and rejects anything that
// ends up outside it, including through symlinks. An empty path is the
// root itself.
func (s *Sandbox) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return s.root, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	clean := filepath.Clean(path)

	if !within(clean, s.root) {
		return "", fmt.Errorf("path is outside configured directory: %s", path)
	}

	// Compare real paths when both exist so a link cannot escape.
	realRoot, err := filepath.EvalSymlinks(s.root)
	if err != nil {
		return clean, nil //nolint:nilerr // a missing root has nothing to escape from
	}
	realPath, err := filepath.EvalSymlinks(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return clean, nil
		}
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if !within(realPath, realRoot) {
		return "", fmt.Errorf("path is outside configured directory: %s", path)
	}
	return clean, nil
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}
