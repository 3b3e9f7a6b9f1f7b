package renderer

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	codeDirName   = "code"
	mediaDirName  = "media"
	scriptName    = "main.py"
	dirPermission = 0o755
)

// Workspace is the scratch directory of one job: <root>/<job_id>/{code,media}.
type Workspace struct {
	Dir      string
	CodeDir  string
	MediaDir string
}

// NewWorkspace creates a fresh workspace, discarding leftovers of an earlier
// run of the same job.
func NewWorkspace(root string, jobID string) (*Workspace, error) {
	dir := filepath.Join(root, jobID)
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("failed to clear workspace: %w", err)
	}
	ws := &Workspace{
		Dir:      dir,
		CodeDir:  filepath.Join(dir, codeDirName),
		MediaDir: filepath.Join(dir, mediaDirName),
	}
	for _, d := range []string{ws.CodeDir, ws.MediaDir} {
		if err := os.MkdirAll(d, dirPermission); err != nil {
			return nil, fmt.Errorf("failed to create workspace: %w", err)
		}
	}
	return ws, nil
}

// WriteScript stores the code as the scene script and returns its path.
func (w *Workspace) WriteScript(code string) (string, error) {
	path := filepath.Join(w.CodeDir, scriptName)
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return "", fmt.Errorf("failed to write script: %w", err)
	}
	return path, nil
}

// Cleanup removes the whole workspace.
func (w *Workspace) Cleanup() error {
	return os.RemoveAll(w.Dir)
}
