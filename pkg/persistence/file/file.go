// Package file provides file-based persistence for workflows and
// executions. Each workflow is one JSON document; executions live in a
// per-workflow JSON array.
package file

import (
	"context"
	"os"
	"strings"
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root       string
	workflows  *workflowRepository
	executions *executionRepository
}

// NewPersistence creates a file persistence rooted at the given path.
// The path may carry a file:// prefix.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:       cleanRoot,
		workflows:  &workflowRepository{root: cleanRoot},
		executions: &executionRepository{root: cleanRoot},
	}
}

// Close performs any necessary cleanup. Nothing to do for files.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}
