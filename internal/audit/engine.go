// Package audit runs the axe-core accessibility rule engine inside a browser
// page and reduces its findings into a model.AccessibilityReport.
package audit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrEngineUnavailable means axe-core could not be located on disk.
var ErrEngineUnavailable = errors.New("accessibility engine unavailable")

// DefaultScriptPath is where npm installs axe-core relative to a project.
const DefaultScriptPath = "node_modules/axe-core/axe.min.js"

// RuleTags selects WCAG 2.0 level A and AA rules plus the WCAG 2.1 AA additions.
var RuleTags = []string{"wcag2a", "wcag2aa", "wcag21aa"}

// Engine holds the axe-core source to inject into pages.
type Engine struct {
	path   string
	source string
}

// NewEngine wraps already-loaded axe-core source.
func NewEngine(source string) *Engine {
	return &Engine{source: source}
}

// Path is the file the engine was loaded from, if any.
func (e *Engine) Path() string { return e.path }

// LoadEngine reads axe-core from explicitPath when set. Otherwise it looks for
// DefaultScriptPath in startDir and each of its parents, the way node resolves
// packages. A missing engine yields an error wrapping ErrEngineUnavailable.
func LoadEngine(explicitPath, startDir string) (*Engine, error) {
	if explicitPath != "" {
		return readEngine(explicitPath)
	}

	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", ErrEngineUnavailable, startDir, err)
	}
	for {
		candidate := filepath.Join(dir, filepath.FromSlash(DefaultScriptPath))
		if _, err := os.Stat(candidate); err == nil {
			return readEngine(candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, fmt.Errorf("%w: %s not found from %s (run `npm install axe-core` or set AXE_CORE_PATH)",
		ErrEngineUnavailable, DefaultScriptPath, startDir)
}

func readEngine(path string) (*Engine, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	if len(src) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrEngineUnavailable, path)
	}
	return &Engine{path: path, source: string(src)}, nil
}
