package browser

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/raysh454/design-polish/internal/logging"
)

// BackendConstructor starts a Session for the given options.
type BackendConstructor func(ctx context.Context, opts Options, logger logging.Logger) (Session, error)

var (
	mu       sync.RWMutex
	registry = map[string]BackendConstructor{}
)

// RegisterBackend registers a named backend constructor. Name is lower-cased
// internally. Registering the same name again overwrites the previous one.
func RegisterBackend(name string, ctor BackendConstructor) {
	if name == "" || ctor == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(name)] = ctor
}

// Open starts a session on the named backend. An empty name selects chromedp.
func Open(ctx context.Context, name string, opts Options, logger logging.Logger) (Session, error) {
	backend := strings.ToLower(strings.TrimSpace(name))
	if backend == "" {
		backend = BackendChromedp
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}

	mu.RLock()
	ctor, ok := registry[backend]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrBackendNotRegistered, backend, strings.Join(ListBackends(), ", "))
	}

	s, err := ctor(ctx, opts, logger.With(logging.Field{Key: "backend", Value: backend}))
	if err != nil {
		return nil, fmt.Errorf("start %s browser: %w", backend, err)
	}
	if s == nil {
		return nil, fmt.Errorf("start %s browser: constructor returned nil session", backend)
	}
	return s, nil
}

// ListBackends returns the registered backend names, sorted.
func ListBackends() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
