package probe

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/thisdougb/gamehealth/internal/config"
)

// Check is an extra module check run after the built-in ones.
type Check struct {
	Name     string
	Advisory bool
	Run      func(ctx context.Context) error
}

// Module is a statically registered game module.
type Module struct {
	ID       string
	Name     string
	Disabled bool

	// Validate checks the module configuration. A nil hook passes.
	Validate func(ctx context.Context) error

	Checks []Check
}

// Registry holds modules in registration order.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	modules map[string]Module
}

func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]Module),
	}
}

// Register adds a module, or replaces one with the same id keeping its
// position.
func (r *Registry) Register(m Module) error {
	if m.ID == "" {
		return fmt.Errorf("module has no id")
	}
	if m.Name == "" {
		m.Name = m.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[m.ID]; !exists {
		r.order = append(r.order, m.ID)
	}
	r.modules[m.ID] = m
	return nil
}

// Lookup returns the module registered under id.
func (r *Registry) Lookup(id string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[id]
	return m, ok
}

// Modules returns every registered module in registration order.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modules := make([]Module, 0, len(r.order))
	for _, id := range r.order {
		modules = append(modules, r.modules[id])
	}
	return modules
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// RegistryFromSpecs builds a registry from the modules file. Required
// settings become the configuration hook, advisory settings become an
// advisory "advisory_settings" check.
func RegistryFromSpecs(specs []config.ModuleSpec) (*Registry, error) {
	r := NewRegistry()
	for _, ms := range specs {
		m := Module{
			ID:       ms.ID,
			Name:     ms.Name,
			Disabled: ms.Disabled,
		}

		if len(ms.RequiredSettings) > 0 {
			m.Validate = requireSettings(ms.Settings, ms.RequiredSettings)
		}
		if len(ms.AdvisorySettings) > 0 {
			m.Checks = append(m.Checks, Check{
				Name:     "advisory_settings",
				Advisory: true,
				Run:      requireSettings(ms.Settings, ms.AdvisorySettings),
			})
		}

		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func requireSettings(settings map[string]string, keys []string) func(context.Context) error {
	return func(ctx context.Context) error {
		var missing []string
		for _, key := range keys {
			if strings.TrimSpace(settings[key]) == "" {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			slices.Sort(missing)
			return fmt.Errorf("missing settings: %s", strings.Join(missing, ", "))
		}
		return nil
	}
}
