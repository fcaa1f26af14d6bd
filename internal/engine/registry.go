package engine

import (
	"slices"

	"github.com/gogpu/gpucontext"
)

// Backend names, in selection priority.
const (
	BackendGPU = "gpu"
	BackendCPU = "cpu"
)

var registry = gpucontext.NewRegistry[Backend](
	gpucontext.WithPriority(BackendGPU, BackendCPU),
)

// Register makes a backend available under name. It is meant to be called
// from the init function of a backend package. Registering a name again
// replaces the previous backend.
func Register(name string, factory func() Backend) {
	registry.Register(name, factory)
}

// Unregister removes a backend. Used by tests.
func Unregister(name string) {
	registry.Unregister(name)
}

// Available returns the registered backend names in selection priority.
func Available() []string {
	names := registry.Available()
	slices.SortFunc(names, func(a, b string) int {
		return rank(a) - rank(b)
	})
	return names
}

func rank(name string) int {
	switch name {
	case BackendGPU:
		return 0
	case BackendCPU:
		return 1
	default:
		return 2
	}
}

// Selector names a backend and one of its variants.
type Selector struct {
	Backend string
	Variant string
}

func (s Selector) String() string {
	if s.Variant == "" {
		return s.Backend
	}
	return s.Backend + ":" + s.Variant
}

// Candidates lists every backend and variant that can be selected, in
// selection priority. This is the list shown by the interactive prompt.
func Candidates() []Selector {
	var out []Selector
	for _, name := range Available() {
		b := registry.Get(name)
		if b == nil {
			continue
		}
		out = append(out, Selector{Backend: name})
		for _, v := range b.Variants() {
			if v != "" {
				out = append(out, Selector{Backend: name, Variant: v})
			}
		}
	}
	return out
}

func lookup(s Selector) (Backend, bool) {
	if !registry.Has(s.Backend) {
		return nil, false
	}
	b := registry.Get(s.Backend)
	if b == nil {
		return nil, false
	}
	if s.Variant != "" && !slices.Contains(b.Variants(), s.Variant) {
		return nil, false
	}
	return b, true
}
