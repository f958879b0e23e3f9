package mission

import (
	"fmt"
	"sort"

	"github.com/turtacn/Rover/internal/hardware"
	"github.com/turtacn/Rover/pkg/consts"
)

// Registry maps each dispatchable mission kind to its single program
// instance. It is built once and never modified.
type Registry struct {
	programs map[consts.MissionKind]Program
}

// NewRegistry constructs one program per factory, all sharing rover.
// Nothing is returned unless every factory succeeds.
func NewRegistry(rover *hardware.Rover, factories map[consts.MissionKind]Factory) (*Registry, error) {
	if rover == nil {
		return nil, fmt.Errorf("registry requires a hardware handle")
	}

	kinds := make([]consts.MissionKind, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	programs := make(map[consts.MissionKind]Program, len(factories))
	for _, kind := range kinds {
		if kind == consts.MissionNone {
			return nil, fmt.Errorf("mission %q cannot be registered", kind)
		}
		factory := factories[kind]
		if factory == nil {
			return nil, fmt.Errorf("mission %q has no factory", kind)
		}
		p := factory(rover)
		if p == nil {
			return nil, fmt.Errorf("mission %q factory returned nil", kind)
		}
		programs[kind] = p
	}
	return &Registry{programs: programs}, nil
}

// Lookup returns the program registered for kind.
func (r *Registry) Lookup(kind consts.MissionKind) (Program, bool) {
	p, ok := r.programs[kind]
	return p, ok
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []consts.MissionKind {
	kinds := make([]consts.MissionKind, 0, len(r.programs))
	for k := range r.programs {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (r *Registry) Len() int { return len(r.programs) }

// Personal.AI order the ending
