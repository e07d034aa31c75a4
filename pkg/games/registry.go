package games

import (
	"fmt"

	"github.com/oneirogames/oneiro/pkg/logger"
)

// Factory creates one model instance for the given descriptor.
// Creation may load GPU weights and is allowed to be slow and to fail.
type Factory func(desc Descriptor, log *logger.Logger) (Model, error)

// Registry maps engine names to model factories. The table is built
// once at startup; there is no runtime plugin discovery.
type Registry struct {
	factories map[string]Factory
	log       *logger.Logger
}

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{factories: map[string]Factory{}, log: log}
}

func (r *Registry) Register(engine string, f Factory) {
	if _, ok := r.factories[engine]; ok {
		r.log.Warn().Msgf("engine %v is registered twice", engine)
	}
	r.factories[engine] = f
}

func (r *Registry) NewModel(desc Descriptor) (Model, error) {
	f, ok := r.factories[desc.Engine]
	if !ok {
		return nil, fmt.Errorf("no engine %v for %v", desc.Engine, desc.Slug())
	}
	return f(desc, r.log)
}
