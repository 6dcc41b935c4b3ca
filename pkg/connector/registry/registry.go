package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-dayforce/pkg/config"
	"github.com/ajitpratap0/tap-dayforce/pkg/connector/core"
	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	"github.com/ajitpratap0/tap-dayforce/pkg/logger"
)

// Registry manages source registration and instantiation
type Registry struct {
	sources map[string]SourceFactory
	infos   map[string]*SourceInfo
	mu      sync.RWMutex
	logger  *zap.Logger
}

// SourceFactory creates a configured source.
type SourceFactory func(cfg *config.TapConfig, deps core.Dependencies) (core.Source, error)

// SourceInfo describes a registered source
type SourceInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Streams lists the static stream IDs; dynamic streams are not known until configured
	Streams []string `json:"streams"`
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new source registry
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]SourceFactory),
		infos:   make(map[string]*SourceInfo),
		logger:  logger.Get().With(zap.String("component", "connector_registry")),
	}
}

// RegisterSource registers a source factory
func (r *Registry) RegisterSource(info SourceInfo, factory SourceFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[info.Name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("source %s already registered", info.Name))
	}

	r.sources[info.Name] = factory
	r.infos[info.Name] = &info
	r.logger.Debug("source registered", zap.String("name", info.Name))
	return nil
}

// CreateSource creates a source instance
func (r *Registry) CreateSource(name string, cfg *config.TapConfig, deps core.Dependencies) (core.Source, error) {
	r.mu.RLock()
	factory, exists := r.sources[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("source %s not found", name))
	}

	source, err := factory(cfg, deps)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create source %s", name))
	}

	return source, nil
}

// ListSources returns the registered source names, sorted
func (r *Registry) ListSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]string, 0, len(r.sources))
	for name := range r.sources {
		sources = append(sources, name)
	}
	sort.Strings(sources)
	return sources
}

// Info returns what was registered for name
func (r *Registry) Info(name string) (*SourceInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.infos[name]
	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("source %s not found", name))
	}
	return info, nil
}

// HasSource checks if a source is registered
func (r *Registry) HasSource(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.sources[name]
	return exists
}

// Global registry functions

// RegisterSource registers a source in the global registry
func RegisterSource(info SourceInfo, factory SourceFactory) error {
	return globalRegistry.RegisterSource(info, factory)
}

// CreateSource creates a source from the global registry
func CreateSource(name string, cfg *config.TapConfig, deps core.Dependencies) (core.Source, error) {
	return globalRegistry.CreateSource(name, cfg, deps)
}

// ListSources returns registered sources from the global registry
func ListSources() []string {
	return globalRegistry.ListSources()
}

// Info returns registration details from the global registry
func Info(name string) (*SourceInfo, error) {
	return globalRegistry.Info(name)
}

// HasSource checks if a source is registered in the global registry
func HasSource(name string) bool {
	return globalRegistry.HasSource(name)
}
