package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/refinery/pkg/config"
	"github.com/ajitpratap0/refinery/pkg/connector/core"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/logger"
)

// Registry manages connector registration and instantiation
type Registry struct {
	sources      map[string]core.SourceFactory
	destinations map[string]core.DestinationFactory
	info         map[string]*ConnectorInfo
	mu           sync.RWMutex
	logger       *zap.Logger
}

// ConnectorInfo provides information about a connector
type ConnectorInfo struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Global registry instance
var globalRegistry = NewRegistry(nil)

// NewRegistry creates a new connector registry
func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		sources:      make(map[string]core.SourceFactory),
		destinations: make(map[string]core.DestinationFactory),
		info:         make(map[string]*ConnectorInfo),
		logger:       logger.OrDefault(log).With(zap.String("component", "connector_registry")),
	}
}

// RegisterSource registers a source connector factory
func (r *Registry) RegisterSource(name string, factory core.SourceFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("source connector %s already registered", name))
	}

	r.sources[name] = factory
	r.logger.Debug("source connector registered", zap.String("name", name))
	return nil
}

// RegisterDestination registers a destination connector factory
func (r *Registry) RegisterDestination(name string, factory core.DestinationFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.destinations[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("destination connector %s already registered", name))
	}

	r.destinations[name] = factory
	r.logger.Debug("destination connector registered", zap.String("name", name))
	return nil
}

// RegisterInfo records descriptive metadata for a connector. Sources and
// destinations share one namespace keyed by "type/name".
func (r *Registry) RegisterInfo(info *ConnectorInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := info.Type + "/" + info.Name
	if _, exists := r.info[key]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("connector %s already in catalog", key))
	}
	r.info[key] = info
	return nil
}

// CreateSource creates a source connector instance
func (r *Registry) CreateSource(name string, cfg *config.SourceConfig) (core.Source, error) {
	r.mu.RLock()
	factory, exists := r.sources[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("source connector %s not found", name)).
			WithDetail("available", r.ListSources())
	}

	source, err := factory(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create source connector %s", name))
	}

	return source, nil
}

// CreateDestination creates a destination connector instance
func (r *Registry) CreateDestination(name string, cfg *config.DestinationConfig) (core.Destination, error) {
	r.mu.RLock()
	factory, exists := r.destinations[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("destination connector %s not found", name)).
			WithDetail("available", r.ListDestinations())
	}

	destination, err := factory(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create destination connector %s", name))
	}

	return destination, nil
}

// ListSources returns the sorted names of registered source connectors
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

// ListDestinations returns the sorted names of registered destination connectors
func (r *Registry) ListDestinations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	destinations := make([]string, 0, len(r.destinations))
	for name := range r.destinations {
		destinations = append(destinations, name)
	}
	sort.Strings(destinations)
	return destinations
}

// ListInfo returns the catalog ordered by type then name.
func (r *Registry) ListInfo() []*ConnectorInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]*ConnectorInfo, 0, len(r.info))
	for _, info := range r.info {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Type != infos[j].Type {
			return infos[i].Type > infos[j].Type
		}
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// HasSource checks if a source connector is registered
func (r *Registry) HasSource(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.sources[name]
	return exists
}

// HasDestination checks if a destination connector is registered
func (r *Registry) HasDestination(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.destinations[name]
	return exists
}

// Clear removes all registered connectors (mainly for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sources = make(map[string]core.SourceFactory)
	r.destinations = make(map[string]core.DestinationFactory)
	r.info = make(map[string]*ConnectorInfo)
}

// Global registry functions

// RegisterSource registers a source connector in the global registry
func RegisterSource(name string, factory core.SourceFactory) error {
	return globalRegistry.RegisterSource(name, factory)
}

// RegisterDestination registers a destination connector in the global registry
func RegisterDestination(name string, factory core.DestinationFactory) error {
	return globalRegistry.RegisterDestination(name, factory)
}

// RegisterConnectorInfo registers connector information in the global catalog
func RegisterConnectorInfo(info *ConnectorInfo) error {
	return globalRegistry.RegisterInfo(info)
}

// CreateSource creates a source connector from the global registry
func CreateSource(name string, cfg *config.SourceConfig) (core.Source, error) {
	return globalRegistry.CreateSource(name, cfg)
}

// CreateDestination creates a destination connector from the global registry
func CreateDestination(name string, cfg *config.DestinationConfig) (core.Destination, error) {
	return globalRegistry.CreateDestination(name, cfg)
}

// ListSources returns registered sources from the global registry
func ListSources() []string {
	return globalRegistry.ListSources()
}

// ListDestinations returns registered destinations from the global registry
func ListDestinations() []string {
	return globalRegistry.ListDestinations()
}

// ListConnectorInfo lists all connectors in the global catalog
func ListConnectorInfo() []*ConnectorInfo {
	return globalRegistry.ListInfo()
}

// HasSource checks if a source is registered in the global registry
func HasSource(name string) bool {
	return globalRegistry.HasSource(name)
}

// HasDestination checks if a destination is registered in the global registry
func HasDestination(name string) bool {
	return globalRegistry.HasDestination(name)
}

// GetRegistry returns the global registry instance.
func GetRegistry() *Registry {
	return globalRegistry
}
