package zcl

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ManufacturerClusterBase is the first cluster id of the manufacturer-specific range.
const ManufacturerClusterBase uint16 = 0xFC00

// Registry holds all known ZCL cluster definitions together with their
// compiled lookup tables. It is filled at startup and read-only afterwards.
type Registry struct {
	mu       sync.RWMutex
	clusters map[uint16]*ClusterDef
	compiled map[uint16]*Cluster
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		clusters: make(map[uint16]*ClusterDef),
		compiled: make(map[uint16]*Cluster),
		logger:   logger,
	}
}

// Register adds a cluster definition to the registry. Registering an id that
// already exists merges the new attributes and commands into it.
func (r *Registry) Register(c ClusterDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	merged := c.DeepCopy()
	existing, ok := r.clusters[c.ID]
	if ok {
		merged = existing.DeepCopy()
		merged.Merge(&c)
	}
	compiled, err := compile(*merged)
	if err != nil {
		return fmt.Errorf("register cluster 0x%04X: %w", c.ID, err)
	}
	r.clusters[c.ID] = merged
	r.compiled[c.ID] = compiled
	if ok {
		r.logger.Debug("cluster merged", "id", fmt.Sprintf("0x%04X", c.ID), "name", merged.Name)
	} else {
		r.logger.Debug("cluster registered", "id", fmt.Sprintf("0x%04X", c.ID), "name", c.Name)
	}
	return nil
}

// Get returns a cluster definition by ID, or nil if not found.
// The returned value is a deep copy; callers may modify it safely.
func (r *Registry) Get(id uint16) *ClusterDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := r.clusters[id]
	if c == nil {
		return nil
	}
	return c.DeepCopy()
}

// Cluster returns the compiled tables for a cluster, or nil.
func (r *Registry) Cluster(id uint16) *Cluster {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.compiled[id]
}

// All returns all registered cluster definitions sorted by id.
// Each entry is a deep copy; callers may modify them safely.
func (r *Registry) All() []ClusterDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]ClusterDef, 0, len(r.clusters))
	for _, c := range r.clusters {
		result = append(result, *c.DeepCopy())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Attribute resolves (cluster, attribute, manufacturer) to its descriptor.
func (r *Registry) Attribute(cluster, id, mfr uint16) (*AttributeDef, error) {
	c := r.Cluster(cluster)
	if c == nil {
		return nil, fmt.Errorf("cluster 0x%04X: %w", cluster, ErrUnknownCluster)
	}
	a := c.Attribute(id, mfr)
	if a == nil {
		return nil, fmt.Errorf("cluster 0x%04X attribute 0x%04X: %w", cluster, id, ErrUnknownAttribute)
	}
	return a, nil
}

// Command resolves a cluster-specific command travelling in dir.
func (r *Registry) Command(cluster uint16, id uint8, dir CommandDirection, mfr uint16) (*CommandDef, error) {
	c := r.Cluster(cluster)
	if c == nil {
		return nil, fmt.Errorf("cluster 0x%04X: %w", cluster, ErrUnknownCluster)
	}
	cmd := c.Command(id, dir, mfr)
	if cmd == nil {
		return nil, fmt.Errorf("cluster 0x%04X command 0x%02X %s: %w", cluster, id, dir, ErrUnknownCommand)
	}
	return cmd, nil
}

// DecodeCommand looks up the descriptor for a cluster-specific frame and
// parses its payload.
func (r *Registry) DecodeCommand(cluster uint16, f Frame) (*CommandDef, Args, error) {
	def, err := r.Command(cluster, f.Command, f.Control.Direction, f.Manufacturer)
	if err != nil {
		return nil, nil, err
	}
	args, err := DecodePayload(def, f.Payload)
	if err != nil {
		return def, nil, err
	}
	return def, args, nil
}
