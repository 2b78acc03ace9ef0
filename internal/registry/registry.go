// Package registry holds the static tool catalogue: one Descriptor per
// exposed tool, registered once at startup and immutable afterwards, so
// steady-state reads need no locking.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"stockmcp/internal/models"
)

// TTLClass buckets tools by data volatility; the concrete durations come
// from configuration.
type TTLClass string

const (
	TTLRealtime TTLClass = "realtime" // intraday quotes, estimations, news
	TTLDaily    TTLClass = "daily"    // daily history, NAV series
	TTLSlow     TTLClass = "slow"     // fundamentals, listings, ratings
)

// Descriptor declares a tool: its name, JSON-Schema argument schema, the
// canonical result field schema, and the upstream provider operation it
// delegates to. Immutable after registration.
type Descriptor struct {
	Name           string
	Description    string
	ArgumentSchema map[string]any
	ResultFields   []models.FieldSpec
	Upstream       string
	TTL            TTLClass

	validator *SchemaValidator
}

// Validate checks an argument map against the compiled argument schema.
func (d *Descriptor) Validate(args map[string]any) error {
	return d.validator.Validate(args)
}

// Registry is the ordered tool catalogue. Register is startup-only and not
// safe for concurrent use; Resolve and List are lock-free reads.
type Registry struct {
	byName map[string]*Descriptor
	order  []*Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byName: make(map[string]*Descriptor)}
}

// NewWithCatalog creates a registry pre-loaded with the built-in catalogue.
func NewWithCatalog() (*Registry, error) {
	r := New()
	for _, d := range Catalog() {
		if err := r.Register(d); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}
	return r, nil
}

// Register adds a descriptor, compiling its argument schema. Fails if the
// name is already taken.
func (r *Registry) Register(d Descriptor) error {
	if _, exists := r.byName[d.Name]; exists {
		return fmt.Errorf("duplicate tool %q", d.Name)
	}

	v, err := NewSchemaValidator(d.ArgumentSchema)
	if err != nil {
		return fmt.Errorf("tool %q: %w", d.Name, err)
	}
	d.validator = v

	reg := d
	r.byName[d.Name] = &reg
	r.order = append(r.order, &reg)
	return nil
}

// Resolve looks up a tool by name.
func (r *Registry) Resolve(name string) (*Descriptor, error) {
	d, ok := r.byName[name]
	if !ok {
		return nil, models.NewToolError(models.KindUnknownTool, "unknown tool %q", name)
	}
	return d, nil
}

// List returns descriptors in registration order, for capability discovery.
func (r *Registry) List() []*Descriptor {
	out := make([]*Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// TTLFor resolves a descriptor's cache TTL: per-tool override first, then
// the configured duration for its volatility class.
func TTLFor(d *Descriptor, classTTL map[TTLClass]time.Duration, overrides map[string]time.Duration) time.Duration {
	if ttl, ok := overrides[d.Name]; ok {
		return ttl
	}
	return classTTL[d.TTL]
}

// SchemaValidator wraps JSON Schema compilation and validation.
type SchemaValidator struct {
	schema *jsonschema.Schema
}

// NewSchemaValidator compiles a schema given as a generic map. Draft 7, per
// the MCP specification.
func NewSchemaValidator(schemaMap map[string]any) (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	schemaJSON, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &SchemaValidator{schema: schema}, nil
}

// Validate validates a decoded JSON value against the compiled schema. The
// first violation is reported as an InvalidArgument naming the offending
// parameter.
func (v *SchemaValidator) Validate(value any) error {
	err := v.schema.Validate(value)
	if err == nil {
		return nil
	}
	if ve, ok := err.(*jsonschema.ValidationError); ok {
		leaf := leafCause(ve)
		loc := leaf.InstanceLocation
		if loc == "" {
			loc = "(request)"
		}
		return models.NewToolError(models.KindInvalidArgument,
			"argument %s: %s", loc, leaf.Message)
	}
	return models.NewToolError(models.KindInvalidArgument, "invalid arguments")
}

// leafCause descends to the most specific violation. The root of a
// ValidationError only says the instance failed; the leaf names the
// offending parameter and constraint.
func leafCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
