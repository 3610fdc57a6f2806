package config

import (
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Schema names registered by NewSchemaRegistry.
const (
	SchemaDocument = "document"
	SchemaTag      = "tag"
)

// SchemaRegistry manages CUE schemas for validation. Each schema is a CUE
// source whose definition named after the schema (e.g. #Document for
// "document") is the one values are checked against.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]registeredSchema
	mu      sync.RWMutex
}

type registeredSchema struct {
	definition string
	value      cue.Value
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]registeredSchema),
	}

	// Built-in sources are constants; a compile failure is a programming error.
	if err := sr.RegisterSchema(SchemaDocument, "#Document", builtinSchemas); err != nil {
		panic(err)
	}
	if err := sr.RegisterSchema(SchemaTag, "#Tag", builtinSchemas); err != nil {
		panic(err)
	}

	return sr
}

// Context returns the CUE context schemas are compiled in. Values unified
// with a registered schema must come from the same context.
func (sr *SchemaRegistry) Context() *cue.Context {
	return sr.ctx
}

// RegisterSchema compiles source and registers definition from it as name.
func (sr *SchemaRegistry) RegisterSchema(name, definition, source string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(source)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	def := val.LookupPath(cue.ParsePath(definition))
	if !def.Exists() {
		return fmt.Errorf("schema %s has no definition %s", name, definition)
	}

	sr.schemas[name] = registeredSchema{definition: definition, value: def}
	return nil
}

// GetSchema retrieves a schema definition by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	s, ok := sr.schemas[name]
	return s.value, ok
}

// Unify checks val against a named schema and returns the unified value.
func (sr *SchemaRegistry) Unify(schemaName string, val cue.Value) (cue.Value, error) {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return cue.Value{}, fmt.Errorf("schema %s not found", schemaName)
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, fmt.Errorf("validation failed: %w", err)
	}

	return unified, nil
}

// ValidateAgainstSchema validates Go data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(schemaName string, data interface{}) error {
	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	_, err := sr.Unify(schemaName, dataVal)
	return err
}

// ListSchemas returns all registered schema names in sorted order.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const builtinSchemas = `
// A single workspace tag.
#Tag: {
	key:   string & =~"^.{1,128}$"
	value: *"" | (string & =~"^.{0,256}$")
}

#TagMap: {[string]: string}

// Desired state of one workspace.
#Document: {
	// Workspace name. Immutable after creation.
	name: string & =~"^[A-Za-z0-9_.-]{1,64}$"

	tags?: [...#Tag]

	// Stack-level and host-generated tags for the desired state.
	stack_tags?:  #TagMap
	system_tags?: #TagMap

	// Tag sources of the previously applied document, used by update.
	previous_stack_tags?:  #TagMap
	previous_system_tags?: #TagMap
}
`
