package config

import (
	"strings"
	"testing"
)

func TestSchemaRegistry_RegisterAndGet(t *testing.T) {
	sr := NewSchemaRegistry()

	customSchema := `
#CustomType: {
	field1: string
	field2: int
}
`

	if err := sr.RegisterSchema("custom", "#CustomType", customSchema); err != nil {
		t.Fatalf("failed to register schema: %v", err)
	}

	schema, ok := sr.GetSchema("custom")
	if !ok {
		t.Fatal("expected to find custom schema")
	}
	if schema.Err() != nil {
		t.Errorf("schema has errors: %v", schema.Err())
	}

	if err := sr.RegisterSchema("missing", "#Other", customSchema); err == nil {
		t.Error("expected error for missing definition")
	}
	if err := sr.RegisterSchema("broken", "#X", "#X: {"); err == nil {
		t.Error("expected error for invalid CUE")
	}
}

func TestSchemaRegistry_BuiltInSchemas(t *testing.T) {
	sr := NewSchemaRegistry()

	names := sr.ListSchemas()
	if len(names) != 2 || names[0] != SchemaDocument || names[1] != SchemaTag {
		t.Errorf("unexpected built-in schemas: %v", names)
	}
}

func TestSchemaRegistry_ValidateTag(t *testing.T) {
	sr := NewSchemaRegistry()

	tests := []struct {
		name    string
		data    interface{}
		wantErr bool
	}{
		{"valid", map[string]interface{}{"key": "team", "value": "data"}, false},
		{"missing value defaults", map[string]interface{}{"key": "team"}, false},
		{"empty key", map[string]interface{}{"key": "", "value": "x"}, true},
		{"long key", map[string]interface{}{"key": strings.Repeat("k", 129), "value": "x"}, true},
		{"long value", map[string]interface{}{"key": "k", "value": strings.Repeat("v", 257)}, true},
		{"unknown field", map[string]interface{}{"key": "k", "value": "v", "extra": true}, true},
		{"numeric value", map[string]interface{}{"key": "k", "value": 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sr.ValidateAgainstSchema(SchemaTag, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAgainstSchema() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSchemaRegistry_UnknownSchema(t *testing.T) {
	sr := NewSchemaRegistry()

	if err := sr.ValidateAgainstSchema("nope", map[string]interface{}{}); err == nil {
		t.Error("expected error for unknown schema")
	}
}
