package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openfroyo/walworkspace/pkg/engine"
)

const yamlDocument = `
name: wal-orders
tags:
  - key: team
    value: data
  - key: env
    value: prod
stack_tags:
  stack: orders
`

func TestParse_Formats(t *testing.T) {
	p := NewDocumentParser()

	tests := []struct {
		name   string
		format Format
		data   string
	}{
		{"yaml", FormatYAML, yamlDocument},
		{"json", FormatJSON, `{"name":"wal-orders","tags":[{"key":"team","value":"data"},{"key":"env","value":"prod"}],"stack_tags":{"stack":"orders"}}`},
		{"cue", FormatCUE, `
name: "wal-orders"
tags: [{key: "team", value: "data"}, {key: "env", value: "prod"}]
stack_tags: stack: "orders"
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := p.Parse([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			if doc.Name != "wal-orders" {
				t.Errorf("Expected name wal-orders, got %s", doc.Name)
			}
			if len(doc.Tags) != 2 || doc.Tags[0].Key != "team" || doc.Tags[1].Value != "prod" {
				t.Errorf("Unexpected tags: %+v", doc.Tags)
			}
			if doc.StackTags["stack"] != "orders" {
				t.Errorf("Expected stack tag, got %v", doc.StackTags)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	p := NewDocumentParser()

	tests := []struct {
		name   string
		format Format
		data   string
	}{
		{"missing name", FormatYAML, "tags: []\n"},
		{"bad name", FormatYAML, "name: wal/orders\n"},
		{"unknown field", FormatYAML, "name: wal\nowner: me\n"},
		{"tag without key", FormatJSON, `{"name":"wal","tags":[{"value":"x"}]}`},
		{"numeric stack tag", FormatJSON, `{"name":"wal","stack_tags":{"n":1}}`},
		{"empty", FormatYAML, ""},
		{"malformed json", FormatJSON, "{"},
		{"malformed cue", FormatCUE, "name: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Parse([]byte(tt.data), tt.format); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestParse_TagValueDefaultsEmpty(t *testing.T) {
	p := NewDocumentParser()

	doc, err := p.Parse([]byte("name: wal\ntags:\n  - key: team\n"), FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Tags) != 1 || doc.Tags[0].Value != "" {
		t.Errorf("Expected one tag with empty value, got %+v", doc.Tags)
	}
}

func TestParseFile(t *testing.T) {
	p := NewDocumentParser()
	dir := t.TempDir()

	path := filepath.Join(dir, "workspace.yml")
	if err := os.WriteFile(path, []byte(yamlDocument), 0o644); err != nil {
		t.Fatalf("Failed to write document: %v", err)
	}

	doc, err := p.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if doc.Name != "wal-orders" {
		t.Errorf("Expected name wal-orders, got %s", doc.Name)
	}

	if _, err := p.ParseFile(filepath.Join(dir, "workspace.toml")); err == nil {
		t.Error("Expected error for unsupported extension")
	}
	if _, err := p.ParseFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestDocumentRequest(t *testing.T) {
	aws := AWSConfig{AccountID: "123456789012", Partition: "aws", Region: "eu-west-1"}

	previous := &Document{
		Name:       "wal-orders",
		Tags:       []DocumentTag{{Key: "team", Value: "old"}},
		StackTags:  map[string]string{"stack": "v1"},
		SystemTags: map[string]string{"aws:cloudformation:stack-name": "s1"},
	}
	doc := &Document{
		Name:      "wal-orders",
		Tags:      []DocumentTag{{Key: "team", Value: "data"}},
		StackTags: map[string]string{"stack": "v2"},
	}

	req := doc.Request(aws, previous)

	if req.Model().Name != "wal-orders" {
		t.Errorf("Expected desired name wal-orders, got %s", req.Model().Name)
	}
	if req.Model().Tags[0] != (engine.Tag{Key: "team", Value: "data"}) {
		t.Errorf("Unexpected desired tags: %+v", req.Model().Tags)
	}
	if req.PreviousResourceState == nil || req.PreviousResourceState.Tags[0].Value != "old" {
		t.Errorf("Unexpected previous state: %+v", req.PreviousResourceState)
	}
	if req.PreviousResourceTags["stack"] != "v1" {
		t.Errorf("Expected previous stack tags from previous document, got %v", req.PreviousResourceTags)
	}
	if req.PreviousSystemTags["aws:cloudformation:stack-name"] != "s1" {
		t.Errorf("Expected previous system tags from previous document, got %v", req.PreviousSystemTags)
	}
	if req.Region != "eu-west-1" || req.AWSAccountID != "123456789012" {
		t.Errorf("Expected account and region from config, got %s/%s", req.AWSAccountID, req.Region)
	}

	// Explicit previous tag sources win over the previous document.
	doc.PreviousStackTags = map[string]string{"stack": "v0"}
	req = doc.Request(aws, previous)
	if req.PreviousResourceTags["stack"] != "v0" {
		t.Errorf("Expected explicit previous stack tags, got %v", req.PreviousResourceTags)
	}

	req = doc.Request(aws, nil)
	if req.PreviousResourceState != nil {
		t.Error("Expected no previous state without a previous document")
	}
}
