package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/walworkspace/pkg/engine"
)

// Document is the desired state of one workspace as written by a user.
type Document struct {
	Name               string            `json:"name" yaml:"name"`
	Tags               []DocumentTag     `json:"tags,omitempty" yaml:"tags,omitempty"`
	StackTags          map[string]string `json:"stack_tags,omitempty" yaml:"stack_tags,omitempty"`
	SystemTags         map[string]string `json:"system_tags,omitempty" yaml:"system_tags,omitempty"`
	PreviousStackTags  map[string]string `json:"previous_stack_tags,omitempty" yaml:"previous_stack_tags,omitempty"`
	PreviousSystemTags map[string]string `json:"previous_system_tags,omitempty" yaml:"previous_system_tags,omitempty"`
}

// DocumentTag is a tag entry in a Document.
type DocumentTag struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Format is the encoding of a document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unsupported document type: %s", path)
	}
}

// DocumentParser parses and validates desired-state documents.
type DocumentParser struct {
	schemas *SchemaRegistry
}

// NewDocumentParser creates a parser backed by the built-in schemas.
func NewDocumentParser() *DocumentParser {
	return &DocumentParser{schemas: NewSchemaRegistry()}
}

// ParseFile reads and parses a document file.
func (p *DocumentParser) ParseFile(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	doc, err := p.Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes data in format, checks it against the document schema and
// returns the result. Unknown fields are rejected.
func (p *DocumentParser) Parse(data []byte, format Format) (*Document, error) {
	val, err := p.toValue(data, format)
	if err != nil {
		return nil, err
	}

	unified, err := p.schemas.Unify(SchemaDocument, val)
	if err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}

	var doc Document
	if err := unified.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &doc, nil
}

func (p *DocumentParser) toValue(data []byte, format Format) (cue.Value, error) {
	ctx := p.schemas.Context()

	switch format {
	case FormatCUE:
		val := ctx.CompileBytes(data)
		if err := val.Err(); err != nil {
			return cue.Value{}, fmt.Errorf("failed to compile CUE document: %w", err)
		}
		return val, nil

	case FormatJSON:
		var raw map[string]interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return cue.Value{}, fmt.Errorf("failed to parse JSON document: %w", err)
		}
		return p.encode(raw)

	case FormatYAML:
		var raw map[string]interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cue.Value{}, fmt.Errorf("failed to parse YAML document: %w", err)
		}
		return p.encode(raw)

	default:
		return cue.Value{}, fmt.Errorf("unsupported document format: %s", format)
	}
}

func (p *DocumentParser) encode(raw map[string]interface{}) (cue.Value, error) {
	if raw == nil {
		return cue.Value{}, fmt.Errorf("document is empty")
	}
	val := p.schemas.Context().Encode(raw)
	if err := val.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("failed to encode document: %w", err)
	}
	return val, nil
}

// Model returns the workspace model the document describes.
func (d *Document) Model() *engine.ResourceModel {
	model := &engine.ResourceModel{Name: d.Name}
	for _, t := range d.Tags {
		model.Tags = append(model.Tags, engine.Tag{Key: t.Key, Value: t.Value})
	}
	return model
}

// Request builds a lifecycle request for the document in the configured
// account. previous is the last applied document and may be nil.
func (d *Document) Request(aws AWSConfig, previous *Document) *engine.Request {
	req := &engine.Request{
		DesiredResourceState: d.Model(),
		DesiredResourceTags:  d.StackTags,
		SystemTags:           d.SystemTags,
		PreviousResourceTags: d.PreviousStackTags,
		PreviousSystemTags:   d.PreviousSystemTags,
		AWSAccountID:         aws.AccountID,
		AWSPartition:         aws.Partition,
		Region:               aws.Region,
	}

	if previous != nil {
		req.PreviousResourceState = previous.Model()
		if req.PreviousResourceTags == nil {
			req.PreviousResourceTags = previous.StackTags
		}
		if req.PreviousSystemTags == nil {
			req.PreviousSystemTags = previous.SystemTags
		}
	}

	return req
}
