package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openfroyo/walworkspace/pkg/config"
	"github.com/openfroyo/walworkspace/pkg/engine"
)

func TestRequestFlags_FlagsOverrideDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ws.yaml")
	doc := "name: wal-orders\ntags:\n  - key: team\n    value: data\nstack_tags:\n  stack: s1\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("Failed to write document: %v", err)
	}

	f := &requestFlags{
		file:  path,
		tags:  map[string]string{"env": "prod", "app": "orders"},
		token: "token-1",
	}

	req, err := f.request(config.AWSConfig{Partition: "aws", Region: "us-east-1"})
	if err != nil {
		t.Fatalf("request() error = %v", err)
	}

	want := []engine.Tag{{Key: "app", Value: "orders"}, {Key: "env", Value: "prod"}}
	got := req.Model().Tags
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Expected flag tags %v, got %v", want, got)
	}
	if req.Model().Name != "wal-orders" {
		t.Errorf("Expected name from document, got %s", req.Model().Name)
	}
	if req.DesiredResourceTags["stack"] != "s1" {
		t.Errorf("Expected stack tags from document, got %v", req.DesiredResourceTags)
	}
	if req.ClientRequestToken != "token-1" {
		t.Errorf("Expected token-1, got %s", req.ClientRequestToken)
	}
}

func TestRequestFlags_NameRequired(t *testing.T) {
	f := &requestFlags{}
	if _, err := f.request(config.AWSConfig{}); err == nil {
		t.Error("Expected error without a name")
	}
}

func TestPrintOutcome(t *testing.T) {
	var buf bytes.Buffer

	out := engine.Success(&engine.ResourceModel{Name: "wal-1", Tags: []engine.Tag{{Key: "team", Value: "data"}}})
	if err := printOutcome(&buf, out); err != nil {
		t.Fatalf("printOutcome() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Status: SUCCESS") || !strings.Contains(buf.String(), "team") {
		t.Errorf("Unexpected output:\n%s", buf.String())
	}

	buf.Reset()
	failed := engine.Failed(nil, engine.ErrorKindNotFound, "gone")
	if err := printOutcome(&buf, failed); err == nil || !strings.Contains(err.Error(), "NotFound") {
		t.Errorf("Expected NotFound error, got %v", err)
	}
}
