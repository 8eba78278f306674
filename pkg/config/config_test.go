package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"input_directory": "in",
		"output_directory": "out",
		"pretty_print": true,
		"handle_cdata": true,
		"error_recovery": false,
		"namespaces": {"ns": "http://example.com/ns"},
		"mappings": [
			{"xpath": "//ns:DOC_TYP", "current_value": "JV", "new_value": "JV_NEW"}
		]
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.InputDirectory != "in" || cfg.OutputDirectory != "out" {
		t.Errorf("directories: %+v", cfg)
	}
	if !cfg.PrettyPrint || !cfg.HandleCDATA {
		t.Errorf("flags: %+v", cfg)
	}
	if cfg.Namespaces["ns"] != "http://example.com/ns" {
		t.Errorf("namespaces: %v", cfg.Namespaces)
	}
	if len(cfg.Mappings) != 1 {
		t.Fatalf("mappings: %v", cfg.Mappings)
	}
	expected, ok := cfg.Mappings[0].Expected()
	if !ok || expected != "JV" {
		t.Errorf("Expected() = %q, %v", expected, ok)
	}
	if got := cfg.Mappings[0].Replacement(); got != "JV_NEW" {
		t.Errorf("Replacement() = %q", got)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
input_directory: in
output_directory: out
namespaces:
  ns: http://example.com/ns
mappings:
  - xpath: //ns:DOC_TYP
    current_value: JV
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.InputDirectory != "in" {
		t.Errorf("input_directory = %q", cfg.InputDirectory)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

// A rule with no new_value falls back to replacing with current_value,
// matching the original configuration convention.
func TestReplacementDefaultsToCurrentValue(t *testing.T) {
	cur := "KEEP"
	r := Rule{XPath: "//a", CurrentValue: &cur}
	if got := r.Replacement(); got != "KEEP" {
		t.Errorf("Replacement() = %q, want KEEP", got)
	}
}

func TestValidateErrors(t *testing.T) {
	val := "x"
	base := func() *Config {
		return &Config{
			InputDirectory:  "in",
			OutputDirectory: "out",
			Namespaces:      map[string]string{"ns": "http://example.com/ns"},
			Mappings:        []Rule{{XPath: "//ns:a", NewValue: &val}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing input dir", func(c *Config) { c.InputDirectory = "" }, "input_directory"},
		{"missing output dir", func(c *Config) { c.OutputDirectory = "" }, "output_directory"},
		{"no rules", func(c *Config) { c.Mappings = nil }, "mappings"},
		{"empty xpath", func(c *Config) { c.Mappings[0].XPath = "" }, "mappings[0].xpath"},
		{"no values", func(c *Config) { c.Mappings[0].NewValue = nil }, "mappings[0]"},
		{"unknown alias", func(c *Config) { c.Mappings[0].XPath = "//other:a" }, "mappings[0].xpath"},
		{"bad xpath", func(c *Config) { c.Mappings[0].XPath = "//ns:a[" }, "mappings[0].xpath"},
		{"schema path missing", func(c *Config) { c.SchemaValidation.Enabled = true }, "schema_validation.schema_path"},
		{"negative workers", func(c *Config) { c.Workers = -1 }, "workers"},
	}
	for _, tt := range tests {
		cfg := base()
		tt.mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		var cerr *Error
		if !errors.As(err, &cerr) {
			t.Errorf("%s: error type %T", tt.name, err)
			continue
		}
		if cerr.Field != tt.field {
			t.Errorf("%s: field = %q, want %q", tt.name, cerr.Field, tt.field)
		}
	}
}

func TestValidateOK(t *testing.T) {
	val := "NEW"
	cfg := &Config{
		InputDirectory:  "in",
		OutputDirectory: "out",
		Namespaces:      map[string]string{"ns": "http://example.com/ns"},
		Mappings: []Rule{
			{XPath: "//ns:AMS_DOCUMENT/ns:JV_DOC_HDR/ns:DOC_TYP", NewValue: &val},
			{XPath: "//payload[CDATA]", NewValue: &val},
			{XPath: "//record/@id", NewValue: &val},
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
