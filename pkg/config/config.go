// Package config defines the run configuration consumed by the
// transformation engine. A Config is loaded once, validated before any
// document is processed, and treated as immutable for the rest of the
// run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xmlforge/xmlmod/pkg/address"
)

// Rule identifies one structural location and the conditional
// replacement to apply there.
type Rule struct {
	// XPath is the structural address, optionally carrying the
	// reserved [CDATA] suffix.
	XPath string `json:"xpath" yaml:"xpath"`

	// CurrentValue is the expected value precondition. When nil the
	// replacement is unconditional.
	CurrentValue *string `json:"current_value" yaml:"current_value"`

	// NewValue is the replacement value. When omitted it defaults to
	// CurrentValue.
	NewValue *string `json:"new_value" yaml:"new_value"`
}

// Expected returns the expected-value precondition, if any.
func (r Rule) Expected() (string, bool) {
	if r.CurrentValue == nil {
		return "", false
	}
	return *r.CurrentValue, true
}

// Replacement returns the value to write on a successful match.
func (r Rule) Replacement() string {
	if r.NewValue != nil {
		return *r.NewValue
	}
	if r.CurrentValue != nil {
		return *r.CurrentValue
	}
	return ""
}

// SchemaValidation configures the optional conformance gate.
type SchemaValidation struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	SchemaPath string `json:"schema_path" yaml:"schema_path"`

	// WriteInvalid controls whether a document that fails validation
	// still has its transformed output written. The log file is
	// written either way.
	WriteInvalid bool `json:"write_invalid" yaml:"write_invalid"`
}

// OutputFormat configures serialization of transformed documents.
type OutputFormat struct {
	// Encoding overrides the declared output encoding. Empty means
	// the document's own source encoding, falling back to UTF-8.
	Encoding string `json:"encoding" yaml:"encoding"`
}

// Config is the fully-resolved run configuration.
type Config struct {
	InputDirectory   string            `json:"input_directory" yaml:"input_directory"`
	OutputDirectory  string            `json:"output_directory" yaml:"output_directory"`
	PrettyPrint      bool              `json:"pretty_print" yaml:"pretty_print"`
	HandleCDATA      bool              `json:"handle_cdata" yaml:"handle_cdata"`
	ErrorRecovery    bool              `json:"error_recovery" yaml:"error_recovery"`
	SchemaValidation SchemaValidation  `json:"schema_validation" yaml:"schema_validation"`
	OutputFormat     OutputFormat      `json:"output_format" yaml:"output_format"`
	Namespaces       map[string]string `json:"namespaces" yaml:"namespaces"`
	Mappings         []Rule            `json:"mappings" yaml:"mappings"`

	// JSONLogs additionally writes each document's audit log in JSON
	// form next to the text log, for tool interop.
	JSONLogs bool `json:"json_logs" yaml:"json_logs"`

	// Workers bounds the batch worker pool. Zero means one worker
	// per CPU.
	Workers int `json:"workers" yaml:"workers"`
}

// Error reports a malformed configuration. It is fatal to the run and
// surfaced before any document is processed.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Load reads a configuration file. The format is chosen by extension:
// .yaml/.yml is YAML, anything else is JSON (the original config.json
// form).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate checks the configuration before any document is touched:
// directories are set, every rule has an address and a replacement, and
// every address compiles against the namespace map. The first problem
// found is returned as a *Error.
func (c *Config) Validate() error {
	if c.InputDirectory == "" {
		return &Error{Field: "input_directory", Reason: "must not be empty"}
	}
	if c.OutputDirectory == "" {
		return &Error{Field: "output_directory", Reason: "must not be empty"}
	}
	if len(c.Mappings) == 0 {
		return &Error{Field: "mappings", Reason: "at least one rule is required"}
	}
	for i, rule := range c.Mappings {
		field := fmt.Sprintf("mappings[%d]", i)
		if rule.XPath == "" {
			return &Error{Field: field + ".xpath", Reason: "must not be empty"}
		}
		if rule.CurrentValue == nil && rule.NewValue == nil {
			return &Error{Field: field, Reason: "needs a current_value or a new_value"}
		}
		if _, err := address.Compile(rule.XPath, c.Namespaces); err != nil {
			return &Error{Field: field + ".xpath", Reason: err.Error()}
		}
	}
	if c.SchemaValidation.Enabled && c.SchemaValidation.SchemaPath == "" {
		return &Error{Field: "schema_validation.schema_path", Reason: "required when schema validation is enabled"}
	}
	if c.Workers < 0 {
		return &Error{Field: "workers", Reason: "must not be negative"}
	}
	return nil
}
