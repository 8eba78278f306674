// Package pipeline runs documents through the full transformation
// pipeline: parse, rule application, optional conformance validation,
// serialization, and output/log writing. Each document is an
// independent unit of work.
package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xmlforge/xmlmod/pkg/audit"
	"github.com/xmlforge/xmlmod/pkg/config"
	"github.com/xmlforge/xmlmod/pkg/rules"
	"github.com/xmlforge/xmlmod/pkg/schema"
	"github.com/xmlforge/xmlmod/pkg/xmldoc"
)

// Status is a document's terminal pipeline state.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailedParse
	StatusFailedValidation
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailedParse:
		return "parse failure"
	case StatusFailedValidation:
		return "validation failure"
	}
	return "unknown"
}

// DocumentResult is the outcome of one document's pipeline run.
type DocumentResult struct {
	Input    string
	Output   string
	Status   Status
	Modified bool
	Log      *audit.Log
	Err      error
}

// ProcessFile runs one document through the pipeline. The stages are
// strictly sequential, partial output is never written for a failed
// document, and the log file is written in every case.
func ProcessFile(inputPath string, cfg *config.Config, sch *schema.Schema, logger *slog.Logger) *DocumentResult {
	name := filepath.Base(inputPath)
	res := &DocumentResult{
		Input:  inputPath,
		Output: filepath.Join(cfg.OutputDirectory, name),
		Log:    audit.NewLog(name),
	}
	defer writeLogs(res, cfg, logger)

	data, err := os.ReadFile(inputPath)
	if err != nil {
		res.Status = StatusFailedParse
		res.Err = err
		res.Log.AddNote("Failed to read %s: %v", name, err)
		return res
	}

	doc, err := xmldoc.Parse(data, xmldoc.ParseOptions{Recover: cfg.ErrorRecovery})
	if err != nil {
		res.Status = StatusFailedParse
		res.Err = err
		res.Log.AddNote("Failed to parse %s: %v", name, err)
		return res
	}
	for _, repair := range doc.Repairs {
		res.Log.AddRepair("%s", repair)
	}

	res.Modified = rules.Apply(doc, cfg, res.Log)

	if sch != nil {
		result := sch.Validate(doc)
		if result.Valid {
			res.Log.AddNote("XML is valid according to schema %s", cfg.SchemaValidation.SchemaPath)
		} else {
			res.Log.Add(audit.Record{
				RuleIndex: -1,
				Address:   cfg.SchemaValidation.SchemaPath,
				Outcome:   audit.Error,
				Detail:    "schema validation failed: " + strings.Join(result.Diagnostics, "; "),
			})
			if !cfg.SchemaValidation.WriteInvalid {
				res.Status = StatusFailedValidation
				res.Err = fmt.Errorf("schema validation failed for %s", name)
				res.Log.AddNote("Skipping saving of %s due to schema validation failure", name)
				return res
			}
		}
	}

	if !res.Modified {
		res.Log.AddNote("No changes made to %s", name)
		return res
	}

	out, err := xmldoc.Serialize(doc, xmldoc.WriteOptions{
		PrettyPrint: cfg.PrettyPrint,
		Encoding:    cfg.OutputFormat.Encoding,
	})
	if err != nil {
		res.Status = StatusFailedParse
		res.Err = err
		res.Log.AddNote("Failed to serialize %s: %v", name, err)
		return res
	}
	if err := os.WriteFile(res.Output, out, 0o644); err != nil {
		res.Status = StatusFailedParse
		res.Err = err
		res.Log.AddNote("Failed to write %s: %v", res.Output, err)
		return res
	}
	res.Log.AddNote("Modified XML saved to %s", res.Output)
	return res
}

// writeLogs renders the audit log next to the output document, with the
// same base name and a .log extension.
func writeLogs(res *DocumentResult, cfg *config.Config, logger *slog.Logger) {
	base := strings.TrimSuffix(filepath.Base(res.Input), filepath.Ext(res.Input))
	logPath := filepath.Join(cfg.OutputDirectory, base+".log")

	f, err := os.Create(logPath)
	if err != nil {
		logger.Error("writing audit log", "path", logPath, "error", err)
		return
	}
	res.Log.WriteText(f)
	if err := f.Close(); err != nil {
		logger.Error("closing audit log", "path", logPath, "error", err)
	}

	if !cfg.JSONLogs {
		return
	}
	jf, err := os.Create(logPath + ".json")
	if err != nil {
		logger.Error("writing JSON audit log", "path", logPath+".json", "error", err)
		return
	}
	if err := res.Log.WriteJSON(jf); err != nil {
		logger.Error("encoding JSON audit log", "path", logPath+".json", "error", err)
	}
	if err := jf.Close(); err != nil {
		logger.Error("closing JSON audit log", "path", logPath+".json", "error", err)
	}
}
