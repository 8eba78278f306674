package pipeline

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xmlforge/xmlmod/pkg/audit"
	"github.com/xmlforge/xmlmod/pkg/config"
	"github.com/xmlforge/xmlmod/pkg/schema"
)

func str(s string) *string { return &s }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		InputDirectory:  t.TempDir(),
		OutputDirectory: t.TempDir(),
		Mappings: []config.Rule{
			{XPath: "//DOC_TYP", CurrentValue: str("JV"), NewValue: str("JV_NEW")},
		},
	}
}

func writeInput(t *testing.T, cfg *config.Config, name, content string) string {
	t.Helper()
	path := filepath.Join(cfg.InputDirectory, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readOutput(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.OutputDirectory, name))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<AMS_DOCUMENT><JV_DOC_HDR><DOC_TYP>JV</DOC_TYP></JV_DOC_HDR></AMS_DOCUMENT>`

func TestProcessFileWritesOutputAndLog(t *testing.T) {
	cfg := testConfig(t)
	path := writeInput(t, cfg, "doc.xml", sampleDoc)

	res := ProcessFile(path, cfg, nil, quietLogger())
	if res.Status != StatusSuccess || !res.Modified {
		t.Fatalf("result = %+v", res)
	}

	out := readOutput(t, cfg, "doc.xml")
	if !strings.Contains(out, "<DOC_TYP>JV_NEW</DOC_TYP>") {
		t.Errorf("output = %s", out)
	}

	logText := readOutput(t, cfg, "doc.log")
	if !strings.HasPrefix(logText, "Processing file: doc.xml") {
		t.Errorf("log header = %q", logText)
	}
	if !strings.Contains(logText, "Modified XML saved to ") {
		t.Errorf("log = %s", logText)
	}
}

func TestProcessFileUnmodifiedWritesNoOutput(t *testing.T) {
	cfg := testConfig(t)
	path := writeInput(t, cfg, "doc.xml", `<AMS_DOCUMENT><JV_DOC_HDR><DOC_TYP>ZZ</DOC_TYP></JV_DOC_HDR></AMS_DOCUMENT>`)

	res := ProcessFile(path, cfg, nil, quietLogger())
	if res.Status != StatusSuccess || res.Modified {
		t.Fatalf("result = %+v", res)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDirectory, "doc.xml")); !os.IsNotExist(err) {
		t.Error("output written for unmodified document")
	}
	logText := readOutput(t, cfg, "doc.log")
	if !strings.Contains(logText, "No changes made to doc.xml") {
		t.Errorf("log = %s", logText)
	}
}

func TestProcessFileParseFailure(t *testing.T) {
	cfg := testConfig(t)
	path := writeInput(t, cfg, "bad.xml", "<root><open></wrong></root>")

	res := ProcessFile(path, cfg, nil, quietLogger())
	if res.Status != StatusFailedParse {
		t.Fatalf("status = %v", res.Status)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDirectory, "bad.xml")); !os.IsNotExist(err) {
		t.Error("output written for unparseable document")
	}
	logText := readOutput(t, cfg, "bad.log")
	if !strings.Contains(logText, "Failed to parse bad.xml") {
		t.Errorf("log = %s", logText)
	}
}

func TestProcessFileRecoversWhenConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.ErrorRecovery = true
	path := writeInput(t, cfg, "bad.xml", `<AMS_DOCUMENT><JV_DOC_HDR><DOC_TYP>JV</DOC_TYP>`)

	res := ProcessFile(path, cfg, nil, quietLogger())
	if res.Status != StatusSuccess || !res.Modified {
		t.Fatalf("result = %+v, err = %v", res, res.Err)
	}
	out := readOutput(t, cfg, "bad.xml")
	if !strings.Contains(out, "JV_NEW") {
		t.Errorf("output = %s", out)
	}
	logText := readOutput(t, cfg, "bad.log")
	if !strings.Contains(logText, "recovered") {
		t.Errorf("no recovery diagnostics in log: %s", logText)
	}
}

const gateSchema = `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="AMS_DOCUMENT">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="JV_DOC_HDR">
          <xs:complexType>
            <xs:sequence>
              <xs:element name="DOC_TYP">
                <xs:simpleType>
                  <xs:restriction base="xs:string">
                    <xs:enumeration value="JV"/>
                  </xs:restriction>
                </xs:simpleType>
              </xs:element>
            </xs:sequence>
          </xs:complexType>
        </xs:element>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>`

func TestProcessFileValidationFailureSuppressesOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.SchemaValidation = config.SchemaValidation{Enabled: true, SchemaPath: "gate.xsd"}
	sch, err := schema.Parse([]byte(gateSchema))
	if err != nil {
		t.Fatal(err)
	}
	// The rule rewrites DOC_TYP to JV_NEW, which the schema's
	// enumeration rejects.
	path := writeInput(t, cfg, "doc.xml", sampleDoc)

	res := ProcessFile(path, cfg, sch, quietLogger())
	if res.Status != StatusFailedValidation {
		t.Fatalf("status = %v", res.Status)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDirectory, "doc.xml")); !os.IsNotExist(err) {
		t.Error("output written despite validation failure")
	}
	logText := readOutput(t, cfg, "doc.log")
	if !strings.Contains(logText, "Skipping saving of doc.xml due to schema validation failure") {
		t.Errorf("log = %s", logText)
	}
}

func TestProcessFileValidationPassNoted(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mappings = []config.Rule{
		{XPath: "//DOC_TYP", CurrentValue: str("JV"), NewValue: str("JV")},
	}
	cfg.SchemaValidation = config.SchemaValidation{Enabled: true, SchemaPath: "gate.xsd"}
	sch, err := schema.Parse([]byte(gateSchema))
	if err != nil {
		t.Fatal(err)
	}
	path := writeInput(t, cfg, "doc.xml", sampleDoc)

	res := ProcessFile(path, cfg, sch, quietLogger())
	if res.Status != StatusSuccess {
		t.Fatalf("result = %+v", res)
	}
	logText := readOutput(t, cfg, "doc.log")
	if !strings.Contains(logText, "XML is valid according to schema gate.xsd") {
		t.Errorf("log = %s", logText)
	}
}

func TestProcessFileWriteInvalidOverride(t *testing.T) {
	cfg := testConfig(t)
	cfg.SchemaValidation = config.SchemaValidation{Enabled: true, SchemaPath: "gate.xsd", WriteInvalid: true}
	sch, err := schema.Parse([]byte(gateSchema))
	if err != nil {
		t.Fatal(err)
	}
	path := writeInput(t, cfg, "doc.xml", sampleDoc)

	res := ProcessFile(path, cfg, sch, quietLogger())
	if res.Status != StatusSuccess {
		t.Fatalf("result = %+v", res)
	}
	out := readOutput(t, cfg, "doc.xml")
	if !strings.Contains(out, "JV_NEW") {
		t.Errorf("output = %s", out)
	}
}

func TestProcessFileJSONLog(t *testing.T) {
	cfg := testConfig(t)
	cfg.JSONLogs = true
	path := writeInput(t, cfg, "doc.xml", sampleDoc)

	ProcessFile(path, cfg, nil, quietLogger())
	jsonText := readOutput(t, cfg, "doc.log.json")
	if !strings.Contains(jsonText, `"document": "doc.xml"`) {
		t.Errorf("json log = %s", jsonText)
	}
	if !strings.Contains(jsonText, `"`+string(audit.Modified)+`"`) {
		t.Errorf("json log = %s", jsonText)
	}
}

func TestProcessDirectoryBatch(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers = 2
	writeInput(t, cfg, "a.xml", sampleDoc)
	writeInput(t, cfg, "b.xml", `<AMS_DOCUMENT><JV_DOC_HDR><DOC_TYP>ZZ</DOC_TYP></JV_DOC_HDR></AMS_DOCUMENT>`)
	writeInput(t, cfg, "c.xml", "definitely not xml")
	writeInput(t, cfg, "notes.txt", "ignored")

	summary, err := ProcessDirectory(cfg, nil, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Processed != 3 {
		t.Errorf("processed = %d", summary.Processed)
	}
	if summary.Modified != 1 {
		t.Errorf("modified = %d", summary.Modified)
	}
	if summary.Failed != 1 {
		t.Errorf("failed = %d", summary.Failed)
	}
	if len(summary.Failures) != 1 || !strings.HasPrefix(summary.Failures[0], "c.xml: ") {
		t.Errorf("failures = %v", summary.Failures)
	}
}

func TestProcessDirectoryEmpty(t *testing.T) {
	cfg := testConfig(t)
	summary, err := ProcessDirectory(cfg, nil, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Processed != 0 || summary.Failed != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestProcessDirectoryMissingInput(t *testing.T) {
	cfg := testConfig(t)
	cfg.InputDirectory = filepath.Join(cfg.InputDirectory, "nope")
	if _, err := ProcessDirectory(cfg, nil, quietLogger()); err == nil {
		t.Fatal("expected error for missing input directory")
	}
}
