package capture

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/raysh454/design-polish/internal/model"
)

func TestWriteResultBlock_LocalWithoutReport(t *testing.T) {
	t.Parallel()
	res := &LocalResult{Results: []model.CaptureResult{
		model.NewCaptureResult(model.LocalRoute("/"), "current-main.png", nil),
	}}

	var buf bytes.Buffer
	if err := WriteResultBlock(&buf, res.Summary(".design-polish/screenshots")); err != nil {
		t.Fatalf("WriteResultBlock: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, ResultStart+"\n") || !strings.HasSuffix(out, ResultEnd+"\n") {
		t.Fatalf("missing sentinel lines:\n%s", out)
	}

	raw, err := ExtractResultBlock(buf.Bytes())
	if err != nil {
		t.Fatalf("ExtractResultBlock: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got["success"] != true || got["type"] != "local" || got["outputDir"] != ".design-polish/screenshots" {
		t.Errorf("unexpected header fields: %v", got)
	}
	v, present := got["wcagReport"]
	if !present || v != nil {
		t.Errorf("expected wcagReport: null, got present=%v value=%v", present, v)
	}
	results, ok := got["results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("expected one result, got %v", got["results"])
	}
	first := results[0].(map[string]any)
	if first["filename"] != "current-main.png" || first["success"] != true || first["route"] != "/" {
		t.Errorf("unexpected result entry %v", first)
	}
	if _, hasErr := first["error"]; hasErr {
		t.Error("successful result must not carry an error field")
	}
}

func TestWriteResultBlock_ReferenceAndWCAGTypes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		summary any
		want    string
		key     string
	}{
		{"reference", (&ReferenceResult{}).Summary("out"), "reference", "results"},
		{"wcag", (&WCAGResult{}).Summary("a11y"), "wcag", "reports"},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		if err := WriteResultBlock(&buf, tc.summary); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		raw, err := ExtractResultBlock(buf.Bytes())
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		var got map[string]any
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got["type"] != tc.want {
			t.Errorf("%s: type = %v", tc.name, got["type"])
		}
		if _, ok := got[tc.key]; !ok {
			t.Errorf("%s: missing %q key in %v", tc.name, tc.key, got)
		}
		if _, ok := got["wcagReport"]; ok {
			t.Errorf("%s: wcagReport belongs to local runs only", tc.name)
		}
	}
}

func TestExtractResultBlock_Missing(t *testing.T) {
	t.Parallel()
	if _, err := ExtractResultBlock([]byte("just logs")); err == nil {
		t.Error("expected error without start marker")
	}
	if _, err := ExtractResultBlock([]byte(ResultStart + "\n{}")); err == nil {
		t.Error("expected error without end marker")
	}
}
