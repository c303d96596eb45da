package capture

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/raysh454/design-polish/internal/model"
)

// Sentinel lines framing the machine-readable result on stdout.
const (
	ResultStart = "--- JSON_RESULT_START ---"
	ResultEnd   = "--- JSON_RESULT_END ---"
)

// Header is common to every result block.
type Header struct {
	Success   bool       `json:"success"`
	Type      model.Mode `json:"type"`
	OutputDir string     `json:"outputDir"`
}

// Summary wraps r for printing. The payload's fields sit next to the header
// fields in the encoded object.
func (r *LocalResult) Summary(outputDir string) any {
	return struct {
		Header
		*LocalResult
	}{Header{Success: true, Type: model.ModeLocal, OutputDir: outputDir}, r}
}

func (r *ReferenceResult) Summary(outputDir string) any {
	return struct {
		Header
		*ReferenceResult
	}{Header{Success: true, Type: model.ModeReference, OutputDir: outputDir}, r}
}

func (r *WCAGResult) Summary(outputDir string) any {
	return struct {
		Header
		*WCAGResult
	}{Header{Success: true, Type: model.ModeWCAG, OutputDir: outputDir}, r}
}

// WriteResultBlock prints v as indented JSON between the sentinel lines.
func WriteResultBlock(w io.Writer, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintf(w, "\n%s\n%s\n%s\n", ResultStart, body, ResultEnd)
	return err
}

// ExtractResultBlock returns the JSON between the sentinel lines of output.
func ExtractResultBlock(output []byte) ([]byte, error) {
	start := bytes.Index(output, []byte(ResultStart))
	if start < 0 {
		return nil, errors.New("result start marker not found")
	}
	rest := output[start+len(ResultStart):]
	end := bytes.Index(rest, []byte(ResultEnd))
	if end < 0 {
		return nil, errors.New("result end marker not found")
	}
	return bytes.TrimSpace(rest[:end]), nil
}
