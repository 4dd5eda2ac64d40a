package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestComponentAddsAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(NewWithWriter(&buf, "debug"), "funding")
	logger.Info("settled", "reference", "TRX-1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if record["component"] != "funding" || record["reference"] != "TRX-1" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "loud")
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record should be filtered at info level")
	}
	logger.Info("shown")
	if buf.Len() == 0 {
		t.Fatalf("info record should be written")
	}
}
