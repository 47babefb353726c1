package tracelog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestWriterEmitEncodesJSONLLine(t *testing.T) {
	var buf bytes.Buffer
	tw := NewWriter(&buf, "run-1")

	if err := tw.Emit(EventTick, map[string]any{"scenario": "s1", "tick": 3}); err != nil {
		t.Fatalf("Emit error: %v", err)
	}

	var evt Event
	if err := json.Unmarshal(buf.Bytes(), &evt); err != nil {
		t.Fatalf("invalid JSON: %v (raw: %s)", err, buf.String())
	}
	if evt.Type != EventTick || evt.RunID != "run-1" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if evt.Data["scenario"] != "s1" {
		t.Fatalf("scenario = %v", evt.Data["scenario"])
	}
}

func TestWriterEmitTestStateChangeOmitsEmptyReason(t *testing.T) {
	var buf bytes.Buffer
	tw := NewWriter(&buf, "run-1")

	tw.EmitTestStateChange("s1", "T1", "pending", "given_active", "")

	var evt Event
	json.Unmarshal(buf.Bytes(), &evt)
	if _, ok := evt.Data["reason"]; ok {
		t.Fatal("expected no reason key for empty reason")
	}
}

func TestWriterRedactSecretsReplacesEnvValue(t *testing.T) {
	t.Setenv("CHOREO_TEST_SECRET", "super-secret-token")

	var buf bytes.Buffer
	tw := NewWriter(&buf, "run-1")
	tw.SetSecrets([]string{"CHOREO_TEST_SECRET"})

	redacted := tw.RedactSecrets("Authorization: Bearer super-secret-token")
	if strings.Contains(redacted, "super-secret-token") {
		t.Fatalf("expected secret to be redacted, got %q", redacted)
	}
	if !strings.Contains(redacted, "<REDACTED>") {
		t.Fatalf("expected redaction marker, got %q", redacted)
	}
}

func TestWriterMultipleEventsProduceOneLineEach(t *testing.T) {
	var buf bytes.Buffer
	tw := NewWriter(&buf, "run-1")

	tw.EmitScenarioStart("s1")
	tw.EmitTick("s1", 0)
	tw.EmitScenarioComplete("s1", 0, 2, 0)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 JSONL lines, got %d", len(lines))
	}
	for i, line := range lines {
		var evt Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			t.Fatalf("line %d invalid JSON: %v", i, err)
		}
	}
}
