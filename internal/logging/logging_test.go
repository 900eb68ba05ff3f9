package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_HasComponent(t *testing.T) {
	var buf bytes.Buffer
	Init("debug", "text", &buf)

	New("test-component").Info("hello")

	output := buf.String()
	if !strings.Contains(output, "component=test-component") {
		t.Errorf("expected component=test-component in output, got: %s", output)
	}
	if !strings.Contains(output, "hello") {
		t.Errorf("expected 'hello' in output, got: %s", output)
	}
}

func TestInit_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init("info", "json", &buf)

	New("json-test").Info("json check")

	output := buf.String()
	if !strings.Contains(output, `"level":"info"`) {
		t.Errorf("expected level info in json output, got: %s", output)
	}
	if !strings.Contains(output, `"component":"json-test"`) {
		t.Errorf("expected component in json output, got: %s", output)
	}
}

func TestInit_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init("warn", "text", &buf)

	New("lvl").Info("should not appear")
	New("lvl").Warn("should appear")

	output := buf.String()
	if strings.Contains(output, "should not appear") {
		t.Errorf("info line leaked at warn level: %s", output)
	}
	if !strings.Contains(output, "should appear") {
		t.Errorf("warn line missing: %s", output)
	}
}

func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init("chatty", "text", &buf)

	New("lvl").Debug("debug line")
	New("lvl").Info("info line")

	output := buf.String()
	if strings.Contains(output, "debug line") {
		t.Errorf("debug line should be filtered: %s", output)
	}
	if !strings.Contains(output, "info line") {
		t.Errorf("info line missing: %s", output)
	}
}
