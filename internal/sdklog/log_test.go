package sdklog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestComponentTagsOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.DebugLevel)
	comp := log.Component("streamsource")

	comp.Info("connected")

	out := buf.String()
	if !strings.Contains(out, `"component":"streamsource"`) {
		t.Fatalf("expected component field in output, got %q", out)
	}
	if !strings.Contains(out, "connected") {
		t.Fatalf("expected message in output, got %q", out)
	}
}

func TestErrorErrIncludesErrorField(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.DebugLevel)

	log.ErrorErr("failed to connect", errBoom)

	if !strings.Contains(buf.String(), "boom") {
		t.Fatalf("expected underlying error message in output, got %q", buf.String())
	}
}

var errBoom = boomError{}

type boomError struct{}

func (boomError) Error() string { return "boom" }
