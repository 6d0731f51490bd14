package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withBuffer(t *testing.T, verboseOn bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verboseOn)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	withBuffer(t, false)
	assert.False(t, IsVerbose())
	SetVerbose(true)
	assert.True(t, IsVerbose())
}

func TestLevels_WhenVerbose(t *testing.T) {
	buf := withBuffer(t, true)

	Debug("rows=%d", 3)
	Info("webspace %s", "io")
	Warn("slow")
	Section("Query")

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] rows=3\n")
	assert.Contains(t, out, "[INFO] webspace io\n")
	assert.Contains(t, out, "[WARN] slow\n")
	assert.Contains(t, out, "=== Query ===")
}

func TestLevels_WhenQuiet(t *testing.T) {
	buf := withBuffer(t, false)

	Debug("hidden")
	Section("hidden")

	assert.Empty(t, buf.String())
}
