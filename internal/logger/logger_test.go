package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset(t *testing.T) {
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
}

func TestSetVerbose(t *testing.T) {
	reset(t)

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())
}

func TestLevels_WhenVerbose(t *testing.T) {
	tests := []struct {
		name string
		log  func()
		want string
	}{
		{"debug", func() { Debug("GET %s", "/knowledge/list") }, "[DEBUG] GET /knowledge/list\n"},
		{"info", func() { Info("loaded %d sources", 3) }, "[INFO] loaded 3 sources\n"},
		{"warn", func() { Warn("retrying %s", "view") }, "[WARN] retrying view\n"},
		{"error", func() { Error("upload failed: %v", "boom") }, "[ERROR] upload failed: boom\n"},
		{"section", func() { Section("Reindex") }, "\n=== Reindex ===\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reset(t)
			var buf bytes.Buffer
			SetOutput(&buf)
			SetVerbose(true)

			tt.log()

			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestLevels_WhenNotVerbose(t *testing.T) {
	reset(t)
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("x")
	Info("x")
	Warn("x")
	Error("x")
	Section("x")

	assert.Empty(t, buf.String())
}

func TestOpenFile(t *testing.T) {
	reset(t)
	path := filepath.Join(t.TempDir(), "logs", "knowctl.log")
	SetVerbose(true)

	closeFn, err := OpenFile(path)
	require.NoError(t, err)
	Info("written to file")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[INFO] written to file\n", string(data))

	var buf bytes.Buffer
	SetOutput(&buf)
	Info("after close")
	assert.Equal(t, "[INFO] after close\n", buf.String())
}

func TestConcurrentAccess(t *testing.T) {
	reset(t)
	var buf bytes.Buffer
	SetOutput(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetVerbose(true)
		}()
		go func() {
			defer wg.Done()
			_ = IsVerbose()
		}()
	}
	wg.Wait()
}
