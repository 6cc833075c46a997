package logging

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	flags := log.Flags()
	log.SetFlags(0)
	SetOutput(&buf)
	t.Cleanup(func() {
		log.SetFlags(flags)
		SetOutput(os.Stderr)
		SetVerbose(false)
	})
	return &buf
}

func TestDebugf_OnlyWhenVerbose(t *testing.T) {
	buf := captureLog(t)

	SetVerbose(false)
	Debugf("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetVerbose(true)
	Debugf("shown %d", 2)
	assert.Equal(t, "[DEBUG] shown 2\n", buf.String())
}

func TestLevelPrefixes(t *testing.T) {
	buf := captureLog(t)

	Infof("a")
	Warnf("b")
	Errorf("c")

	assert.Equal(t, "[INFO] a\n[WARN] b\n[ERROR] c\n", buf.String())
}

func TestInit_WritesToLogFile(t *testing.T) {
	flags := log.Flags()
	log.SetFlags(0)
	defer log.SetFlags(flags)

	logPath := filepath.Join(t.TempDir(), "logs", "siteqa.log")
	require.NoError(t, Init(logPath))

	Warnf("persisted %s", "line")
	require.NoError(t, Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[WARN] persisted line")
}

func TestClose_WithoutFileIsNoop(t *testing.T) {
	assert.NoError(t, Close())
}
