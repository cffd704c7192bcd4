package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathbridge/pathbridge/internal/config"
)

func TestLevelForMapsTraceToLogrusLevel(t *testing.T) {
	assert.Equal(t, logrus.WarnLevel, levelFor(config.TraceOff))
	assert.Equal(t, logrus.InfoLevel, levelFor(config.TraceTransformOnly))
	assert.Equal(t, logrus.DebugLevel, levelFor(config.TraceVerbose))
}

func TestNewWritesToConfiguredLogPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pathbridge.log")

	log, err := New(config.TraceVerbose, path)
	require.NoError(t, err)
	require.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.Info("mounted")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mounted")
}

func TestNewAppendsRatherThanTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pathbridge.log")

	first, err := New(config.TraceTransformOnly, path)
	require.NoError(t, err)
	first.Info("first line")

	second, err := New(config.TraceTransformOnly, path)
	require.NoError(t, err)
	second.Info("second line")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first line")
	assert.Contains(t, string(data), "second line")
}

func TestNewFallsBackToStderrWhenLogPathEmpty(t *testing.T) {
	log, err := New(config.TraceOff, "")
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
}
