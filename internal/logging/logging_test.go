package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWithSink(t *testing.T) {
	var buf bytes.Buffer
	cfg := NewDefaultConfig()
	cfg.Fields = map[string]string{"service": "onboardd"}

	logger, err := NewWithSink(cfg, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("tier submitted", zap.Int("tier", 1))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "tier submitted", entry["msg"])
	assert.Equal(t, "onboardd", entry["service"])
	assert.EqualValues(t, 1, entry["tier"])
	assert.Contains(t, entry, "ts")
}

func TestValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Format = "xml"
	assert.Error(t, cfg.Validate())

	_, err := New(cfg)
	assert.Error(t, err)
}
