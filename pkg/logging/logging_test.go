package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/JaimeStill/casse/pkg/logging"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := logging.Config{}
	require.NoError(t, cfg.Finalize(nil))

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
}

func TestFinalizeEnv(t *testing.T) {
	t.Setenv("TEST_LOG_LEVEL", "DEBUG")
	t.Setenv("TEST_LOG_FORMAT", "Console")

	cfg := logging.Config{}
	require.NoError(t, cfg.Finalize(&logging.Env{Level: "TEST_LOG_LEVEL", Format: "TEST_LOG_FORMAT"}))

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
}

func TestFinalizeValidation(t *testing.T) {
	bad := logging.Config{Level: "loud"}
	assert.ErrorContains(t, bad.Finalize(nil), "invalid level")

	format := logging.Config{Format: "xml"}
	assert.ErrorContains(t, format.Finalize(nil), "invalid format")
}

func TestMerge(t *testing.T) {
	base := logging.Config{Level: "info", Format: "json"}
	base.Merge(&logging.Config{Format: "console"})

	assert.Equal(t, "info", base.Level)
	assert.Equal(t, "console", base.Format)
}

func TestNew(t *testing.T) {
	logger, err := logging.New(&logging.Config{Level: "warn", Format: "console"}, "casse")
	require.NoError(t, err)

	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = logging.New(&logging.Config{Level: "loud", Format: "json"}, "casse")
	assert.Error(t, err)
}
