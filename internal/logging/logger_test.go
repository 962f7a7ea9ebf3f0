package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/mailsift/mailsift/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("info"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}

func TestInitLoggerHonorsConfiguredLevel(t *testing.T) {
	v := config.NewEmptyViper()
	v.Set("logging.level", "warn")
	v.Set("logging.format", "json")

	logger, err := InitLogger(config.NewFromViper(v))
	require.NoError(t, err)
	defer logger.Sync()

	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestInitConsoleLoggerVerbose(t *testing.T) {
	logger, err := InitConsoleLogger(true, true)
	require.NoError(t, err)
	defer logger.Sync()
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	quiet, err := InitConsoleLogger(false, true)
	require.NoError(t, err)
	defer quiet.Sync()
	assert.False(t, quiet.Core().Enabled(zapcore.DebugLevel))
}
