package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		verbose   bool
		debugging bool
	}{
		{verbose: false, debugging: false},
		{verbose: true, debugging: true},
	}

	for _, tt := range tests {
		logger, err := New(tt.verbose)
		require.NoError(t, err)
		assert.Equal(t, tt.debugging, logger.Core().Enabled(zapcore.DebugLevel))
		assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	}
}
