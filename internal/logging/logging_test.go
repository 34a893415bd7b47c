package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFormat_Decode(t *testing.T) {
	tests := []struct {
		in      string
		want    LogFormat
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "text", want: FormatText},
		{in: "JSON", want: FormatJSON},
		{in: " json ", want: FormatJSON},
		{in: "xml", wantErr: true},
	}

	for _, tt := range tests {
		var f LogFormat
		err := f.Decode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, f, tt.in)
	}
}

func TestNewLogger_Formatter(t *testing.T) {
	assert.IsType(t, &logrus.JSONFormatter{}, NewLogger(FormatJSON).Formatter)
	assert.IsType(t, &logrus.TextFormatter{}, NewLogger(FormatText).Formatter)
}

func TestSetLevel(t *testing.T) {
	logger := NewLogger(FormatText)

	require.NoError(t, SetLevel(logger, ""))
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	require.NoError(t, SetLevel(logger, "debug"))
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	assert.Error(t, SetLevel(logger, "loud"))
}
