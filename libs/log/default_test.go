package log_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/plasmacash/plasma/libs/log"
)

func TestNewDefaultLogger(t *testing.T) {
	testCases := map[string]struct {
		format    string
		level     string
		expectErr bool
	}{
		"invalid format": {
			format:    "foo",
			level:     log.LogLevelInfo,
			expectErr: true,
		},
		"invalid level": {
			format:    log.LogFormatJSON,
			level:     "foo",
			expectErr: true,
		},
		"valid format and level": {
			format:    log.LogFormatJSON,
			level:     log.LogLevelInfo,
			expectErr: false,
		},
		"plain format": {
			format:    log.LogFormatPlain,
			level:     log.LogLevelDebug,
			expectErr: false,
		},
	}

	for name, tc := range testCases {
		tc := tc

		t.Run(name, func(t *testing.T) {
			_, err := log.NewDefaultLogger(tc.format, tc.level)
			if tc.expectErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoggerFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := log.NewLogger(&buf, log.LogFormatJSON, log.LogLevelInfo)
	require.NoError(t, err)

	logger.Debug("hidden")
	require.Zero(t, buf.Len())

	logger.With("module", "childchain").Info("block submitted", "height", 1000)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "block submitted", line["message"])
	require.Equal(t, "childchain", line["module"])
	require.EqualValues(t, 1000, line["height"])
}

func TestHexadecimal(t *testing.T) {
	require.Equal(t, "0AFF", log.Hexadecimal([]byte{0x0a, 0xff}).String())
}

func TestOverrideWithNewLogger(t *testing.T) {
	logger := log.NewNopLogger()
	require.NoError(t, log.OverrideWithNewLogger(logger, log.LogFormatJSON, log.LogLevelError))
	require.Error(t, log.OverrideWithNewLogger(logger, "foo", log.LogLevelError))
}
