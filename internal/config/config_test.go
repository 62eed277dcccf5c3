package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvInstDebug, "TRUE")
	t.Setenv(EnvAppName, "my_app")
	t.Setenv(EnvStartTime, "1717171717.000000042")
	t.Setenv(EnvPreload, "/opt/xrt/lib/libxrt_capture.so")

	s, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, s.InstDebug)
	assert.Equal(t, "my_app", s.AppName)
	assert.Equal(t, "/opt/xrt/lib/libxrt_capture.so", s.Preload)
	assert.Equal(t, int64(1717171717), s.StartTime.Unix())
	assert.Equal(t, 42, s.StartTime.Nanosecond())
}

func TestFromEnv_MissingStartTime(t *testing.T) {
	t.Setenv(EnvAppName, "my_app")
	t.Setenv(EnvStartTime, "")

	before := time.Now()
	s, err := FromEnv()
	require.NoError(t, err)

	// Falls back to "now" so tracing still works without the launcher.
	assert.False(t, s.StartTime.Before(before.Truncate(time.Second)))
}

func TestFromEnv_MalformedStartTime(t *testing.T) {
	t.Setenv(EnvStartTime, "not-a-time")

	s, err := FromEnv()
	assert.Error(t, err)
	assert.False(t, s.StartTime.IsZero(), "must still provide a usable start time")
}

func TestParseStartTime(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		sec     int64
		nsec    int
		wantErr bool
	}{
		{name: "full", raw: "1717171717.123456789", sec: 1717171717, nsec: 123456789},
		{name: "seconds only", raw: "1717171717", sec: 1717171717},
		{name: "zero padded", raw: "7.000000001", sec: 7, nsec: 1},
		{name: "empty", raw: "", wantErr: true},
		{name: "bad seconds", raw: "x.5", wantErr: true},
		{name: "bad nanos", raw: "5.y", wantErr: true},
		{name: "nanos overflow", raw: "5.1000000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStartTime(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.sec, got.Unix())
			assert.Equal(t, tt.nsec, got.Nanosecond())
		})
	}
}

func TestFormatStartTime_RoundTrip(t *testing.T) {
	orig := time.Unix(1717171717, 42)
	parsed, err := ParseStartTime(FormatStartTime(orig))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(orig))
}

func TestEnvBoolSpellings(t *testing.T) {
	var s Session

	t.Setenv(EnvInstDebug, "TRUE")
	require.NoError(t, LoadFromEnv(&s))
	assert.True(t, s.InstDebug)

	t.Setenv(EnvInstDebug, "FALSE")
	require.NoError(t, LoadFromEnv(&s))
	assert.False(t, s.InstDebug)
}
