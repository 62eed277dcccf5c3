package launcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajiv448/XRT/internal/config"
)

func TestFindLibrary(t *testing.T) {
	empty := t.TempDir()
	withLib := t.TempDir()
	lib := filepath.Join(withLib, CaptureLibName)
	require.NoError(t, os.WriteFile(lib, []byte{0x7f}, 0644))

	t.Setenv(libSearchEnv, strings.Join(
		[]string{empty, withLib}, string(os.PathListSeparator)))

	assert.Equal(t, lib, FindLibrary(CaptureLibName))
	assert.Equal(t, "", FindLibrary("libdoesnotexist.so"))
}

func TestFindLibrary_UnsetSearchPath(t *testing.T) {
	t.Setenv(libSearchEnv, "")
	assert.Equal(t, "", FindLibrary(CaptureLibName))
}

func TestPrepareEnv(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, CaptureLibName)
	require.NoError(t, os.WriteFile(lib, []byte{0x7f}, 0644))

	t.Setenv(libSearchEnv, dir)
	t.Setenv(config.EnvAppName, "")
	t.Setenv(config.EnvStartTime, "")
	t.Setenv(config.EnvInstDebug, "")
	t.Setenv(config.EnvPreload, "")

	start := prepareEnv(Options{
		Command:   []string{"myapp", "-x", "42"},
		InstDebug: true,
		Logger:    zerolog.Nop(),
	})

	assert.Equal(t, "myapp -x 42", config.Getenv(config.EnvAppName))
	assert.Equal(t, "TRUE", config.Getenv(config.EnvInstDebug))
	assert.Equal(t, lib, config.Getenv(config.EnvPreload))

	parsed, err := config.ParseStartTime(config.Getenv(config.EnvStartTime))
	require.NoError(t, err)
	assert.Equal(t, start.Unix(), parsed.Unix())
}

func TestPrepareEnv_LibraryMissing(t *testing.T) {
	t.Setenv(libSearchEnv, t.TempDir())
	t.Setenv(config.EnvPreload, "")

	prepareEnv(Options{Command: []string{"myapp"}, Logger: zerolog.Nop()})

	assert.Equal(t, "", config.Getenv(config.EnvPreload))
	assert.Equal(t, "", traceDir(time.Now()))
}
