package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axp21264/trace"
)

func TestLoadAndConvert(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "axpsim.yaml")
	contents := "bcache_lines: 512\nmemory_size: 32MiB\npal_base: 0x20000000\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 512, f.BcacheLines)
	assert.Equal(t, trace.LevelDebug, f.LogLevelOrDefault())

	cfg, err := f.ToCoreConfig()
	require.NoError(t, err)
	assert.Equal(t, uint64(32<<20), cfg.MemorySize)
	assert.Equal(t, 512, cfg.BcacheLines)
}

func TestParseSize(t *testing.T) {
	v, err := ParseSize("64MiB")
	require.NoError(t, err)
	assert.Equal(t, uint64(64<<20), v)

	_, err = ParseSize("bogus")
	assert.Error(t, err)
}
