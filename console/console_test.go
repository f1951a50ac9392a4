package console

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axp21264/cpu"
	"axp21264/trace"
)

func testLogger() *trace.Logger { return trace.New(io.Discard, trace.LevelError) }

func TestPanelsRenderWithoutPanicking(t *testing.T) {
	cfg := cpu.DefaultConfig()
	cfg.BcacheLines = 4
	cfg.DcacheLines = 4
	cfg.MemorySize = 1 << 12
	core := cpu.New(cfg, testLogger())
	require.NoError(t, core.Boot(nil))

	m := model{core: core}
	assert.NotEmpty(t, m.registerPanel())
	assert.NotEmpty(t, m.statusPanel())
	assert.NotEmpty(t, m.View())
}
