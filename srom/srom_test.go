package srom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildParseRoundTrip(t *testing.T) {
	img := Image{EntryPC: 0x20000000, PALBase: 0x20000000, Code: []byte{0xde, 0xad, 0xbe, 0xef}}
	raw := Build(img)

	parsed, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, img.EntryPC, parsed.EntryPC)
	assert.Equal(t, img.PALBase, parsed.PALBase)
	assert.Equal(t, img.Code, parsed.Code)
}

func TestParseRejectsBadMagic(t *testing.T) {
	raw := Build(Image{Code: []byte{1, 2, 3, 4}})
	raw[0] = 'X'
	_, err := Parse(raw)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestParseRejectsShortImage(t *testing.T) {
	_, err := Parse([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestParseRejectsTruncatedCode(t *testing.T) {
	raw := Build(Image{Code: []byte{1, 2, 3, 4}})
	_, err := Parse(raw[:len(raw)-2])
	assert.Error(t, err)
}
