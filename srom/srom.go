// Package srom reads the boot ROM image the Cbox's BiSI step loads into
// memory before the Ibox takes its first Step (§8 scenario 1). A real
// 21264 board's SROM is a checksummed, striped image; this package
// models the one piece of that format useful to an emulator: a small
// fixed header (magic, entry PC, PAL base) followed by raw instruction
// bytes.
package srom

import (
	"encoding/binary"
	"fmt"
)

// Magic identifies a valid image header.
var Magic = [4]byte{'A', 'X', 'P', '1'}

// HeaderSize is the fixed-size preamble before instruction bytes begin.
const HeaderSize = 24

// Image is a parsed SROM boot image.
type Image struct {
	EntryPC uint64
	PALBase uint64
	Code    []byte
}

// ErrBadMagic is returned by Parse when the image does not start with
// the expected magic bytes.
var ErrBadMagic = fmt.Errorf("srom: bad magic")

// Parse decodes a raw SROM image: 4 bytes magic, 8 bytes entry PC,
// 8 bytes PAL base, 4 bytes code length, then the code itself.
func Parse(raw []byte) (Image, error) {
	var img Image
	if len(raw) < HeaderSize {
		return img, fmt.Errorf("srom: image too short (%d bytes)", len(raw))
	}
	var magic [4]byte
	copy(magic[:], raw[0:4])
	if magic != Magic {
		return img, ErrBadMagic
	}
	img.EntryPC = binary.LittleEndian.Uint64(raw[4:12])
	img.PALBase = binary.LittleEndian.Uint64(raw[12:20])
	codeLen := binary.LittleEndian.Uint32(raw[20:24])
	if int(codeLen) > len(raw)-HeaderSize {
		return img, fmt.Errorf("srom: code length %d exceeds image", codeLen)
	}
	img.Code = raw[HeaderSize : HeaderSize+int(codeLen)]
	return img, nil
}

// Build serializes an Image back to its raw on-disk form, used by
// cmd/axpsim's image-building tooling and by tests.
func Build(img Image) []byte {
	raw := make([]byte, HeaderSize+len(img.Code))
	copy(raw[0:4], Magic[:])
	binary.LittleEndian.PutUint64(raw[4:12], img.EntryPC)
	binary.LittleEndian.PutUint64(raw[12:20], img.PALBase)
	binary.LittleEndian.PutUint32(raw[20:24], uint32(len(img.Code)))
	copy(raw[HeaderSize:], img.Code)
	return raw
}
