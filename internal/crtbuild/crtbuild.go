// Package crtbuild packages a generated restore program as a power-on C64
// cartridge image (.crt): a Magic Desk ROM that bank-switches its payload
// into RAM before jumping to it, or an EasyFlash ROM that does the same
// across a ROML+ROMH pair and can additionally intercept the KERNAL LOAD
// vector to serve files straight out of flash. Grounded on
// original_source/src/crt_builder.rs's create_file_header/create_chip_packet
// for the container format and original_source/src/load_save_hook.rs for
// the LOAD-hook trampoline.
package crtbuild

import (
	"fmt"

	"github.com/vsfrestore/vsfrestore/internal/restore"
)

// Kind selects which cartridge hardware type Build targets.
type Kind int

const (
	MagicDesk Kind = iota
	EasyFlash
)

const (
	bankSize = 0x2000
	romlBase = 0x8000
	romhBase = 0xA000

	hwMagicDesk = 0x13
	hwEasyFlash = 0x20

	chipTypeROM   = 0
	chipTypeFlash = 2

	// loaderDst is where the boot trampoline stages the restore loader
	// before jumping to it. Must match restore's loaderOrigin: the loader
	// was assembled expecting to run from exactly this address.
	loaderDst = 0x080D
)

// File is one entry an EasyFlash LOAD-hook serves directly from ROM.
type File struct {
	Name string // PETSCII filename, truncated/padded to 16 bytes in the directory
	Data []byte
}

// Options configures Build. Name is the cartridge title (uppercased,
// truncated to 31 characters). Files and SnapshotSP are EasyFlash-only;
// Magic Desk has no ROMH to hold a directory and ignores them.
type Options struct {
	Kind       Kind
	Name       string
	Files      []File
	SnapshotSP byte
}

// Build packages prog as a .crt image per opts.
func Build(prog *restore.Program, opts Options) ([]byte, error) {
	if len(prog.Loader) == 0 {
		return nil, fmt.Errorf("crtbuild: restore program has no loader code")
	}
	switch opts.Kind {
	case MagicDesk:
		return buildMagicDesk(prog, opts.Name)
	case EasyFlash:
		return buildEasyFlash(prog, opts.Name, opts.Files, opts.SnapshotSP)
	default:
		return nil, fmt.Errorf("crtbuild: unknown cartridge kind %d", opts.Kind)
	}
}

// fileHeader builds the 64-byte CRT file header: signature, header length,
// version, hardware type, EXROM/GAME lines, and the uppercased cartridge
// name padded with zero bytes.
func fileHeader(hwType uint16, exrom, game byte, name string) []byte {
	h := make([]byte, 64)
	copy(h[0:16], "C64 CARTRIDGE   ")
	putBE32(h[16:20], 0x00000040)
	putBE16(h[20:22], 0x0100)
	putBE16(h[22:24], hwType)
	h[24] = exrom
	h[25] = game
	// h[26:32] reserved, left zero.
	name = upper(name)
	if len(name) > 31 {
		name = name[:31]
	}
	copy(h[32:32+len(name)], name)
	return h
}

// chipPacket builds one CHIP record: a 16-byte header followed by data.
func chipPacket(chipType, bank uint16, loadAddr uint16, data []byte) []byte {
	p := make([]byte, 16+len(data))
	copy(p[0:4], "CHIP")
	putBE32(p[4:8], uint32(16+len(data)))
	putBE16(p[8:10], chipType)
	putBE16(p[10:12], bank)
	putBE16(p[12:14], loadAddr)
	putBE16(p[14:16], uint16(len(data)))
	copy(p[16:], data)
	return p
}

func putBE32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func putBE16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

func upper(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func errTooManyBanks(got, max int) error {
	return fmt.Errorf("crtbuild: restore loader needs %d banks, more than the %d this cartridge type supports", got, max)
}

// chunkBanks splits data into bankSize-byte banks, zero-padding the last.
func chunkBanks(data []byte) [][]byte {
	n := (len(data) + bankSize - 1) / bankSize
	if n == 0 {
		n = 1
	}
	banks := make([][]byte, n)
	for i := 0; i < n; i++ {
		b := make([]byte, bankSize)
		start := i * bankSize
		end := start + bankSize
		if end > len(data) {
			end = len(data)
		}
		copy(b, data[start:end])
		banks[i] = b
	}
	return banks
}
