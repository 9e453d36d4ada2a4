package crtbuild

import "github.com/vsfrestore/vsfrestore/internal/restore"

// magicDeskMinBanks and magicDeskMaxBanks bound the bank count spec.md
// requires: at least 8 8 KiB banks regardless of payload size, and never
// more than 64 (the largest bank number a single $DE00 write can select).
const (
	magicDeskMinBanks = 8
	magicDeskMaxBanks = 64
)

// buildMagicDesk packages prog as a Magic Desk cartridge: ROML-only, 8 KiB
// banks bank-switched at $DE00, bank 0 carrying the CBM80 autostart
// signature and a boot trampoline that copies the restore loader into RAM
// before jumping to it. Grounded on crt_builder.rs's header/CHIP layout and
// on make_magic_desk_boot_asm.rs's trampoline, simplified: the real
// trampoline juggles the $01/$00 CPU port across the copy so ROML stays
// readable while the destination page is written, but buildROMLImage's
// loader destination never overlaps the ROML window, so the port never
// needs to move off its boot-time I/O setting. Magic Desk has no temporary
// disable, only $DE00 bit 7's permanent kill, which spliceMagicDeskDisable
// inserts into the boot routine right before it hands off to the loader so the cartridge is gone by the time
// the restored program resumes.
func buildMagicDesk(prog *restore.Program, name string) ([]byte, error) {
	banks := buildROMLImageMagicDesk(prog.Loader, loaderDst)
	if len(banks) < magicDeskMinBanks {
		pad := make([][]byte, magicDeskMinBanks-len(banks))
		for i := range pad {
			pad[i] = make([]byte, bankSize)
		}
		banks = append(banks, pad...)
	}
	if len(banks) > magicDeskMaxBanks {
		return nil, errTooManyBanks(len(banks), magicDeskMaxBanks)
	}

	out := fileHeader(hwMagicDesk, 0, 1, name)
	for i, b := range banks {
		out = append(out, chipPacket(chipTypeROM, uint16(i), romlBase, b)...)
	}
	return out, nil
}
