// Package lzsa1 implements the byte-oriented LZSA1 compression format used
// by the restore stages' embedded 6502 decompressor. The wire format below
// is not an external spec but was traced instruction-by-instruction out of
// the hand-written decompressor this package must stay compatible with
// (see SPEC_FULL.md §4.2) — every bit position and escape threshold here has a
// corresponding branch in that routine.
package lzsa1

import "fmt"

// ErrCompressionOverflow reports an input that cannot be compressed without
// a literal run or match exceeding the single-token length this format can
// encode. The restore pipeline treats it as a hard allocation failure for
// that region, not a retryable condition.
type ErrCompressionOverflow struct {
	Size int
}

func (e ErrCompressionOverflow) Error() string {
	return fmt.Sprintf("lzsa1: input of %d bytes cannot be compressed within the single-token length bound", e.Size)
}

// errTruncatedStream reports a compressed stream that ends before its
// token structure says it should. It only ever surfaces from Decompress,
// used solely for this package's own round-trip self-tests.
type errTruncatedStream struct{}

func (errTruncatedStream) Error() string { return "lzsa1: truncated compressed stream" }

const (
	literalEscapeField = 7  // 3-bit literal-length field value meaning "extended"
	literalEscapeBase  = 7
	matchEscapeField   = 15 // 4-bit match-length field value meaning "extended"
	matchEscapeBase    = 18
	minMatchLen        = 3

	// maxRunLength bounds any single literal run or match length this
	// codec will emit. The wire format can address lengths up to 65535
	// via its three-byte extended form, except for the single value
	// 65280, whose three-byte form would carry a page-count byte of 0, the
	// end-of-stream sentinel; capping one step below that boundary avoids
	// the irregular edge entirely rather than special-casing it.
	maxRunLength = 65279

	offsetWideBit = 0x80
)

// Compress encodes data as an LZSA1 stream terminated by this package's
// end-of-stream sentinel (see emitEOF). The maximum input length matches
// the 64 KiB RAM region this codec ultimately serves.
func Compress(data []byte) ([]byte, error) {
	if len(data) > 65536 {
		return nil, ErrCompressionOverflow{Size: len(data)}
	}
	n := len(data)
	out := make([]byte, 0, n)

	finder := newMatchFinder(data)
	litStart := 0
	pos := 0
	for pos < n {
		length, dist := finder.find(pos)
		if length < minMatchLen {
			finder.insert(pos)
			pos++
			continue
		}
		if pos-litStart > maxRunLength || length > maxRunLength {
			return nil, ErrCompressionOverflow{Size: len(data)}
		}
		var err error
		out, err = appendToken(out, data[litStart:pos], dist, length)
		if err != nil {
			return nil, err
		}
		for k := 0; k < length; k++ {
			finder.insert(pos + k)
		}
		pos += length
		litStart = pos
	}
	if n-litStart > maxRunLength {
		return nil, ErrCompressionOverflow{Size: len(data)}
	}
	return appendEOF(out, data[litStart:n])
}

// appendToken emits one literal-run-plus-match token: O|LLL|MMMM, the
// literal bytes, the backreference offset, and any escaped lengths.
func appendToken(out []byte, lit []byte, dist, matchLen int) ([]byte, error) {
	litField, litExtra := splitLength(len(lit), 6, literalEscapeField, literalEscapeBase)

	var matchField int
	var matchExtra []byte
	if matchLen-minMatchLen <= 14 {
		matchField = matchLen - minMatchLen
	} else {
		matchField = matchEscapeField
		matchExtra = encodeExtended(matchLen, matchEscapeBase)
	}

	wide := dist > 256
	var offset uint16
	if wide {
		offset = uint16(65536 - dist)
	} else {
		offset = uint16(256-dist) & 0xFF // high byte implied $FF by the decompressor
	}

	tok := byte(litField)<<4 | byte(matchField)
	if wide {
		tok |= offsetWideBit
	}
	out = append(out, tok)
	out = append(out, litExtra...)
	out = append(out, lit...)
	out = append(out, byte(offset))
	if wide {
		out = append(out, byte(offset>>8))
	}
	out = append(out, matchExtra...)
	return out, nil
}

// appendEOF emits the final literal run (possibly empty) followed by the
// end-of-stream sentinel: a match-length escape whose page-count byte is
// zero, which the decompressor recognizes as "stop" instead of "continue".
func appendEOF(out []byte, tail []byte) ([]byte, error) {
	litField, litExtra := splitLength(len(tail), 6, literalEscapeField, literalEscapeBase)
	tok := byte(litField) << 4
	tok |= matchEscapeField
	out = append(out, tok)
	out = append(out, litExtra...)
	out = append(out, tail...)
	out = append(out, 0x00)                     // dummy one-byte offset, never read as real data
	out = append(out, byte(256-matchEscapeBase)) // triggers the wrapped==0 escape form
	out = append(out, 0x00)                      // unused remainder byte
	out = append(out, 0x00)                      // page-count byte == 0: the sentinel
	return out, nil
}

// splitLength encodes total as either a direct field value (0..maxDirect)
// or an escape field plus extended bytes, matching the decompressor's
// three-bit/four-bit token fields.
func splitLength(total, maxDirect, escapeField, escapeBase int) (field int, extra []byte) {
	if total <= maxDirect {
		return total, nil
	}
	return escapeField, encodeExtended(total, escapeBase)
}

// encodeExtended writes the continuation bytes the decompressor's
// get_length routine expects after an escaped length field: one byte for
// totals up to 255, or a fixed three-byte form (sentinel, remainder, page
// count) above that. See SPEC_FULL.md §4.2 for the wire format.
func encodeExtended(total, base int) []byte {
	if total <= 255 {
		return []byte{byte(total - base)}
	}
	p := total / 256
	r := total % 256
	if r == 0 {
		return []byte{byte(256 - base), 0, byte(p + 1)}
	}
	return []byte{byte(256 - base), byte(r), byte(p)}
}

// Decompress is the left inverse of Compress, used only by this package's
// own tests and by the restore-codegen tests that check final-image
// equality against a simulated run. It mirrors the embedded 6502 routine's
// control flow exactly, including its self-terminating sentinel.
func Decompress(stream []byte) ([]byte, error) {
	var out []byte
	pos := 0
	readByte := func() (byte, error) {
		if pos >= len(stream) {
			return 0, errTruncatedStream{}
		}
		b := stream[pos]
		pos++
		return b, nil
	}

	for {
		tok, err := readByte()
		if err != nil {
			return nil, err
		}
		wide := tok&offsetWideBit != 0
		litField := int(tok>>4) & 0x07
		matchField := int(tok) & 0x0F

		litLen := litField
		if litField == literalEscapeField {
			n, eof, err := getLength(readByte, literalEscapeBase)
			if err != nil {
				return nil, err
			}
			if eof {
				return out, nil
			}
			litLen = n
		}
		for i := 0; i < litLen; i++ {
			b, err := readByte()
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}

		lo, err := readByte()
		if err != nil {
			return nil, err
		}
		hi := byte(0xFF)
		if wide {
			hi, err = readByte()
			if err != nil {
				return nil, err
			}
		}
		offset := int(hi)<<8 | int(lo)
		dist := 65536 - offset

		matchLen := matchField + minMatchLen
		if matchField == matchEscapeField {
			n, eof, err := getLength(readByte, matchEscapeBase)
			if err != nil {
				return nil, err
			}
			if eof {
				return out, nil
			}
			matchLen = n
		}

		srcPos := len(out) - dist
		if srcPos < 0 {
			return nil, errTruncatedStream{}
		}
		for i := 0; i < matchLen; i++ {
			if srcPos+i >= len(out) {
				return nil, errTruncatedStream{}
			}
			out = append(out, out[srcPos+i])
		}
	}
}

// getLength mirrors the decompressor's get_length subroutine: it reads one
// extended-count byte and, on overflow past 256, two more forming a
// page-count/remainder pair. A page count of zero is the end-of-stream
// sentinel rather than a real length.
func getLength(readByte func() (byte, error), base int) (total int, eof bool, err error) {
	s1, err := readByte()
	if err != nil {
		return 0, false, err
	}
	sum := base + int(s1)
	if sum < 256 {
		return sum, false, nil
	}
	wrapped := sum - 256
	s2, err := readByte()
	if err != nil {
		return 0, false, err
	}
	if wrapped != 0 {
		if s2 != 0 {
			return wrapped*256 + int(s2), false, nil
		}
		return (wrapped - 1) * 256, false, nil
	}
	s3, err := readByte()
	if err != nil {
		return 0, false, err
	}
	if s3 == 0 {
		return 0, true, nil
	}
	if s2 != 0 {
		return int(s3)*256 + int(s2), false, nil
	}
	return (int(s3) - 1) * 256, false, nil
}
