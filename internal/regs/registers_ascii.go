package regs

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// EncodeASCII renders the legacy hex-pair-per-byte codec used by direct
// 'g'/'G' packet handling before the RSP framing library took over hex
// conversion for the binary path. Absent fields render as "xx" pairs,
// matching upstream GDB stub convention. This is not the path this server
// exercises against GDB (see Handler), but it round-trips identically to
// the binary codec and is kept, and tested, for completeness.
func EncodeASCII(r *Registers) string {
	var sb strings.Builder
	sb.Grow(EncodedLen * 2)
	for _, f := range layout {
		b := f.get(r)
		if b == nil {
			sb.WriteString(strings.Repeat("xx", f.size))
			continue
		}
		sb.WriteString(hex.EncodeToString(b))
	}
	return sb.String()
}

// DecodeASCII parses the legacy hex codec, leaving a field absent (nil)
// wherever the input holds an "xx" placeholder instead of hex digits.
func DecodeASCII(s string) (*Registers, error) {
	r := &Registers{}
	pos := 0
	for _, f := range layout {
		n := f.size * 2
		if pos+n > len(s) {
			return nil, fmt.Errorf("regs: ascii decode ran out of input at byte %d", pos/2)
		}
		chunk := s[pos : pos+n]
		pos += n
		if strings.Trim(chunk, "x") == "" {
			continue // absent: leave the pointer nil
		}
		b, err := hex.DecodeString(chunk)
		if err != nil {
			return nil, fmt.Errorf("regs: ascii decode: %w", err)
		}
		f.set(r, b)
	}
	if pos != len(s) {
		return nil, fmt.Errorf("regs: ascii decode: %d trailing bytes", len(s)-pos)
	}
	return r, nil
}
