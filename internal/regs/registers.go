// Package regs implements the x86_64 register codec exchanged with GDB:
// the fixed-layout binary encoding of the integer, segment, x87 and SSE
// register file matching gdb/regformats/i386/amd64-linux.dat, plus a
// legacy ASCII-hex variant kept for completeness.
package regs

import (
	"encoding/binary"
	"fmt"
)

// EncodedLen is the exact byte length of a binary-encoded register block.
// Decode requires exactly this many bytes; Encode always produces exactly
// this many.
const EncodedLen = 17*8 + 7*4 + 8*10 + 8*4 + 16*16 + 4 + 2*8

// u80 carries an x87 80-bit extended-precision value in a 128-bit cell;
// only the low 10 bytes are meaningful and the top 6 must stay zero.
type u80 = [16]byte

// u128 carries one XMM register.
type u128 = [16]byte

// Registers is a flat aggregate of optional register slots. A nil pointer
// means "absent from the input" on decode, and is written as zero bytes
// on encode.
type Registers struct {
	Rax, Rbx, Rcx, Rdx, Rsi, Rdi, Rbp, Rsp *uint64
	R8, R9, R10, R11, R12, R13, R14, R15   *uint64
	Rip                                    *uint64

	Eflags, Cs, Ss, Ds, Es, Fs, Gs *uint32

	St0, St1, St2, St3, St4, St5, St6, St7 *u80

	Fctrl, Fstat, Ftag, Fiseg, Fioff, Foseg, Fooff, Fop *uint32

	Xmm0, Xmm1, Xmm2, Xmm3   *u128
	Xmm4, Xmm5, Xmm6, Xmm7   *u128
	Xmm8, Xmm9, Xmm10, Xmm11 *u128
	Xmm12, Xmm13, Xmm14, Xmm15 *u128

	Mxcsr *uint32

	FsBase, GsBase, OrigRax *uint64
}

func u64p(v uint64) *uint64 { return &v }
func u32p(v uint32) *uint32 { return &v }

// field describes one slot of the wire layout in encode/decode order.
type field struct {
	size int // 4, 8, 10 or 16 bytes on the wire
	get  func(*Registers) []byte
	set  func(*Registers, []byte)
}

func u64Field(size int, ptr func(*Registers) **uint64) field {
	return field{
		size: size,
		get: func(r *Registers) []byte {
			p := *ptr(r)
			if p == nil {
				return nil
			}
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], *p)
			return b[:]
		},
		set: func(r *Registers, b []byte) {
			*ptr(r) = u64p(binary.LittleEndian.Uint64(pad(b, 8)))
		},
	}
}

func u32Field(ptr func(*Registers) **uint32) field {
	return field{
		size: 4,
		get: func(r *Registers) []byte {
			p := *ptr(r)
			if p == nil {
				return nil
			}
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], *p)
			return b[:]
		},
		set: func(r *Registers, b []byte) {
			*ptr(r) = u32p(binary.LittleEndian.Uint32(pad(b, 4)))
		},
	}
}

func u80Field(ptr func(*Registers) **u80) field {
	return field{
		size: 10,
		get: func(r *Registers) []byte {
			p := *ptr(r)
			if p == nil {
				return nil
			}
			return p[:10]
		},
		set: func(r *Registers, b []byte) {
			var v u80
			copy(v[:10], b)
			*ptr(r) = &v
		},
	}
}

func u128Field(ptr func(*Registers) **u128) field {
	return field{
		size: 16,
		get: func(r *Registers) []byte {
			p := *ptr(r)
			if p == nil {
				return nil
			}
			return p[:]
		},
		set: func(r *Registers, b []byte) {
			var v u128
			copy(v[:], b)
			*ptr(r) = &v
		},
	}
}

func pad(b []byte, n int) []byte {
	if len(b) >= n {
		return b
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// layout lists every wire field in exact encode/decode order. This is the
// single source of truth for both codecs below.
var layout = []field{
	u64Field(8, func(r *Registers) **uint64 { return &r.Rax }),
	u64Field(8, func(r *Registers) **uint64 { return &r.Rbx }),
	u64Field(8, func(r *Registers) **uint64 { return &r.Rcx }),
	u64Field(8, func(r *Registers) **uint64 { return &r.Rdx }),
	u64Field(8, func(r *Registers) **uint64 { return &r.Rsi }),
	u64Field(8, func(r *Registers) **uint64 { return &r.Rdi }),
	u64Field(8, func(r *Registers) **uint64 { return &r.Rbp }),
	u64Field(8, func(r *Registers) **uint64 { return &r.Rsp }),
	u64Field(8, func(r *Registers) **uint64 { return &r.R8 }),
	u64Field(8, func(r *Registers) **uint64 { return &r.R9 }),
	u64Field(8, func(r *Registers) **uint64 { return &r.R10 }),
	u64Field(8, func(r *Registers) **uint64 { return &r.R11 }),
	u64Field(8, func(r *Registers) **uint64 { return &r.R12 }),
	u64Field(8, func(r *Registers) **uint64 { return &r.R13 }),
	u64Field(8, func(r *Registers) **uint64 { return &r.R14 }),
	u64Field(8, func(r *Registers) **uint64 { return &r.R15 }),
	u64Field(8, func(r *Registers) **uint64 { return &r.Rip }),

	u32Field(func(r *Registers) **uint32 { return &r.Eflags }),
	u32Field(func(r *Registers) **uint32 { return &r.Cs }),
	u32Field(func(r *Registers) **uint32 { return &r.Ss }),
	u32Field(func(r *Registers) **uint32 { return &r.Ds }),
	u32Field(func(r *Registers) **uint32 { return &r.Es }),
	u32Field(func(r *Registers) **uint32 { return &r.Fs }),
	u32Field(func(r *Registers) **uint32 { return &r.Gs }),

	u80Field(func(r *Registers) **u80 { return &r.St0 }),
	u80Field(func(r *Registers) **u80 { return &r.St1 }),
	u80Field(func(r *Registers) **u80 { return &r.St2 }),
	u80Field(func(r *Registers) **u80 { return &r.St3 }),
	u80Field(func(r *Registers) **u80 { return &r.St4 }),
	u80Field(func(r *Registers) **u80 { return &r.St5 }),
	u80Field(func(r *Registers) **u80 { return &r.St6 }),
	u80Field(func(r *Registers) **u80 { return &r.St7 }),

	u32Field(func(r *Registers) **uint32 { return &r.Fctrl }),
	u32Field(func(r *Registers) **uint32 { return &r.Fstat }),
	u32Field(func(r *Registers) **uint32 { return &r.Ftag }),
	u32Field(func(r *Registers) **uint32 { return &r.Fiseg }),
	u32Field(func(r *Registers) **uint32 { return &r.Fioff }),
	u32Field(func(r *Registers) **uint32 { return &r.Foseg }),
	u32Field(func(r *Registers) **uint32 { return &r.Fooff }),
	u32Field(func(r *Registers) **uint32 { return &r.Fop }),

	u128Field(func(r *Registers) **u128 { return &r.Xmm0 }),
	u128Field(func(r *Registers) **u128 { return &r.Xmm1 }),
	u128Field(func(r *Registers) **u128 { return &r.Xmm2 }),
	u128Field(func(r *Registers) **u128 { return &r.Xmm3 }),
	u128Field(func(r *Registers) **u128 { return &r.Xmm4 }),
	u128Field(func(r *Registers) **u128 { return &r.Xmm5 }),
	u128Field(func(r *Registers) **u128 { return &r.Xmm6 }),
	u128Field(func(r *Registers) **u128 { return &r.Xmm7 }),
	u128Field(func(r *Registers) **u128 { return &r.Xmm8 }),
	u128Field(func(r *Registers) **u128 { return &r.Xmm9 }),
	u128Field(func(r *Registers) **u128 { return &r.Xmm10 }),
	u128Field(func(r *Registers) **u128 { return &r.Xmm11 }),
	u128Field(func(r *Registers) **u128 { return &r.Xmm12 }),
	u128Field(func(r *Registers) **u128 { return &r.Xmm13 }),
	u128Field(func(r *Registers) **u128 { return &r.Xmm14 }),
	u128Field(func(r *Registers) **u128 { return &r.Xmm15 }),

	u32Field(func(r *Registers) **uint32 { return &r.Mxcsr }),

	u64Field(8, func(r *Registers) **uint64 { return &r.FsBase }),
	u64Field(8, func(r *Registers) **uint64 { return &r.GsBase }),
}

// Encode writes the canonical binary wire representation: EncodedLen bytes,
// absent fields written as zero.
func Encode(r *Registers) []byte {
	out := make([]byte, 0, EncodedLen)
	for _, f := range layout {
		b := f.get(r)
		if b == nil {
			b = make([]byte, f.size)
		}
		out = append(out, b...)
	}
	return out
}

// Decode reads exactly EncodedLen bytes and returns a Registers with every
// wire field present, since binary decode never has an "absent" marker —
// that's only meaningful for the ASCII codec. OrigRax is not on the wire
// and stays nil.
func Decode(data []byte) (*Registers, error) {
	if len(data) != EncodedLen {
		return nil, fmt.Errorf("regs: decode needs exactly %d bytes, got %d", EncodedLen, len(data))
	}
	r := &Registers{}
	off := 0
	for _, f := range layout {
		f.set(r, data[off:off+f.size])
		off += f.size
	}
	return r, nil
}
