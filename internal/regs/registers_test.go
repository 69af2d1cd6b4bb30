package regs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Registers {
	u64 := func(v uint64) *uint64 { return &v }
	u32 := func(v uint32) *uint32 { return &v }
	cell := func(b byte) *[16]byte {
		var v [16]byte
		for i := range v {
			v[i] = b
		}
		return &v
	}
	return &Registers{
		Rax: u64(0x1122334455667788), Rbx: u64(1), Rcx: u64(2), Rdx: u64(3),
		Rsi: u64(4), Rdi: u64(5), Rbp: u64(6), Rsp: u64(7),
		R8: u64(8), R9: u64(9), R10: u64(10), R11: u64(11),
		R12: u64(12), R13: u64(13), R14: u64(14), R15: u64(15),
		Rip: u64(0xdeadbeef),
		Eflags: u32(0x200), Cs: u32(0x33), Ss: u32(0x2b), Ds: u32(0), Es: u32(0), Fs: u32(0), Gs: u32(0),
		St0: cell(1), St1: cell(2), St2: cell(3), St3: cell(4),
		St4: cell(5), St5: cell(6), St6: cell(7), St7: cell(8),
		Fctrl: u32(0x37f), Fstat: u32(0), Ftag: u32(0xffff), Fiseg: u32(0), Fioff: u32(0), Foseg: u32(0), Fooff: u32(0), Fop: u32(0),
		Xmm0: cell(0xaa), Xmm1: cell(0xbb), Xmm2: cell(0xcc), Xmm3: cell(0xdd),
		Xmm4: cell(1), Xmm5: cell(2), Xmm6: cell(3), Xmm7: cell(4),
		Xmm8: cell(5), Xmm9: cell(6), Xmm10: cell(7), Xmm11: cell(8),
		Xmm12: cell(9), Xmm13: cell(10), Xmm14: cell(11), Xmm15: cell(12),
		Mxcsr:  u32(0x1f80),
		FsBase: u64(0x7f0000000000), GsBase: u64(0),
	}
}

func TestEncodeLength(t *testing.T) {
	enc := Encode(sample())
	assert.Len(t, enc, EncodedLen)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := sample()
	enc := Encode(r)
	back, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, enc, Encode(back), "round trip mismatch")
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	_, err := Decode(make([]byte, EncodedLen-1))
	assert.Error(t, err)
}

func TestEncodeZerosAbsentFields(t *testing.T) {
	r := &Registers{}
	enc := Encode(r)
	for i, b := range enc {
		assert.Equalf(t, byte(0), b, "byte %d should be 0 for an all-absent Registers", i)
	}
}

func TestASCIIRoundTrip(t *testing.T) {
	r := sample()
	s := EncodeASCII(r)
	assert.Len(t, s, EncodedLen*2)
	back, err := DecodeASCII(s)
	require.NoError(t, err)
	assert.Equal(t, s, EncodeASCII(back), "ASCII round trip mismatch")
}

func TestASCIIAbsentFieldsStayNil(t *testing.T) {
	s := EncodeASCII(&Registers{})
	r, err := DecodeASCII(s)
	require.NoError(t, err)
	assert.Nil(t, r.Rax)
	assert.Nil(t, r.Rip)
	assert.Nil(t, r.Xmm0)
}

func TestASCIIDecodeRejectsTrailingBytes(t *testing.T) {
	s := EncodeASCII(sample()) + "ff"
	_, err := DecodeASCII(s)
	assert.Error(t, err)
}
