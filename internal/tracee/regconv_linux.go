//go:build linux

package tracee

import (
	"syscall"

	"github.com/planet-s/gdbserver/internal/regs"
)

func u64p(v uint64) *uint64 { return &v }
func u32p(v uint32) *uint32 { return &v }

// intFPToRegisters assembles a regs.Registers from the raw ptrace integer
// and floating-point register blocks. Every field is populated except
// Fiseg, Fioff, Foseg and Fooff, which stay absent (nil) and so encode as
// zero.
func intFPToRegisters(raw *syscall.PtraceRegs, fp *fpregs) *regs.Registers {
	r := &regs.Registers{
		Rax: u64p(raw.Rax), Rbx: u64p(raw.Rbx), Rcx: u64p(raw.Rcx), Rdx: u64p(raw.Rdx),
		Rsi: u64p(raw.Rsi), Rdi: u64p(raw.Rdi), Rbp: u64p(raw.Rbp), Rsp: u64p(raw.Rsp),
		R8: u64p(raw.R8), R9: u64p(raw.R9), R10: u64p(raw.R10), R11: u64p(raw.R11),
		R12: u64p(raw.R12), R13: u64p(raw.R13), R14: u64p(raw.R14), R15: u64p(raw.R15),
		Rip: u64p(raw.Rip),

		Eflags: u32p(uint32(raw.Eflags)), Cs: u32p(uint32(raw.Cs)), Ss: u32p(uint32(raw.Ss)),
		Ds: u32p(uint32(raw.Ds)), Es: u32p(uint32(raw.Es)), Fs: u32p(uint32(raw.Fs)), Gs: u32p(uint32(raw.Gs)),

		Fctrl: u32p(uint32(fp.Cwd)), Fstat: u32p(uint32(fp.Swd)), Ftag: u32p(uint32(fp.Ftw)),
		Fop: u32p(uint32(fp.Fop)),

		Mxcsr:  u32p(fp.Mxcsr),
		FsBase: u64p(raw.Fs_base), GsBase: u64p(raw.Gs_base), OrigRax: u64p(raw.Orig_rax),
	}

	st := [8]**[16]byte{&r.St0, &r.St1, &r.St2, &r.St3, &r.St4, &r.St5, &r.St6, &r.St7}
	for i, dst := range st {
		cell := *fp.stReg(i)
		*dst = &cell
	}
	xmm := [16]**[16]byte{
		&r.Xmm0, &r.Xmm1, &r.Xmm2, &r.Xmm3, &r.Xmm4, &r.Xmm5, &r.Xmm6, &r.Xmm7,
		&r.Xmm8, &r.Xmm9, &r.Xmm10, &r.Xmm11, &r.Xmm12, &r.Xmm13, &r.Xmm14, &r.Xmm15,
	}
	for i, dst := range xmm {
		cell := *fp.xmmReg(i)
		*dst = &cell
	}
	return r
}

// overlayRegisters writes every present field of r onto raw/fp, leaving
// absent fields at their current value. This is the merge semantics the
// RSP 'G' (write all registers) operation relies on.
func overlayRegisters(raw *syscall.PtraceRegs, fp *fpregs, r *regs.Registers) {
	if r.Rax != nil {
		raw.Rax = *r.Rax
	}
	if r.Rbx != nil {
		raw.Rbx = *r.Rbx
	}
	if r.Rcx != nil {
		raw.Rcx = *r.Rcx
	}
	if r.Rdx != nil {
		raw.Rdx = *r.Rdx
	}
	if r.Rsi != nil {
		raw.Rsi = *r.Rsi
	}
	if r.Rdi != nil {
		raw.Rdi = *r.Rdi
	}
	if r.Rbp != nil {
		raw.Rbp = *r.Rbp
	}
	if r.Rsp != nil {
		raw.Rsp = *r.Rsp
	}
	if r.R8 != nil {
		raw.R8 = *r.R8
	}
	if r.R9 != nil {
		raw.R9 = *r.R9
	}
	if r.R10 != nil {
		raw.R10 = *r.R10
	}
	if r.R11 != nil {
		raw.R11 = *r.R11
	}
	if r.R12 != nil {
		raw.R12 = *r.R12
	}
	if r.R13 != nil {
		raw.R13 = *r.R13
	}
	if r.R14 != nil {
		raw.R14 = *r.R14
	}
	if r.R15 != nil {
		raw.R15 = *r.R15
	}
	if r.Rip != nil {
		raw.Rip = *r.Rip
	}
	if r.Eflags != nil {
		raw.Eflags = uint64(*r.Eflags)
	}
	if r.Cs != nil {
		raw.Cs = uint64(*r.Cs)
	}
	if r.Ss != nil {
		raw.Ss = uint64(*r.Ss)
	}
	if r.Ds != nil {
		raw.Ds = uint64(*r.Ds)
	}
	if r.Es != nil {
		raw.Es = uint64(*r.Es)
	}
	if r.Fs != nil {
		raw.Fs = uint64(*r.Fs)
	}
	if r.Gs != nil {
		raw.Gs = uint64(*r.Gs)
	}
	if r.FsBase != nil {
		raw.Fs_base = *r.FsBase
	}
	if r.GsBase != nil {
		raw.Gs_base = *r.GsBase
	}
	if r.OrigRax != nil {
		raw.Orig_rax = *r.OrigRax
	}

	if r.Fctrl != nil {
		fp.Cwd = uint16(*r.Fctrl)
	}
	if r.Fstat != nil {
		fp.Swd = uint16(*r.Fstat)
	}
	if r.Ftag != nil {
		fp.Ftw = uint16(*r.Ftag)
	}
	if r.Fop != nil {
		fp.Fop = uint16(*r.Fop)
	}
	if r.Mxcsr != nil {
		fp.Mxcsr = *r.Mxcsr
	}

	st := [8]**[16]byte{&r.St0, &r.St1, &r.St2, &r.St3, &r.St4, &r.St5, &r.St6, &r.St7}
	for i, src := range st {
		if *src != nil {
			*fp.stReg(i) = **src
		}
	}
	xmm := [16]**[16]byte{
		&r.Xmm0, &r.Xmm1, &r.Xmm2, &r.Xmm3, &r.Xmm4, &r.Xmm5, &r.Xmm6, &r.Xmm7,
		&r.Xmm8, &r.Xmm9, &r.Xmm10, &r.Xmm11, &r.Xmm12, &r.Xmm13, &r.Xmm14, &r.Xmm15,
	}
	for i, src := range xmm {
		if *src != nil {
			*fp.xmmReg(i) = **src
		}
	}
}
