package tracee

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// fpregs mirrors the kernel's struct user_fpregs_struct (the fxsave layout),
// which the stdlib syscall package does not wrap the way it wraps the
// integer register set. st_space and xmm_space are kept as raw byte runs
// rather than [N]uint32 so callers can slice out each 16-byte register cell
// without undoing an array-of-uint32 split first.
type fpregs struct {
	Cwd, Swd, Ftw, Fop uint16
	Rip                uint64
	Rdp                uint64
	Mxcsr              uint32
	MxcrMask           uint32
	StSpace            [128]byte // 8 x87 registers, 16 bytes each (10 meaningful)
	XmmSpace           [256]byte // 16 SSE registers, 16 bytes each
	Padding            [96]byte
}

const (
	ptraceGetFPRegs = 14 // PTRACE_GETFPREGS
	ptraceSetFPRegs = 15 // PTRACE_SETFPREGS
)

// ptraceGetFPRegsRaw and ptraceSetFPRegsRaw issue PTRACE_GETFPREGS/
// PTRACE_SETFPREGS directly through unix.Syscall6: golang.org/x/sys/unix
// wraps the integer register set (PtraceGetRegs/SetRegs) but not the FP
// set, the same gap the stdlib syscall package has.
// unix.Errno and syscall.Errno are distinct named types even though they
// describe the same kernel errno; NewOsError type-asserts on the stdlib
// one, so both raw calls convert before returning.
func ptraceGetFPRegsRaw(pid int, fp *fpregs) error {
	_, _, errno := unix.Syscall6(unix.SYS_PTRACE, uintptr(ptraceGetFPRegs), uintptr(pid), 0, uintptr(unsafe.Pointer(fp)), 0, 0)
	if errno != 0 {
		return syscall.Errno(errno)
	}
	return nil
}

func ptraceSetFPRegsRaw(pid int, fp *fpregs) error {
	_, _, errno := unix.Syscall6(unix.SYS_PTRACE, uintptr(ptraceSetFPRegs), uintptr(pid), 0, uintptr(unsafe.Pointer(fp)), 0, 0)
	if errno != 0 {
		return syscall.Errno(errno)
	}
	return nil
}

// stReg returns the i'th 16-byte x87 register cell.
func (fp *fpregs) stReg(i int) *[16]byte {
	return (*[16]byte)(unsafe.Pointer(&fp.StSpace[i*16]))
}

// xmmReg returns the i'th 16-byte SSE register cell.
func (fp *fpregs) xmmReg(i int) *[16]byte {
	return (*[16]byte)(unsafe.Pointer(&fp.XmmSpace[i*16]))
}
