//go:build linux

package tracee

import (
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"syscall"

	"github.com/planet-s/gdbserver/internal/gdbsig"
	"github.com/planet-s/gdbserver/internal/regs"
)

// Linux controls a tracee via ptrace(2). One Linux value owns exactly one
// OS thread for its lifetime, since ptrace attachment is thread-scoped on
// Linux: every call into a *Linux must run on the goroutine that created it.
type Linux struct {
	cmd    *exec.Cmd
	pid    int
	status syscall.WaitStatus
}

var _ Target = (*Linux)(nil)

// New spawns program under ptrace and waits for the initial post-exec trap.
// The calling goroutine is locked to its OS thread for the lifetime of the
// process: every other method must be called from the same goroutine.
func New(program string, args []string) (*Linux, error) {
	runtime.LockOSThread()

	cmd := exec.Command(program, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("tracee: start %q: %w", program, err)
	}

	pid := cmd.Process.Pid
	var ws syscall.WaitStatus
	if _, err := syscall.Wait4(pid, &ws, 0, nil); err != nil {
		return nil, NewOsError(err)
	}

	return &Linux{cmd: cmd, pid: pid, status: ws}, nil
}

func (l *Linux) Status() StopReason {
	switch {
	case l.status.Exited():
		return StopReason{Kind: Exited, PID: uint32(l.pid), ExitCode: uint8(l.status.ExitStatus())}
	case l.status.Signaled():
		sig, ok := gdbsig.FromNative(uint8(l.status.Signal()))
		if !ok {
			sig = gdbsig.Term
		}
		return StopReason{Kind: ExitedWithSignal, PID: uint32(l.pid), GDBSig: sig}
	case l.status.Stopped():
		sig, ok := gdbsig.FromNative(uint8(l.status.StopSignal()))
		if !ok {
			sig = gdbsig.Trap
		}
		return StopReason{Kind: Signal, PID: uint32(l.pid), GDBSig: sig}
	default:
		panic(fmt.Sprintf("tracee: unimplemented wait status %#x", uint32(l.status)))
	}
}

func (l *Linux) PID() uint32 { return uint32(l.pid) }

func (l *Linux) GetRegs() (*regs.Registers, error) {
	var raw syscall.PtraceRegs
	if err := syscall.PtraceGetRegs(l.pid, &raw); err != nil {
		return nil, NewOsError(err)
	}
	var fp fpregs
	if err := ptraceGetFPRegsRaw(l.pid, &fp); err != nil {
		return nil, NewOsError(err)
	}
	return intFPToRegisters(&raw, &fp), nil
}

func (l *Linux) SetRegs(r *regs.Registers) error {
	var raw syscall.PtraceRegs
	if err := syscall.PtraceGetRegs(l.pid, &raw); err != nil {
		return NewOsError(err)
	}
	var fp fpregs
	if err := ptraceGetFPRegsRaw(l.pid, &fp); err != nil {
		return NewOsError(err)
	}
	overlayRegisters(&raw, &fp, r)
	if err := syscall.PtraceSetRegs(l.pid, &raw); err != nil {
		return NewOsError(err)
	}
	if err := ptraceSetFPRegsRaw(l.pid, &fp); err != nil {
		return NewOsError(err)
	}
	return nil
}

func (l *Linux) peekWord(addr uint64) (uint64, error) {
	var buf [WordSize]byte
	if _, err := syscall.PtracePeekData(l.pid, uintptr(addr), buf[:]); err != nil {
		return 0, NewOsError(err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (l *Linux) pokeWord(addr uint64, word uint64) error {
	var buf [WordSize]byte
	binary.LittleEndian.PutUint64(buf[:], word)
	if _, err := syscall.PtracePokeData(l.pid, uintptr(addr), buf[:]); err != nil {
		return NewOsError(err)
	}
	return nil
}

func (l *Linux) GetMem(addr uint64, dest []byte) error {
	return GetMemWords(addr, dest, l.peekWord)
}

func (l *Linux) SetMem(addr uint64, src []byte) error {
	return SetMemWords(src, addr, l.peekWord, l.pokeWord)
}

const ptraceSingleStep = 9

func (l *Linux) singleStep(sig uint8) error {
	_, _, errno := syscall.Syscall6(syscall.SYS_PTRACE, uintptr(ptraceSingleStep), uintptr(l.pid), 0, uintptr(sig), 0, 0)
	if errno != 0 {
		return NewOsError(errno)
	}
	return nil
}

func (l *Linux) wait() error {
	var ws syscall.WaitStatus
	if _, err := syscall.Wait4(l.pid, &ws, 0, nil); err != nil {
		return NewOsError(err)
	}
	l.status = ws
	return nil
}

func (l *Linux) Step(sig uint8) (uint64, bool, error) {
	if err := l.singleStep(sig); err != nil {
		return 0, false, err
	}
	if err := l.wait(); err != nil {
		return 0, false, err
	}
	if !l.status.Stopped() || l.status.StopSignal() != syscall.SIGTRAP {
		return 0, false, nil
	}
	r, err := l.GetRegs()
	if err != nil {
		return 0, false, err
	}
	if r.Rip == nil {
		return 0, false, nil
	}
	return *r.Rip, true, nil
}

func (l *Linux) Cont(sig uint8) error {
	if err := syscall.PtraceCont(l.pid, int(sig)); err != nil {
		return NewOsError(err)
	}
	return l.wait()
}

func (l *Linux) Path(pid uint32) ([]byte, error) {
	target, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return nil, NewOsError(err)
	}
	return []byte(target), nil
}

func (l *Linux) Close() error {
	if err := syscall.Kill(l.pid, syscall.SIGTERM); err != nil && err != syscall.ESRCH {
		return NewOsError(err)
	}
	return nil
}
