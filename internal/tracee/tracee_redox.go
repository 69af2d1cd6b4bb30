//go:build gdbserver_redox

// This file is gated behind a build tag that no ordinary `go build` ever
// sets (Go has no GOOS=redox). It exists as a structural port of the
// reference Redox back-end: Redox's tracing primitives (clone, the
// proc:<pid>/exe scheme, syscall::Error-based IntRegisters/FloatRegisters)
// have no Go binding, so every method that would reach the OS returns an
// error rather than pretending to call syscalls that don't exist on any
// GOOS Go targets; Status and PID only report the stored fields.
package tracee

import (
	"errors"

	"github.com/planet-s/gdbserver/internal/regs"
)

var errRedoxUnsupported = errors.New("tracee: redox back-end has no Go syscall binding on this toolchain")

// Redox mirrors the shape of the reference Redox tracer: a pid, the last
// wait status, and what would be a handle to Redox's strace::Tracer. Every
// operation the real back-end performs through syscall::ptrace-equivalents
// (clone, kill, a tracer's regs/mem handles) is unavailable from Go, so
// this type only documents the mapping; it never runs.
type Redox struct {
	pid    uint32
	status uint
}

var _ Target = (*Redox)(nil)

// NewRedox would clone+fexec under Redox's strace tracer the way
// redox.rs's Target::new does: fork, raise SIGSTOP in the child before
// fexec, then step the parent past the post-fexec stop.
func NewRedox(program string, args []string) (*Redox, error) {
	return nil, errRedoxUnsupported
}

func (r *Redox) Status() StopReason { return StopReason{Kind: Exited, PID: r.pid} }
func (r *Redox) PID() uint32        { return r.pid }

func (r *Redox) GetRegs() (*regs.Registers, error)     { return nil, errRedoxUnsupported }
func (r *Redox) SetRegs(reg *regs.Registers) error     { return errRedoxUnsupported }
func (r *Redox) GetMem(addr uint64, dest []byte) error { return errRedoxUnsupported }
func (r *Redox) SetMem(addr uint64, src []byte) error  { return errRedoxUnsupported }

// Step would single-step via Flags::STOP_SINGLESTEP and report the
// resulting rip; Cont via a flagless Tracer.next. Both funnel through the
// same "next" helper in the reference implementation that folds the
// ESRCH-means-exited case into a status update rather than an error.
func (r *Redox) Step(sig uint8) (uint64, bool, error) { return 0, false, errRedoxUnsupported }
func (r *Redox) Cont(sig uint8) error                 { return errRedoxUnsupported }

// Path would read proc:<pid>/exe and strip the "file:" scheme prefix so
// GDB doesn't mistake the path for a URL.
func (r *Redox) Path(pid uint32) ([]byte, error) { return nil, errRedoxUnsupported }

func (r *Redox) Close() error { return errRedoxUnsupported }
