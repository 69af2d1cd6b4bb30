// Package tracee defines the narrow contract a ptrace back-end must satisfy
// and the bits of it that don't vary between back-ends: the stop-reason
// variant, OS-error wrapping, and the word-chunked memory helpers used by
// both the Linux and Redox implementations.
package tracee

import (
	"fmt"
	"syscall"

	"github.com/planet-s/gdbserver/internal/regs"
)

// WordSize is the native pointer width ptrace PEEK/POKEDATA operate on.
const WordSize = 8

// StopKind tags the variant held by a StopReason.
type StopKind int

const (
	// Exited means the tracee terminated normally.
	Exited StopKind = iota
	// ExitedWithSignal means the tracee was killed by a signal.
	ExitedWithSignal
	// Signal means the tracee is stopped on a tracing event (the usual
	// resting state between commands).
	Signal
)

// StopReason is the wire-visible shape of "what is the tracee doing now".
type StopReason struct {
	Kind     StopKind
	PID      uint32
	ExitCode uint8 // valid when Kind == Exited
	GDBSig   uint8 // valid when Kind == ExitedWithSignal || Kind == Signal
}

// OsError wraps a raw errno surfaced by a ptrace/waitpid/syscall failure.
// The handler turns this into an RSP "E<hh>" reply.
type OsError struct {
	Errno uint8
}

func (e *OsError) Error() string {
	return fmt.Sprintf("os error %d", e.Errno)
}

// NewOsError wraps a syscall failure into the single-byte errno the wire
// format requires. Non-errno errors (should not occur on the syscall path)
// collapse to EIO rather than panicking the handler.
func NewOsError(err error) error {
	if err == nil {
		return nil
	}
	if errno, ok := err.(syscall.Errno); ok {
		return &OsError{Errno: uint8(errno)}
	}
	return &OsError{Errno: uint8(syscall.EIO)}
}

// Target is the contract every OS back-end implements. It is intentionally
// narrow: one tracee, one controlling goroutine, no locking.
type Target interface {
	// Status reports the last observed stop reason without performing any
	// syscall; it must be cheap enough to call on every reply.
	Status() StopReason
	// PID returns the tracee's process id.
	PID() uint32
	// GetRegs reads the full register set from the tracee.
	GetRegs() (*regs.Registers, error)
	// SetRegs overlays the present fields of r onto the tracee's current
	// register values and writes the result back.
	SetRegs(r *regs.Registers) error
	// GetMem reads len(dest) bytes starting at addr into dest.
	GetMem(addr uint64, dest []byte) error
	// SetMem writes src starting at addr.
	SetMem(addr uint64, src []byte) error
	// Step single-steps one instruction, delivering sig (0 for none).
	// ok is true iff the tracee landed on a clean SIGTRAP stop, in which
	// case rip holds the new instruction pointer.
	Step(sig uint8) (rip uint64, ok bool, err error)
	// Cont resumes execution, delivering sig (0 for none), and blocks
	// until the tracee stops or dies again.
	Cont(sig uint8) error
	// Path resolves the executable backing the given pid.
	Path(pid uint32) ([]byte, error)
	// Close releases the tracee (best-effort SIGTERM), idempotent.
	Close() error
}

// Resume performs the default range-step loop shared by every back-end:
// single-step until the instruction pointer leaves [start, end) or the
// tracee stops being steppable. This is how this server emulates GDB's
// vCont;r in the absence of real breakpoints.
func Resume(t Target, start, end uint64) error {
	for {
		rip, ok, err := t.Step(0)
		if err != nil {
			return err
		}
		if !ok || rip < start || rip >= end {
			return nil
		}
	}
}

// getWord reads the native-width word (via get) covering the next chunk of
// dest and copies the relevant bytes into it.
func getWord(get func(addr uint64) (uint64, error), addr uint64, chunk []byte) error {
	word, err := get(addr)
	if err != nil {
		return err
	}
	var buf [WordSize]byte
	putUint64LE(buf[:], word)
	copy(chunk, buf[:len(chunk)])
	return nil
}

// GetMemWords assembles dest by repeatedly calling get for successive
// native words starting at src, truncating the final word to fit. This is
// the back-end-agnostic helper exercised directly by the unit tests in
// §8 of the spec (it is also how the Linux back-end implements GetMem).
func GetMemWords(src uint64, dest []byte, get func(addr uint64) (uint64, error)) error {
	for off := 0; off < len(dest); off += WordSize {
		end := off + WordSize
		if end > len(dest) {
			end = len(dest)
		}
		if err := getWord(get, src+uint64(off), dest[off:end]); err != nil {
			return err
		}
	}
	return nil
}

// SetMemWords writes src to dest by issuing whole-word set calls for every
// full word and a read-modify-write against get/set for the trailing
// partial word (if any), preserving the bytes adjacent to it.
func SetMemWords(src []byte, dest uint64, get func(addr uint64) (uint64, error), set func(addr, word uint64) error) error {
	whole := len(src) / WordSize * WordSize
	off := 0
	addr := dest
	for ; off < whole; off += WordSize {
		word := getUint64LE(src[off : off+WordSize])
		if err := set(addr, word); err != nil {
			return err
		}
		addr += WordSize
	}
	rest := src[whole:]
	if len(rest) == 0 {
		return nil
	}
	word, err := get(addr)
	if err != nil {
		return err
	}
	var buf [WordSize]byte
	putUint64LE(buf[:], word)
	copy(buf[:len(rest)], rest)
	return set(addr, getUint64LE(buf[:]))
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < WordSize; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}

func getUint64LE(b []byte) uint64 {
	var v uint64
	for i := 0; i < WordSize; i++ {
		v |= uint64(b[i]) << (8 * uint(i))
	}
	return v
}
