// Package gdbsig translates between Linux/x86_64 signal numbers and GDB's
// portable "enum gdb_signal" numbering used on the wire. The two agree for
// SIGHUP through SIGABRT and for several higher signals, but first diverge
// at SIGBUS (7) and differ for many after it, because gdb_signal predates
// Linux's signal layout, so this is a real table, not an identity map.
package gdbsig

import "syscall"

// Trap and Term are the fallback gdb_signal/native values callers
// substitute on a lookup miss: Trap for a stop context, Term for an exit
// context, matching the reference server's behavior.
const (
	Trap = 5
	Term = uint8(syscall.SIGTERM)
)

// nativeToGDB holds the Linux/x86_64 -> gdb_signal correspondence for every
// signal this server can observe via ptrace/waitpid.
var nativeToGDB = map[uint8]uint8{
	1:  1,  // SIGHUP
	2:  2,  // SIGINT
	3:  3,  // SIGQUIT
	4:  4,  // SIGILL
	5:  5,  // SIGTRAP
	6:  6,  // SIGABRT
	7:  10, // SIGBUS
	8:  8,  // SIGFPE
	9:  9,  // SIGKILL
	10: 30, // SIGUSR1
	11: 11, // SIGSEGV
	12: 31, // SIGUSR2
	13: 13, // SIGPIPE
	14: 14, // SIGALRM
	15: 15, // SIGTERM
	17: 20, // SIGCHLD
	18: 19, // SIGCONT
	19: 17, // SIGSTOP
	20: 18, // SIGTSTP
	21: 21, // SIGTTIN
	22: 22, // SIGTTOU
	23: 16, // SIGURG
	24: 24, // SIGXCPU
	25: 25, // SIGXFSZ
	26: 26, // SIGVTALRM
	27: 27, // SIGPROF
	28: 28, // SIGWINCH
	29: 23, // SIGIO
	30: 32, // SIGPWR
	31: 12, // SIGSYS
}

var gdbToNative = func() map[uint8]uint8 {
	m := make(map[uint8]uint8, len(nativeToGDB))
	for native, gdb := range nativeToGDB {
		m[gdb] = native
	}
	return m
}()

// FromNative looks up the gdb_signal number for a native signal. ok is
// false for signals with no GDB counterpart (e.g. realtime signals); the
// caller is expected to substitute Trap or Term depending on context.
func FromNative(sig uint8) (gdb uint8, ok bool) {
	gdb, ok = nativeToGDB[sig]
	return
}

// ToNative looks up the native signal number for a gdb_signal number.
func ToNative(gdb uint8) (native uint8, ok bool) {
	native, ok = gdbToNative[gdb]
	return
}
