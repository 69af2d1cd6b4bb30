package tracee

import (
	"testing"

	"github.com/planet-s/gdbserver/internal/regs"
)

func TestGetMemWords(t *testing.T) {
	source := []byte("testing one two three")
	dest := make([]byte, 9)
	get := func(addr uint64) (uint64, error) {
		var buf [WordSize]byte
		copy(buf[:], source[addr:])
		return getUint64LE(buf[:]), nil
	}
	if err := GetMemWords(3, dest, get); err != nil {
		t.Fatalf("GetMemWords: %v", err)
	}
	if string(dest) != "ting one " {
		t.Fatalf("GetMemWords = %q, want %q", dest, "ting one ")
	}
}

func TestSetMemWords(t *testing.T) {
	source := []byte("testing one two three")
	get := func(addr uint64) (uint64, error) {
		var buf [WordSize]byte
		copy(buf[:], source[addr:])
		return getUint64LE(buf[:]), nil
	}
	set := func(addr uint64, word uint64) error {
		var buf [WordSize]byte
		putUint64LE(buf[:], word)
		copy(source[addr:], buf[:])
		return nil
	}
	if err := SetMemWords([]byte("XXXXXXXXX"), 3, get, set); err != nil {
		t.Fatalf("SetMemWords: %v", err)
	}
	if string(source) != "tesXXXXXXXXXtwo three" {
		t.Fatalf("source = %q, want %q", source, "tesXXXXXXXXXtwo three")
	}
}

func TestResumeStopsOutsideRange(t *testing.T) {
	f := &fakeTarget{rips: []uint64{0x1000, 0x1002, 0x2000}}
	if err := Resume(f, 0x1000, 0x2000); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if f.steps != 3 {
		t.Fatalf("steps = %d, want 3 (stop once rip leaves the range)", f.steps)
	}
}

func TestResumeStopsWhenNotSteppable(t *testing.T) {
	f := &fakeTarget{rips: []uint64{0x1000}, stepFails: true}
	if err := Resume(f, 0x1000, 0x2000); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if f.steps != 1 {
		t.Fatalf("steps = %d, want 1", f.steps)
	}
}

// fakeTarget is a minimal Target used only to drive Resume's loop logic.
type fakeTarget struct {
	rips      []uint64
	steps     int
	stepFails bool
}

func (f *fakeTarget) Status() StopReason                   { return StopReason{} }
func (f *fakeTarget) PID() uint32                          { return 1 }
func (f *fakeTarget) GetRegs() (*regs.Registers, error)    { return nil, nil }
func (f *fakeTarget) SetRegs(r *regs.Registers) error      { return nil }
func (f *fakeTarget) GetMem(addr uint64, dest []byte) error { return nil }
func (f *fakeTarget) SetMem(addr uint64, src []byte) error  { return nil }
func (f *fakeTarget) Step(sig uint8) (uint64, bool, error) {
	rip := f.rips[f.steps]
	f.steps++
	if f.stepFails {
		return 0, false, nil
	}
	return rip, true, nil
}
func (f *fakeTarget) Cont(sig uint8) error            { return nil }
func (f *fakeTarget) Path(pid uint32) ([]byte, error) { return nil, nil }
func (f *fakeTarget) Close() error                    { return nil }
