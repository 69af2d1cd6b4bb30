package rsp

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/planet-s/gdbserver/internal/gdbsig"
	"github.com/planet-s/gdbserver/internal/regs"
	"github.com/planet-s/gdbserver/internal/tracee"
)

// fakeTarget is a tiny hermetic stand-in for a ptraced tracee: a 4-byte
// "program" at address 0x1000 that steps cleanly 3 times and exits on the
// 4th step.
type fakeTarget struct {
	pid      uint32
	mem      []byte
	base     uint64
	rip      uint64
	exited   bool
	exitCode uint8
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{pid: 7, mem: []byte{0x90, 0x90, 0x90, 0xcc}, base: 0x1000, rip: 0x1000}
}

func (f *fakeTarget) Status() tracee.StopReason {
	if f.exited {
		return tracee.StopReason{Kind: tracee.Exited, PID: f.pid, ExitCode: f.exitCode}
	}
	return tracee.StopReason{Kind: tracee.Signal, PID: f.pid, GDBSig: gdbsig.Trap}
}

func (f *fakeTarget) PID() uint32 { return f.pid }

func (f *fakeTarget) GetRegs() (*regs.Registers, error) {
	rax := uint64(42)
	rip := f.rip
	return &regs.Registers{Rax: &rax, Rip: &rip}, nil
}

func (f *fakeTarget) SetRegs(r *regs.Registers) error {
	if r.Rip != nil {
		f.rip = *r.Rip
	}
	return nil
}

func (f *fakeTarget) GetMem(addr uint64, dest []byte) error {
	off := addr - f.base
	copy(dest, f.mem[off:])
	return nil
}

func (f *fakeTarget) SetMem(addr uint64, src []byte) error {
	off := addr - f.base
	copy(f.mem[off:], src)
	return nil
}

func (f *fakeTarget) Step(sig uint8) (uint64, bool, error) {
	if f.rip-f.base >= uint64(len(f.mem)-1) {
		f.exited = true
		return 0, false, nil
	}
	f.rip++
	return f.rip, true, nil
}

func (f *fakeTarget) Cont(sig uint8) error {
	for {
		if f.rip-f.base >= uint64(len(f.mem)-1) {
			f.exited = true
			return nil
		}
		f.rip++
	}
}

func (f *fakeTarget) Path(pid uint32) ([]byte, error) { return []byte("/bin/fake"), nil }
func (f *fakeTarget) Close() error                    { return nil }

func TestHaltReasonReportsTrap(t *testing.T) {
	h := NewHandler(newFakeTarget())
	reply, closeConn := h.Handle(nil, "?")
	if closeConn {
		t.Fatalf("unexpected close")
	}
	if !strings.HasPrefix(reply, "T05") {
		t.Fatalf("reply = %q, want prefix T05", reply)
	}
}

func TestReadRegistersReportsRax(t *testing.T) {
	h := NewHandler(newFakeTarget())
	reply, _ := h.Handle(nil, "g")
	data, err := hex.DecodeString(reply)
	if err != nil {
		t.Fatalf("hex decode: %v", err)
	}
	r, err := regs.Decode(data)
	if err != nil {
		t.Fatalf("regs.Decode: %v", err)
	}
	if r.Rax == nil || *r.Rax != 42 {
		t.Fatalf("Rax = %v, want 42", r.Rax)
	}
}

func TestReadMemoryReturnsFirstInstructionByte(t *testing.T) {
	h := NewHandler(newFakeTarget())
	reply, _ := h.Handle(nil, "m1000,1")
	if reply != "90" {
		t.Fatalf("reply = %q, want 90", reply)
	}
}

func TestVContStepAdvancesRip(t *testing.T) {
	ft := newFakeTarget()
	h := NewHandler(ft)

	reply, _ := h.Handle(nil, "vCont;s")
	if !strings.HasPrefix(reply, "T05") {
		t.Fatalf("step reply = %q, want prefix T05", reply)
	}

	regsReply, _ := h.Handle(nil, "g")
	data, _ := hex.DecodeString(regsReply)
	r, _ := regs.Decode(data)
	if *r.Rip != 0x1001 {
		t.Fatalf("Rip = %#x, want %#x", *r.Rip, 0x1001)
	}
}

func TestVContContinueRunsToExit(t *testing.T) {
	h := NewHandler(newFakeTarget())
	reply, _ := h.Handle(nil, "vCont;c")
	if reply != "W00" {
		t.Fatalf("reply = %q, want W00", reply)
	}
}

func TestQXferFeaturesChunking(t *testing.T) {
	h := NewHandler(newFakeTarget())
	full := regs.TargetDescXML

	var got []byte
	offset := 0
	const stride = 64
	for {
		packet := "qXfer:features:read:target.xml:" + hexPair(offset) + "," + hexPair(stride)
		reply, _ := h.Handle(nil, packet)
		if reply == "" {
			t.Fatalf("unexpected empty qXfer reply at offset %d", offset)
		}
		kind, chunk := reply[0], reply[1:]
		got = append(got, chunk...)
		offset += len(chunk)
		if kind == 'l' {
			break
		}
	}
	if string(got) != string(full) {
		t.Fatalf("qXfer chunks did not reassemble to the full target description")
	}
}

func TestQXferFeaturesEOFPastEnd(t *testing.T) {
	h := NewHandler(newFakeTarget())
	packet := "qXfer:features:read:target.xml:" + hexPair(len(regs.TargetDescXML)+1000) + "," + hexPair(16)
	reply, _ := h.Handle(nil, packet)
	if reply != "l" {
		t.Fatalf("reply past end = %q, want bare l", reply)
	}
}

func hexPair(n int) string {
	return strings.ToLower(hex.EncodeToString([]byte{byte(n >> 8), byte(n)}))
}
