package rsp

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/planet-s/gdbserver/internal/gdbsig"
	"github.com/planet-s/gdbserver/internal/regs"
	"github.com/planet-s/gdbserver/internal/tracee"
)

// Handler dispatches decoded RSP command strings against one tracee. It
// holds no transport state of its own beyond what a few stateful packet
// families require (thread-list iteration, open vFile descriptors); no-ack
// negotiation is recorded on the Transport passed to Handle.
type Handler struct {
	target         tracee.Target
	threadListDone bool
	files          *vfileTable
}

// NewHandler wraps a tracee for a single RSP connection.
func NewHandler(target tracee.Target) *Handler {
	return &Handler{target: target, files: newVfileTable()}
}

// Handle processes one decoded packet against t's transport (for no-ack
// negotiation) and returns the reply payload and whether the connection
// should close after sending it.
func (h *Handler) Handle(t *Transport, packet string) (reply string, closeConn bool) {
	switch {
	case packet == "":
		return "", false
	case packet == interrupt:
		return haltReply(h.target.Status()), false
	case strings.HasPrefix(packet, "qSupported"):
		return "qXfer:features:read+;qXfer:exec-file:read+;PacketSize=3fff;QStartNoAckMode+", false
	case packet == "QStartNoAckMode":
		t.SetNoAck(true)
		return "OK", false
	case packet == "qAttached":
		return "0", false // this server always creates the tracee, never attaches
	case packet == "?":
		return haltReply(h.target.Status()), false
	case packet == "g":
		return h.readRegisters(), false
	case strings.HasPrefix(packet, "G"):
		return h.writeRegisters(packet[1:]), false
	case strings.HasPrefix(packet, "m"):
		return h.readMemory(packet[1:]), false
	case strings.HasPrefix(packet, "M"):
		return h.writeMemoryHex(packet[1:]), false
	case strings.HasPrefix(packet, "X"):
		return h.writeMemoryBinary(packet[1:]), false
	case packet == "vCont?":
		return "vCont;c;C;s;S;r", false
	case packet == "vCont" || strings.HasPrefix(packet, "vCont;"):
		return h.vCont(packet), false
	case packet == "qfThreadInfo":
		h.threadListDone = false // qfThreadInfo restarts the iteration
		return h.threadInfo(), false
	case packet == "qsThreadInfo":
		return "l", false
	case packet == "Hg0" || strings.HasPrefix(packet, "Hc"):
		return "OK", false
	case strings.HasPrefix(packet, "qXfer:"):
		return h.qXfer(packet), false
	case strings.HasPrefix(packet, "vFile:"):
		return h.files.dispatch(packet[len("vFile:"):]), false
	case strings.HasPrefix(packet, "qRcmd"):
		return "", false
	case packet == "vKill" || strings.HasPrefix(packet, "vKill;"):
		h.target.Close()
		return "OK", true
	default:
		return "", false
	}
}

func haltReply(sr tracee.StopReason) string {
	switch sr.Kind {
	case tracee.Exited:
		return fmt.Sprintf("W%02x", sr.ExitCode)
	case tracee.ExitedWithSignal:
		return fmt.Sprintf("X%02x", sr.GDBSig)
	default:
		return fmt.Sprintf("T%02xthread:%x;", sr.GDBSig, sr.PID)
	}
}

func errReply(err error) string {
	if oe, ok := err.(*tracee.OsError); ok {
		return fmt.Sprintf("E%02x", oe.Errno)
	}
	return "E01"
}

func (h *Handler) readRegisters() string {
	r, err := h.target.GetRegs()
	if err != nil {
		return errReply(err)
	}
	return hex.EncodeToString(regs.Encode(r))
}

func (h *Handler) writeRegisters(hexPayload string) string {
	data, err := hex.DecodeString(hexPayload)
	if err != nil {
		return "E01"
	}
	r, err := regs.Decode(data)
	if err != nil {
		return "E01"
	}
	if err := h.target.SetRegs(r); err != nil {
		return errReply(err)
	}
	return "OK"
}

func (h *Handler) readMemory(args string) string {
	var addr, length uint64
	if _, err := fmt.Sscanf(args, "%x,%x", &addr, &length); err != nil {
		return "E01"
	}
	buf := make([]byte, length)
	if err := h.target.GetMem(addr, buf); err != nil {
		return errReply(err)
	}
	return hex.EncodeToString(buf)
}

func (h *Handler) writeMemoryHex(args string) string {
	parts := strings.SplitN(args, ":", 2)
	if len(parts) != 2 {
		return "E01"
	}
	var addr, length uint64
	if _, err := fmt.Sscanf(parts[0], "%x,%x", &addr, &length); err != nil {
		return "E01"
	}
	data, err := hex.DecodeString(parts[1])
	if err != nil || uint64(len(data)) != length {
		return "E01"
	}
	if err := h.target.SetMem(addr, data); err != nil {
		return errReply(err)
	}
	return "OK"
}

func (h *Handler) writeMemoryBinary(args string) string {
	// The transport has already undone RLE and the '}' escape, so the
	// trailing section is the raw bytes to write verbatim.
	idx := strings.IndexByte(args, ':')
	if idx < 0 {
		return "E01"
	}
	header, data := args[:idx], args[idx+1:]
	var addr, length uint64
	if _, err := fmt.Sscanf(header, "%x,%x", &addr, &length); err != nil {
		return "E01"
	}
	if uint64(len(data)) != length {
		return "E01"
	}
	if err := h.target.SetMem(addr, []byte(data)); err != nil {
		return errReply(err)
	}
	return "OK"
}

type vContAction struct {
	verb   byte
	sig    uint8
	rStart uint64
	rEnd   uint64
	tid    string
}

func (h *Handler) vCont(packet string) string {
	rest := strings.TrimPrefix(packet, "vCont")
	rest = strings.TrimPrefix(rest, ";")
	var actions []vContAction
	for _, tok := range strings.Split(rest, ";") {
		if tok == "" {
			continue
		}
		a := vContAction{verb: tok[0]}
		body := tok[1:]
		if idx := strings.IndexByte(body, ':'); idx >= 0 {
			a.tid = body[idx+1:]
			body = body[:idx]
		}
		switch a.verb {
		case 'C', 'S':
			v, err := strconv.ParseUint(body, 16, 8)
			if err != nil {
				continue
			}
			a.sig = uint8(v)
		case 'r':
			parts := strings.SplitN(body, ",", 2)
			if len(parts) != 2 {
				continue
			}
			start, err1 := strconv.ParseUint(parts[0], 16, 64)
			end, err2 := strconv.ParseUint(parts[1], 16, 64)
			if err1 != nil || err2 != nil {
				continue
			}
			a.rStart, a.rEnd = start, end
		}
		actions = append(actions, a)
	}

	for _, a := range actions {
		if a.tid != "" && !threadMatches(a.tid, h.target.PID()) {
			continue
		}
		h.runAction(a)
		break
	}
	return haltReply(h.target.Status())
}

func threadMatches(tid string, pid uint32) bool {
	tid = strings.TrimPrefix(tid, "p")
	if idx := strings.IndexByte(tid, '.'); idx >= 0 {
		tid = tid[idx+1:]
	}
	if tid == "-1" {
		return true // "all threads" filter
	}
	v, err := strconv.ParseUint(tid, 16, 32)
	if err != nil {
		return true // unparsable filter: don't block progress
	}
	return uint32(v) == pid
}

func (h *Handler) runAction(a vContAction) {
	switch a.verb {
	case 'c':
		h.target.Cont(0)
	case 'C':
		h.target.Cont(nativeSig(a.sig))
	case 's':
		h.target.Step(0)
	case 'S':
		h.target.Step(nativeSig(a.sig))
	case 'r':
		tracee.Resume(h.target, a.rStart, a.rEnd)
	}
}

func nativeSig(gdb uint8) uint8 {
	if native, ok := gdbsig.ToNative(gdb); ok {
		return native
	}
	return gdbsig.Term
}

func (h *Handler) threadInfo() string {
	if h.threadListDone {
		return "l"
	}
	h.threadListDone = true
	return fmt.Sprintf("m%x", h.target.PID())
}

func (h *Handler) qXfer(packet string) string {
	parts := strings.Split(strings.TrimPrefix(packet, "qXfer:"), ":")
	if len(parts) != 4 || parts[1] != "read" {
		return ""
	}
	object, annex, window := parts[0], parts[2], parts[3]

	var offset, length uint64
	if _, err := fmt.Sscanf(window, "%x,%x", &offset, &length); err != nil {
		return ""
	}

	var source []byte
	switch object {
	case "features":
		if annex != "target.xml" {
			return ""
		}
		source = regs.TargetDescXML
	case "exec-file":
		pid := h.target.PID()
		if annex != "" {
			v, err := strconv.ParseUint(annex, 16, 32)
			if err != nil {
				return "E01"
			}
			pid = uint32(v)
		}
		p, err := h.target.Path(pid)
		if err != nil {
			return errReply(err)
		}
		source = p
	default:
		return ""
	}

	if offset >= uint64(len(source)) {
		return "l"
	}
	end := offset + length
	if end > uint64(len(source)) || end < offset { // end < offset catches overflow
		end = uint64(len(source))
	}
	chunk := source[offset:end]
	prefix := "m"
	if end >= uint64(len(source)) {
		prefix = "l"
	}
	return prefix + string(chunk)
}
