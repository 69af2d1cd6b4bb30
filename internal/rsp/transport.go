// Package rsp implements the GDB Remote Serial Protocol: packet framing
// (this file), the operation dispatcher (handler.go), and the vFile
// filesystem pass-through (vfile.go).
//
// Some documentation:
// https://sourceware.org/gdb/onlinedocs/gdb/Remote-Protocol.html
// https://sourceware.org/gdb/onlinedocs/gdb/Packets.html
// https://www.embecosm.com/appnotes/ean4/embecosm-howto-rsp-server-ean4-issue-2.html
package rsp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// interrupt is the sentinel RecvPacket returns for a bare Ctrl-C (0x03),
// which GDB sends out-of-band to ask the target to stop without a normal
// packet wrapper.
const interrupt = "\x03"

// Transport frames RSP packets over an arbitrary byte stream (TCP, a unix
// socket, or stdio). It owns ack/nack handshaking and the two payload
// transforms GDB uses on the wire: run-length encoding and the binary
// '}'-escape used by 'X' packets.
type Transport struct {
	rw    *bufio.ReadWriter
	noAck bool
}

// NewTransport wraps an arbitrary stream connection.
func NewTransport(conn io.ReadWriter) *Transport {
	return &Transport{rw: bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))}
}

// SetNoAck disables the leading '+' ack GDB expects before QStartNoAckMode
// has been negotiated; calling it reflects the handler having replied OK
// to that request.
func (t *Transport) SetNoAck(v bool) { t.noAck = v }

// RecvPacket reads one full packet payload (RLE and escapes already
// undone), verifies its checksum, and ack's it. An empty ("") return means
// the connection sent a packet with no payload (distinct from EOF, which
// is returned as an error); interrupt is returned verbatim for a bare
// Ctrl-C.
func (t *Transport) RecvPacket() (string, error) {
	for {
		c, err := t.rw.ReadByte()
		if err != nil {
			return "", err
		}
		switch c {
		case '$':
			return t.readFramed()
		case 0x03:
			return interrupt, nil
		case '+', '-':
			// Stray ack/nack outside a packet; GDB shouldn't send these
			// unprompted, but skip rather than desync on one.
		}
	}
}

func (t *Transport) readFramed() (string, error) {
	raw, err := t.rw.ReadString('#')
	if err != nil {
		return "", err
	}
	raw = raw[:len(raw)-1] // drop trailing '#'

	var cs [2]byte
	if _, err := io.ReadFull(t.rw, cs[:]); err != nil {
		return "", err
	}

	want := fmt.Sprintf("%02x", checksum([]byte(raw)))
	if string(cs[:]) != want {
		if !t.noAck {
			t.rw.WriteByte('-')
			t.rw.Flush()
		}
		return "", errors.New("rsp: checksum mismatch")
	}

	if !t.noAck {
		t.rw.WriteByte('+')
		t.rw.Flush()
	}

	payload := unescape(decodeRLE(raw))
	return payload, nil
}

// SendPacket frames and writes one reply payload, escaping any of the
// framing-significant bytes ('$', '#', '}', '*') the payload happens to
// carry (vFile reads and qXfer chunks can contain arbitrary binary data).
func (t *Transport) SendPacket(payload string) error {
	wire := escape(payload)
	if _, err := fmt.Fprintf(t.rw, "$%s#%02x", wire, checksum([]byte(wire))); err != nil {
		return err
	}
	return t.rw.Flush()
}

func checksum(msg []byte) uint8 {
	var sum uint8
	for _, c := range msg {
		sum += c
	}
	return sum
}

// decodeRLE expands GDB's run-length encoding: "<char>*<n>" repeats <char>
// (n - 29) additional times, where n is the raw byte following '*'.
func decodeRLE(s string) string {
	if !containsByte(s, '*') {
		return s
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '*' && i+1 < len(s) && len(out) > 0 {
			n := int(s[i+1]) - 29
			i++
			last := out[len(out)-1]
			for j := 0; j < n; j++ {
				out = append(out, last)
			}
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

// unescape undoes the '}' binary escape: '}' followed by byte b stands for
// b ^ 0x20. Used by 'X' (binary memory write) payloads.
func unescape(s string) string {
	if !containsByte(s, '}') {
		return s
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '}' && i+1 < len(s) {
			out = append(out, s[i+1]^0x20)
			i++
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

// escape applies the '}' binary escape to every occurrence of the four
// framing-significant bytes, the inverse of unescape: each becomes '}'
// followed by byte^0x20. RLE is a receive-side-only relief (this server
// never emits it), so only the escape transform is needed on send.
func escape(s string) string {
	var special bool
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '$', '#', '}', '*':
			special = true
		}
	}
	if !special {
		return s
	}
	out := make([]byte, 0, len(s)+8)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '$', '#', '}', '*':
			out = append(out, '}', s[i]^0x20)
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}
