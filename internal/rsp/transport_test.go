package rsp

import (
	"net"
	"testing"
	"time"
)

func pipePair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return a, b
}

func TestSendRecvRoundTrip(t *testing.T) {
	client, server := pipePair(t)
	srv := NewTransport(server)
	cli := NewTransport(client)

	go func() {
		pkt, err := srv.RecvPacket()
		if err != nil {
			t.Errorf("server RecvPacket: %v", err)
			return
		}
		if pkt != "qSupported" {
			t.Errorf("server got %q, want qSupported", pkt)
		}
		srv.SendPacket("PacketSize=3fff")
		// drain the client's '+' ack of the reply so its write can complete
		server.Read(make([]byte, 1))
	}()

	if err := cli.SendPacket("qSupported"); err != nil {
		t.Fatalf("client SendPacket: %v", err)
	}

	// consume the ack byte the server writes before its own reply
	buf := make([]byte, 1)
	client.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := client.Read(buf); err != nil {
		t.Fatalf("reading ack: %v", err)
	}
	if buf[0] != '+' {
		t.Fatalf("ack byte = %q, want '+'", buf[0])
	}

	reply, err := cli.RecvPacket()
	if err != nil {
		t.Fatalf("client RecvPacket: %v", err)
	}
	if reply != "PacketSize=3fff" {
		t.Fatalf("reply = %q", reply)
	}
}

func TestDecodeRLENoRun(t *testing.T) {
	if got := decodeRLE("abc"); got != "abc" {
		t.Fatalf("decodeRLE(abc) = %q, want abc", got)
	}
}

func TestDecodeRLEExpandsRun(t *testing.T) {
	// '"' is byte 0x22 = 34; 34-29 = 5 additional repeats of 'a', 6 total.
	got := decodeRLE("a*\"")
	want := "a" + repeat('a', 5)
	if got != want {
		t.Fatalf("decodeRLE(a*\\\") = %q, want %q", got, want)
	}
}

func repeat(b byte, n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return string(out)
}

func TestUnescape(t *testing.T) {
	// '}' followed by 'a'^0x20 puts back the byte that was escaped as 'a'.
	escaped := "x" + string([]byte{'}', 'a' ^ 0x20}) + "y"
	got := unescape(escaped)
	if got != "xay" {
		t.Fatalf("unescape = %q, want %q", got, "xay")
	}
}

func TestChecksumMismatchReturnsError(t *testing.T) {
	client, server := pipePair(t)
	srv := NewTransport(server)

	go func() {
		client.Write([]byte("$qTest#00")) // wrong checksum
		client.Read(make([]byte, 1))      // drain the server's '-' nack
	}()

	if _, err := srv.RecvPacket(); err == nil {
		t.Fatalf("expected checksum error")
	}
}

func TestSendPacketEscapesFramingBytes(t *testing.T) {
	client, server := pipePair(t)
	srv := NewTransport(server)
	cli := NewTransport(client)
	srv.SetNoAck(true)
	cli.SetNoAck(true)

	payload := "a$b#c}d*e"
	go srv.SendPacket(payload)

	got, err := cli.RecvPacket()
	if err != nil {
		t.Fatalf("RecvPacket: %v", err)
	}
	if got != payload {
		t.Fatalf("round trip = %q, want %q", got, payload)
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	for _, payload := range []string{"", "plain text", "a$b#c}d*e", "}}}}"} {
		if got := unescape(escape(payload)); got != payload {
			t.Fatalf("escape/unescape round trip of %q = %q", payload, got)
		}
	}
}

func TestNoAckSuppressesAckByte(t *testing.T) {
	client, server := pipePair(t)
	srv := NewTransport(server)
	srv.SetNoAck(true)

	done := make(chan struct{})
	go func() {
		srv.RecvPacket()
		close(done)
	}()

	client.Write([]byte("$QStartNoAckMode#b0"))

	buf := make([]byte, 1)
	client.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, err := client.Read(buf)
	if err == nil {
		t.Fatalf("expected no ack byte to be written in no-ack mode, got %q", buf)
	}
	<-done
}
