package rsp

import (
	"io"
	"net"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/planet-s/gdbserver/internal/tracee"
)

// Server owns one tracee and drives the transport+handler loop against
// whatever single connection it is handed. Only one GDB connection is
// ever serviced: accepting a second one while the first is live would let
// the two trample the same tracee.
type Server struct {
	target tracee.Target
	log    *logrus.Entry
}

// NewServer wraps a tracee for transport-agnostic serving.
func NewServer(target tracee.Target, log *logrus.Entry) *Server {
	return &Server{target: target, log: log}
}

// Serve runs the packet loop against one connection until it errors, the
// tracee is killed, or GDB closes the stream.
func (s *Server) Serve(conn io.ReadWriter) error {
	t := NewTransport(conn)
	h := NewHandler(s.target)
	defer func() {
		for _, f := range h.files.entries {
			f.Close()
		}
	}()
	for {
		packet, err := t.RecvPacket()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if packet == "" {
			continue
		}
		reply, closeConn := h.Handle(t, packet)
		if err := t.SendPacket(reply); err != nil {
			return err
		}
		if closeConn {
			return nil
		}
	}
}

// ListenAndServeTCP binds addr, accepts exactly one connection, and serves
// it to completion.
func (s *Server) ListenAndServeTCP(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	s.log.WithField("addr", ln.Addr()).Info("listening for gdb over tcp")
	conn, err := ln.Accept()
	if err != nil {
		return err
	}
	defer conn.Close()
	return s.Serve(conn)
}

// ListenAndServeUnix is the unix-domain-socket counterpart of
// ListenAndServeTCP. The socket file is removed first if stale.
func (s *Server) ListenAndServeUnix(path string) error {
	os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return err
	}
	defer ln.Close()
	s.log.WithField("path", path).Info("listening for gdb over a unix socket")
	conn, err := ln.Accept()
	if err != nil {
		return err
	}
	defer conn.Close()
	return s.Serve(conn)
}

// stdioConn adapts os.Stdin/os.Stdout to io.ReadWriter for ServeStdio.
type stdioConn struct {
	io.Reader
	io.Writer
}

// ServeStdio serves GDB directly over the process's standard streams,
// the transport GDB uses when it spawns the stub itself.
func (s *Server) ServeStdio() error {
	s.log.Info("serving gdb over stdio")
	return s.Serve(stdioConn{Reader: os.Stdin, Writer: os.Stdout})
}
