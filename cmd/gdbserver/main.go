// Command gdbserver spawns a program under ptrace and serves it to GDB
// over the GDB Remote Serial Protocol.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/planet-s/gdbserver/internal/rsp"
	"github.com/planet-s/gdbserver/internal/tracee"
)

var (
	flagAddr string
	flagType string
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if lvl, err := logrus.ParseLevel(os.Getenv("GDBSERVER_LOG")); err == nil {
		log.SetLevel(lvl)
	}

	root := &cobra.Command{
		Use:   "gdbserver <program> [args...]",
		Short: "Serve a ptraced tracee over the GDB Remote Serial Protocol",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(log.WithField("component", "gdbserver"), args[0], args[1:])
		},
		SilenceUsage: true,
	}
	root.Flags().StringVarP(&flagAddr, "addr", "a", "0.0.0.0:64126", "bind address (tcp/unix) or ignored for stdio")
	root.Flags().StringVarP(&flagType, "type", "t", "tcp", "transport: tcp, unix, or stdio")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(log *logrus.Entry, program string, args []string) error {
	switch flagType {
	case "tcp", "unix", "stdio":
	default:
		return fmt.Errorf("gdbserver: unknown transport %q (want tcp, unix, or stdio)", flagType)
	}

	log.WithFields(logrus.Fields{"program": program, "args": args}).Info("spawning tracee")
	target, err := tracee.New(program, args)
	if err != nil {
		return fmt.Errorf("gdbserver: spawn %q: %w", program, err)
	}
	defer target.Close()

	srv := rsp.NewServer(target, log)
	switch flagType {
	case "tcp":
		return srv.ListenAndServeTCP(flagAddr)
	case "unix":
		return srv.ListenAndServeUnix(flagAddr)
	default:
		return srv.ServeStdio()
	}
}
