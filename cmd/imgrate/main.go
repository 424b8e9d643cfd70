package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
)

var (
	version = "dev"
	commit  = "none"
)

// sessionEndSignals end a rating session with its progress snapshotted.
// SIGHUP arrives when the terminal window is closed.
var sessionEndSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}

func main() {
	root := newRootCmd(DefaultApp())

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version+" ("+commit+")"),
		fang.WithNotifySignal(sessionEndSignals...),
	); err != nil {
		os.Exit(1)
	}
}
