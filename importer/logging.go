// Logging setup: log15 to stderr, optionally teeing everything at
// debug level into a log file, with warnings colourised on terminals.

package main

import (
	"fmt"
	"os"

	"github.com/TwiN/go-color"
	"github.com/inconshreveable/log15"
	terminal "golang.org/x/crypto/ssh/terminal"
)

func setupLogging(debugFile string, verbose bool) (log15.Logger, error) {
	log := log15.New("module", "cvs-import")
	level := log15.LvlInfo
	if verbose {
		level = log15.LvlDebug
	}
	handlers := []log15.Handler{
		log15.LvlFilterHandler(level, log15.StreamHandler(os.Stderr, log15.TerminalFormat())),
	}
	if debugFile != "" {
		fh, err := log15.FileHandler(debugFile, log15.LogfmtFormat())
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, log15.LvlFilterHandler(log15.LvlDebug, fh))
	}
	log.SetHandler(log15.MultiHandler(handlers...))
	return log, nil
}

// warnf prints a user-facing warning, coloured when stderr is a
// terminal.
func warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if terminal.IsTerminal(int(os.Stderr.Fd())) {
		msg = color.InYellow(msg)
	}
	fmt.Fprintln(os.Stderr, msg)
}

// errorf prints a user-facing error, coloured when stderr is a
// terminal.
func errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if terminal.IsTerminal(int(os.Stderr.Fd())) {
		msg = color.InRed(msg)
	}
	fmt.Fprintln(os.Stderr, msg)
}
