/*
 * Progress baton.
 *
 * Interactive runs get a single status line that rewrites itself as
 * phases start, tick and finish; non-interactive runs get nothing, and
 * the log carries the same information instead.
 */

package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	terminal "golang.org/x/crypto/ssh/terminal"
)

const batonInterval = 100 * time.Millisecond // rate-limit repaints

type Baton struct {
	sync.Mutex
	stream     *os.File
	enabled    bool
	phase      string
	count      uint64
	start      time.Time
	lastupdate time.Time
}

// NewBaton writes to stderr when stderr is a terminal; otherwise every
// method is a no-op.
func NewBaton() *Baton {
	b := &Baton{stream: os.Stderr}
	b.enabled = terminal.IsTerminal(int(os.Stderr.Fd()))
	return b
}

func (b *Baton) StartPhase(name string) {
	b.Lock()
	defer b.Unlock()
	b.phase = name
	b.count = 0
	b.start = time.Now()
	b.repaint(true)
}

func (b *Baton) Tick() {
	b.Lock()
	defer b.Unlock()
	b.count++
	b.repaint(false)
}

func (b *Baton) EndPhase() {
	b.Lock()
	defer b.Unlock()
	if !b.enabled {
		return
	}
	elapsed := time.Since(b.start).Round(time.Millisecond)
	fmt.Fprintf(b.stream, "\r\x1b[K%s: %d done in %s\n", b.phase, b.count, elapsed)
	b.phase = ""
}

func (b *Baton) repaint(force bool) {
	if !b.enabled {
		return
	}
	now := time.Now()
	if !force && now.Sub(b.lastupdate) < batonInterval {
		return
	}
	b.lastupdate = now
	fmt.Fprintf(b.stream, "\r\x1b[K%s... %d", b.phase, b.count)
}
