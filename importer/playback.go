// Playback ordering: the final, import-safe emission sequence.  When a
// commit is yielded its predecessor, its branchpoint and its merge
// source have all been yielded already.

package main

import (
	"github.com/inconshreveable/log15"
)

type playback struct {
	bsc     *BranchStreamCollection
	heads   map[string]*Commit
	emitted map[*Commit]bool
	busy    map[*Commit]bool
	order   []*Commit
	log     log15.Logger
}

// PlaybackOrder flattens the branch streams into the emission sequence:
// the main branch's root first, then repeatedly the earliest pending
// branch head, fast-forwarding merge sources ahead of their
// destinations.
func PlaybackOrder(bsc *BranchStreamCollection, log log15.Logger) ([]*Commit, error) {
	pb := &playback{
		bsc:     bsc,
		heads:   make(map[string]*Commit),
		emitted: make(map[*Commit]bool),
		busy:    make(map[*Commit]bool),
		log:     log,
	}
	for _, branch := range bsc.Branches() {
		pb.heads[branch] = bsc.Root(branch)
	}
	if root := bsc.Root(mainBranch); root != nil {
		if err := pb.emitThrough(root); err != nil {
			return nil, err
		}
	}
	for {
		branch := pb.earliestPending()
		if branch == "" {
			break
		}
		if err := pb.emitThrough(pb.heads[branch]); err != nil {
			return nil, err
		}
	}
	log.Debug("playback order computed", "commits", len(pb.order))
	return pb.order, nil
}

// earliestPending picks the branch whose next commit has the earliest
// time among branches whose dependencies are already emitted.
func (pb *playback) earliestPending() string {
	best := ""
	for _, branch := range pb.bsc.Branches() {
		head := pb.heads[branch]
		if head == nil {
			continue
		}
		if head.Predecessor != nil && !pb.emitted[head.Predecessor] {
			continue
		}
		if best == "" || head.Time().Before(pb.heads[best].Time()) {
			best = branch
		}
	}
	if best == "" {
		// Nothing eligible; fall back to any pending branch so blocked
		// roots still drain their dependency chains.
		for _, branch := range pb.bsc.Branches() {
			if pb.heads[branch] != nil {
				return branch
			}
		}
	}
	return best
}

// emitThrough emits every unemitted commit on c's branch up to and
// including c, pulling in merge sources and branchpoints first.
func (pb *playback) emitThrough(c *Commit) error {
	if pb.emitted[c] {
		return nil
	}
	if pb.busy[c] {
		return ErrImportFailed.New("dependency cycle at commit " + c.CommitID)
	}
	pb.busy[c] = true
	defer delete(pb.busy, c)

	branch := c.Branch()
	for {
		head := pb.heads[branch]
		if head == nil || pb.emitted[c] {
			return nil
		}
		if head.Predecessor != nil && !pb.emitted[head.Predecessor] {
			if err := pb.emitThrough(head.Predecessor); err != nil {
				return err
			}
		}
		if head.MergeFrom != nil && !pb.emitted[head.MergeFrom] {
			if err := pb.emitThrough(head.MergeFrom); err != nil {
				return err
			}
		}
		pb.order = append(pb.order, head)
		pb.emitted[head] = true
		pb.heads[branch] = head.Successor
		if head == c {
			return nil
		}
	}
}
