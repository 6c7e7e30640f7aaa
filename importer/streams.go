// BranchStreamCollection: the per-branch doubly-linked chains over the
// commit list, with branchpoint attachment.  It is the sole owner of
// the Predecessor/Successor/Index fields; every structural edit goes
// through it, and indices are dense and strictly increasing along every
// chain when any of its methods return.

package main

import (
	"github.com/inconshreveable/log15"
)

type BranchStreamCollection struct {
	roots  map[string]*Commit
	heads  map[string]*Commit
	order  []string
	next   int
	log    log15.Logger
}

// NewBranchStreamCollection threads the commit list into per-branch
// chains.  branchpoints maps each non-main branch to the commit it
// departs from; branches absent from the map get roots with no
// predecessor (their history starts unattached, as happens when the
// parent branch was excluded).
func NewBranchStreamCollection(commits commitList, branchpoints map[string]*Commit, log log15.Logger) *BranchStreamCollection {
	bsc := &BranchStreamCollection{
		roots: make(map[string]*Commit),
		heads: make(map[string]*Commit),
		log:   log,
	}
	for i, c := range commits {
		c.Index = i
		c.Successor = nil
		branch := c.Branch()
		if head, ok := bsc.heads[branch]; ok {
			head.Successor = c
			c.Predecessor = head
		} else {
			bsc.roots[branch] = c
			bsc.order = append(bsc.order, branch)
			c.Predecessor = nil
			if bp, ok := branchpoints[branch]; ok && bp != nil {
				c.Predecessor = bp
				bp.AddBranchRoot(c)
			}
		}
		bsc.heads[branch] = c
	}
	bsc.next = len(commits)
	return bsc
}

// Branches lists the branches in order of first appearance.
func (bsc *BranchStreamCollection) Branches() []string {
	return bsc.order
}

func (bsc *BranchStreamCollection) Root(branch string) *Commit {
	return bsc.roots[branch]
}

func (bsc *BranchStreamCollection) Head(branch string) *Commit {
	return bsc.heads[branch]
}

// Commits returns one branch's chain root-to-head.
func (bsc *BranchStreamCollection) Commits(branch string) []*Commit {
	var out []*Commit
	for c := bsc.roots[branch]; c != nil; c = c.Successor {
		out = append(out, c)
	}
	return out
}

// AppendCommit attaches a commit at its branch's head.  A commit on an
// unseen branch starts a new chain.
func (bsc *BranchStreamCollection) AppendCommit(c *Commit) {
	branch := c.Branch()
	c.Index = bsc.next
	bsc.next++
	c.Successor = nil
	if head, ok := bsc.heads[branch]; ok {
		head.Successor = c
		c.Predecessor = head
	} else {
		c.Predecessor = nil
		bsc.roots[branch] = c
		bsc.order = append(bsc.order, branch)
	}
	bsc.heads[branch] = c
}

// MoveCommit shifts a commit forward along its branch so that it sits
// immediately after destination.  The two commits' chain positions and
// those of every commit traversed exchange indices, so indices stay
// dense.  Moving backward is refused.
func (bsc *BranchStreamCollection) MoveCommit(c, destination *Commit) error {
	if c == destination {
		return nil
	}
	if c.Branch() != destination.Branch() {
		return ErrImportFailed.New("move " + c.String() + ": destination " + destination.String() + " on different branch")
	}
	if destination.Index < c.Index {
		return ErrImportFailed.New("move " + c.String() + ": destination " + destination.String() + " precedes it")
	}
	// Remember the index sequence of the window being rotated.
	var window []*Commit
	for walk := c; ; walk = walk.Successor {
		if walk == nil {
			return ErrImportFailed.New("move " + c.String() + ": destination " + destination.String() + " not reachable")
		}
		window = append(window, walk)
		if walk == destination {
			break
		}
	}
	indices := make([]int, len(window))
	for i, w := range window {
		indices[i] = w.Index
	}

	branch := c.Branch()
	// Unlink c.
	if c.Predecessor != nil && c.Predecessor.Successor == c {
		c.Predecessor.Successor = c.Successor
	}
	if bsc.roots[branch] == c {
		newRoot := c.Successor
		bsc.roots[branch] = newRoot
		newRoot.Predecessor = c.Predecessor
		if bp := c.Predecessor; bp != nil {
			bp.ReplaceBranchRoot(c, newRoot)
		}
	} else if c.Successor != nil {
		c.Successor.Predecessor = c.Predecessor
	}
	// Relink after destination.
	c.Successor = destination.Successor
	if destination.Successor != nil {
		destination.Successor.Predecessor = c
	}
	destination.Successor = c
	c.Predecessor = destination
	if bsc.heads[branch] == destination {
		bsc.heads[branch] = c
	}
	// Hand the same index values back out in the rotated order.
	rotated := append(window[1:], window[0])
	for i, w := range rotated {
		w.Index = indices[i]
	}
	return nil
}

// Verify checks the chain invariants: linkage symmetry, strictly
// increasing indices along every chain, and branchpoint bookkeeping.
// Used after structural surgery and heavily in tests.
func (bsc *BranchStreamCollection) Verify() error {
	for _, branch := range bsc.order {
		prevIndex := -1
		for c := bsc.roots[branch]; c != nil; c = c.Successor {
			if c.Index <= prevIndex {
				return ErrImportFailed.New("index not increasing at " + c.String() + " on " + branch)
			}
			prevIndex = c.Index
			if c.Successor != nil && c.Successor.Predecessor != c {
				return ErrImportFailed.New("asymmetric link at " + c.String())
			}
			if c == bsc.roots[branch] && branch != mainBranch && c.Predecessor != nil {
				found := false
				for _, b := range c.Predecessor.Branches {
					if b == c {
						found = true
					}
				}
				if !found {
					return ErrImportFailed.New("branchpoint of " + branch + " does not list its root")
				}
			}
			if c.Successor == nil && bsc.heads[branch] != c {
				return ErrImportFailed.New("head of " + branch + " is stale")
			}
		}
	}
	return nil
}
