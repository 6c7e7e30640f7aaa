// Commit: an ordered bag of FileRevisions sharing an identity, plus the
// link fields that turn the flat commit list into a DAG.  Once the
// streams are built, the predecessor/successor links and the index are
// owned by BranchStreamCollection; MergeFrom is set afterwards by the
// merge resolver and the head-only overlay.

package main

import (
	"fmt"
	"strings"
	"time"
)

type Commit struct {
	// CommitID is the cvsnt commit id, or a synthesised one.
	CommitID string

	// Index is a dense position assigned by the containing list or
	// stream collection.  It reflects final ordering, not time order.
	Index int

	revisions []*FileRevision

	// Links within the branch-stream DAG.
	Predecessor *Commit
	Successor   *Commit
	MergeFrom   *Commit

	// Branches holds the root commit of every branch for which this
	// commit is the branchpoint.
	Branches []*Commit

	// Errors holds verification diagnostics.  Never fatal.
	Errors []string

	// branchOverride pins the branch of synthetic commits whose
	// members do not all carry revisions on the commit's branch.
	branchOverride string
}

func NewCommit(id string) *Commit {
	return &Commit{CommitID: id, Index: -1}
}

func (c *Commit) Add(fr *FileRevision) {
	c.revisions = append(c.revisions, fr)
}

// Revisions returns the member file revisions in order of addition.
func (c *Commit) Revisions() []*FileRevision {
	return c.revisions
}

func (c *Commit) Len() int {
	return len(c.revisions)
}

// Time is the earliest member time.
func (c *Commit) Time() time.Time {
	var t time.Time
	for i, fr := range c.revisions {
		if i == 0 || fr.Time.Before(t) {
			t = fr.Time
		}
	}
	return t
}

// Author is the first member's author.  Verification flags commits with
// more than one.
func (c *Commit) Author() string {
	if len(c.revisions) == 0 {
		return ""
	}
	return c.revisions[0].Author
}

// Message joins the unique member messages in order of appearance.
func (c *Commit) Message() string {
	var msgs []string
	seen := newStringSet()
	for _, fr := range c.revisions {
		m := fr.Message()
		if m != "" && !seen.Contains(m) {
			seen.Add(m)
			msgs = append(msgs, m)
		}
	}
	return strings.Join(msgs, "\n")
}

// Branch is the first member's branch.  After the multi-branch split
// every member agrees; before it, verification flags strays.
func (c *Commit) Branch() string {
	if c.branchOverride != "" {
		return c.branchOverride
	}
	if len(c.revisions) == 0 {
		return ""
	}
	return c.revisions[0].Branch()
}

// SetBranch pins the commit to a branch regardless of its members.
func (c *Commit) SetBranch(branch string) {
	c.branchOverride = branch
}

// MemberFor returns this commit's revision of a file, or nil.
func (c *Commit) MemberFor(f *FileInfo) *FileRevision {
	for _, fr := range c.revisions {
		if fr.File == f {
			return fr
		}
	}
	return nil
}

// Touches reports whether the commit contains a revision of the file.
func (c *Commit) Touches(f *FileInfo) bool {
	return c.MemberFor(f) != nil
}

// IsBranchpoint reports whether any branch roots hang off this commit.
func (c *Commit) IsBranchpoint() bool {
	return len(c.Branches) > 0
}

// AddBranchRoot records a branch root whose branchpoint is this commit.
func (c *Commit) AddBranchRoot(root *Commit) {
	for _, b := range c.Branches {
		if b == root {
			return
		}
	}
	c.Branches = append(c.Branches, root)
}

// ReplaceBranchRoot swaps one recorded branch root for another, used
// when a root commit is displaced by a move or split.
func (c *Commit) ReplaceBranchRoot(old, new_ *Commit) {
	for i, b := range c.Branches {
		if b == old {
			c.Branches[i] = new_
			return
		}
	}
	c.Branches = append(c.Branches, new_)
}

func (c *Commit) AddError(format string, args ...interface{}) {
	c.Errors = append(c.Errors, fmt.Sprintf(format, args...))
}

func (c *Commit) String() string {
	return fmt.Sprintf("%s[%d]", c.CommitID, c.Index)
}

// Files returns the names of the member files, for diagnostics.
func (c *Commit) Files() []string {
	names := make([]string, 0, len(c.revisions))
	for _, fr := range c.revisions {
		names = append(names, fr.File.Name)
	}
	return names
}
