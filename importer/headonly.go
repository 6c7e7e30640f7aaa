// Head-only overlay: files whose intermediate history was excluded but
// whose latest content belongs in the final branch snapshots.  One
// synthetic commit is appended per branch tip, chained parent to child
// with merge edges so the snapshots converge in the output tool.

package main

import (
	"time"

	"github.com/inconshreveable/log15"
)

// SynthesizeHeadOnlyCommits appends one headonly-<branch> commit per
// branch tracked by the changes-only head-only state, walking parents
// before children.  A child's commit merges from the parent's and emits
// dead revisions for files the parent snapshot has but the child does
// not, so the merge edge cannot resurrect them.
func SynthesizeHeadOnlyCommits(bsc *BranchStreamCollection, headState *RepositoryState,
	cat *FileCatalog, log log15.Logger) []*Commit {

	made := make(map[string]*Commit)
	var out []*Commit
	for _, branch := range cat.AllBranches() {
		parent := made[cat.BranchParent(branch)]
		live := []string{}
		if headState.HasBranch(branch) {
			live = headState.Branch(branch).LiveFiles()
		}
		if len(live) == 0 && parent == nil {
			continue
		}
		if bsc.Head(branch) == nil && len(live) == 0 {
			continue
		}

		c := NewCommit("headonly-" + branch)
		c.SetBranch(branch)
		when, author := headOnlyStamp(bsc, branch, parent)
		for _, name := range live {
			fr := syntheticRevision(cat.Get(name), headState.Branch(branch).Get(name), when, author, false)
			c.Add(fr)
		}
		if parent != nil {
			c.MergeFrom = parent
			childSet := newStringSet(live...)
			parentState := headState.Branch(cat.BranchParent(branch))
			for _, name := range parentState.LiveFiles() {
				if childSet.Contains(name) {
					continue
				}
				fr := syntheticRevision(cat.Get(name), parentState.Get(name), when, author, true)
				c.Add(fr)
			}
		}
		if c.Len() == 0 {
			continue
		}
		bsc.AppendCommit(c)
		made[branch] = c
		out = append(out, c)
		log.Info("synthesized head-only commit", "branch", branch, "files", c.Len())
	}
	return out
}

// headOnlyStamp derives a deterministic time and author for the
// synthetic commit from the branch head, falling back to the parent's
// head-only commit.
func headOnlyStamp(bsc *BranchStreamCollection, branch string, parent *Commit) (time.Time, string) {
	if head := bsc.Head(branch); head != nil {
		return head.Time(), head.Author()
	}
	if parent != nil {
		return parent.Time(), parent.Author()
	}
	return time.Unix(0, 0).UTC(), "import"
}

func syntheticRevision(f *FileInfo, rev *Revision, when time.Time, author string, dead bool) *FileRevision {
	fr := NewFileRevision(f, rev)
	fr.Time = when
	fr.Author = author
	fr.Dead = dead
	fr.AddMessage("head-only snapshot")
	return fr
}
