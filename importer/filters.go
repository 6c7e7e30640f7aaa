// The filter pipeline between aggregation and resolution: splitting
// commits that straddle branches, dropping excluded branches and files,
// siphoning head-only files into their own state, verifying commits and
// writing the file-to-commit back-references.

package main

import (
	"time"

	"github.com/inconshreveable/log15"
)

// SplitMultiBranchCommits replaces each commit whose members straddle
// branches with one commit per branch.  cvsnt can emit these when
// simultaneous commits land on different branches under one commit id.
// Branch order is the order of first appearance inside the commit.
func SplitMultiBranchCommits(commits commitList, log log15.Logger) commitList {
	out := make(commitList, 0, len(commits))
	for _, c := range commits {
		var branches []string
		byBranch := make(map[string]*Commit)
		for _, fr := range c.Revisions() {
			b := fr.Branch()
			part, ok := byBranch[b]
			if !ok {
				part = NewCommit(c.CommitID)
				byBranch[b] = part
				branches = append(branches, b)
			}
			part.Add(fr)
		}
		if len(branches) <= 1 {
			out = append(out, c)
			continue
		}
		log.Debug("splitting multi-branch commit", "id", c.CommitID, "branches", branches)
		for _, b := range branches {
			part := byBranch[b]
			part.CommitID = c.CommitID + "-" + b
			out = append(out, part)
		}
	}
	out.reindex()
	return out
}

// ExclusionFilter drops file revisions on excluded branches and files,
// and siphons head-only files into a changes-only state for the overlay
// stage to synthesise from later.
type ExclusionFilter struct {
	Branches *InclusionMatcher
	Files    *InclusionMatcher
	HeadOnly *InclusionMatcher

	// HeadOnlyState accumulates the shadow slices.
	HeadOnlyState *RepositoryState

	log log15.Logger
}

func NewExclusionFilter(branches, files, headOnly *InclusionMatcher, log log15.Logger) *ExclusionFilter {
	return &ExclusionFilter{
		Branches:      branches,
		Files:         files,
		HeadOnly:      headOnly,
		HeadOnlyState: NewChangesOnlyState(),
		log:           log,
	}
}

// Filter partitions every commit into included history and a head-only
// shadow slice.  Commits left with no included files are dropped.
func (ef *ExclusionFilter) Filter(commits commitList) commitList {
	out := make(commitList, 0, len(commits))
	dropped := 0
	for _, c := range commits {
		branch := c.Branch()
		// A commit whose branch binding was excluded at parse time has
		// no branch name at all; it goes the same way.
		if branch == "" || (branch != mainBranch && !ef.Branches.Match(branch)) {
			dropped++
			continue
		}
		kept := NewCommit(c.CommitID)
		headOnly := NewCommit(c.CommitID)
		for _, fr := range c.Revisions() {
			switch {
			case ef.HeadOnly.Match(fr.File.Name):
				headOnly.Add(fr)
			case ef.Files.Match(fr.File.Name):
				kept.Add(fr)
			}
		}
		if headOnly.Len() > 0 {
			// The shadow slice never becomes a history commit; it only
			// advances the head-only state.
			ef.HeadOnlyState.Apply(headOnly)
		}
		if kept.Len() == 0 {
			dropped++
			continue
		}
		out = append(out, kept)
	}
	out.reindex()
	ef.log.Info("exclusion filter", "in", len(commits), "out", len(out), "dropped", dropped)
	return out
}

// How far apart members of one commit may be before fussy verification
// complains.
const fussyTimeSpan = time.Minute

// VerifyCommits checks every commit and records diagnostics on it.
// Diagnostics never stop the pipeline.  The file-to-commit
// back-references are written here, once the commit set is final enough
// for the resolvers to rely on them.
func VerifyCommits(commits commitList, fussy bool, log log15.Logger) {
	for _, c := range commits {
		verifyCommit(c, fussy)
		for _, e := range c.Errors {
			log.Warn("commit verification", "id", c.CommitID, "error", e)
		}
		for _, fr := range c.Revisions() {
			fr.File.SetCommit(fr.Rev, c)
		}
	}
}

func verifyCommit(c *Commit, fussy bool) {
	authors := newStringSet()
	branches := newStringSet()
	var earliest, latest time.Time
	for i, fr := range c.Revisions() {
		authors.Add(fr.Author)
		branches.Add(fr.Branch())
		if i == 0 || fr.Time.Before(earliest) {
			earliest = fr.Time
		}
		if i == 0 || fr.Time.After(latest) {
			latest = fr.Time
		}
	}
	if authors.Len() > 1 {
		c.AddError("multiple authors: %s", authors)
	}
	if branches.Len() > 1 {
		c.AddError("multiple branches: %s", branches)
	}
	if fussy && latest.Sub(earliest) > fussyTimeSpan {
		c.AddError("time span %s exceeds %s", latest.Sub(earliest), fussyTimeSpan)
	}
	verifyMergepoints(c)
}

// verifyMergepoints checks that the members' mergepoint markers agree
// on a single source branch.  Markers whose stem is unregistered on
// their file contribute nothing.
func verifyMergepoints(c *Commit) {
	common := newStringSet()
	first := true
	for _, fr := range c.Revisions() {
		if fr.Mergepoint.IsEmpty() {
			continue
		}
		branches := newStringSet()
		if name := fr.File.BranchName(fr.Mergepoint); name != "" {
			branches.Add(name)
		}
		if branches.Len() == 0 {
			continue
		}
		if first {
			common = branches
			first = false
		} else {
			common = common.Intersection(branches)
		}
	}
	if !first && common.Len() == 0 {
		c.AddError("multiple branches merged from")
	}
}
