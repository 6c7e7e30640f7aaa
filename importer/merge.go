// Merge resolution: electing one whole-commit merge source from the
// per-file mergepoint markers, and straightening out crossed merges by
// reordering the source branch.

package main

import (
	"github.com/inconshreveable/log15"
)

// ResolveMerges walks every branch in stream order and sets MergeFrom
// on each commit whose members carry mergepoint markers.
func ResolveMerges(bsc *BranchStreamCollection, log log15.Logger) error {
	for _, branch := range bsc.Branches() {
		if err := resolveBranchMerges(bsc, branch, log); err != nil {
			return err
		}
	}
	return nil
}

func resolveBranchMerges(bsc *BranchStreamCollection, branch string, log log15.Logger) error {
	lastMergeFrom := make(map[string]*Commit)
	for c := bsc.Root(branch); c != nil; c = c.Successor {
		source := electMergeSource(c)
		if source == nil {
			continue
		}
		srcBranch := source.Branch()
		if srcBranch == branch || !sourceBranchAttachedTo(bsc, srcBranch, branch) {
			// Merge from the parent line, or from a branch whose
			// history was excluded; neither gets a merge edge.
			log.Debug("ignoring mergepoint", "commit", c.CommitID, "source-branch", srcBranch)
			continue
		}
		if last := lastMergeFrom[srcBranch]; last != nil && source.Index < last.Index {
			// Crossed merges: the later destination merges an earlier
			// source.  Reorder the source branch, unless a branchpoint
			// pins either commit in place.
			if source.IsBranchpoint() || last.IsBranchpoint() {
				log.Warn("crossed merge left in place: branchpoint blocks reordering",
					"commit", c.CommitID, "source", source.CommitID)
			} else {
				log.Debug("fixing crossed merge", "source", source.CommitID, "after", last.CommitID)
				if err := bsc.MoveCommit(source, last); err != nil {
					return err
				}
			}
		}
		c.MergeFrom = source
		if last := lastMergeFrom[srcBranch]; last == nil || source.Index > last.Index {
			lastMergeFrom[srcBranch] = source
		}
	}
	return nil
}

// electMergeSource picks the commit with the greatest index among the
// owners of the referenced mergepoint revisions.
func electMergeSource(c *Commit) *Commit {
	var source *Commit
	for _, fr := range c.Revisions() {
		if fr.Mergepoint.IsEmpty() {
			continue
		}
		owner := fr.File.CommitFor(fr.Mergepoint)
		if owner == nil {
			continue
		}
		if source == nil || owner.Index > source.Index {
			source = owner
		}
	}
	return source
}

// sourceBranchAttachedTo reports whether a branch's root hangs off the
// destination branch, which is what makes a merge edge representable.
func sourceBranchAttachedTo(bsc *BranchStreamCollection, srcBranch, destBranch string) bool {
	root := bsc.Root(srcBranch)
	return root != nil && root.Predecessor != nil && root.Predecessor.Branch() == destBranch
}
