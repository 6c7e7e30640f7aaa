// Commit aggregation: grouping the per-file revision events into
// commits.  Events carrying a cvsnt commit id group exactly; events
// without one group by message, then split on gaps in time.  The output
// is the first totally ordered commit list in the pipeline.

package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/samber/lo"
)

// Revisions committed together without a commit id rarely straddle more
// than a few seconds; cvs itself uses a similar window when guessing.
const aggregationGap = 10 * time.Second

// AggregateCommits turns a stream of file revisions into a time-ordered
// commit list.
func AggregateCommits(revs []*FileRevision, log log15.Logger) commitList {
	var withID, withoutID []*FileRevision
	for _, fr := range revs {
		if branch, ok := fr.AddedOnBranch(); ok {
			// The placeholder trunk revision is not a commit; it only
			// tells us where the file really came from.
			fr.File.BranchAddedOn = branch
			log.Debug("file added on branch", "file", fr.File.Name, "branch", branch)
			continue
		}
		if fr.CommitID != "" {
			withID = append(withID, fr)
		} else {
			withoutID = append(withoutID, fr)
		}
	}

	byID := make(map[string]*Commit)
	var commits commitList
	for _, fr := range withID {
		c, ok := byID[fr.CommitID]
		if !ok {
			c = NewCommit(fr.CommitID)
			byID[fr.CommitID] = c
			commits = append(commits, c)
		}
		c.Add(fr)
	}

	commits = append(commits, aggregateUntagged(withoutID)...)

	sort.SliceStable(commits, func(i, j int) bool {
		return commits[i].Time().Before(commits[j].Time())
	})
	commits.reindex()
	log.Info("aggregated commits", "revisions", len(revs), "commits", len(commits))
	return commits
}

// aggregateUntagged groups events lacking a commit id by message, then
// splits each message group wherever consecutive times drift apart by
// more than the aggregation gap.
func aggregateUntagged(revs []*FileRevision) []*Commit {
	groups := lo.GroupBy(revs, func(fr *FileRevision) string {
		return fr.Message()
	})

	var out []*Commit
	seq := 0
	for _, msg := range sortedKeys(groups) {
		group := groups[msg]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Time.Before(group[j].Time)
		})
		var c *Commit
		var last time.Time
		for _, fr := range group {
			if c == nil || fr.Time.Sub(last) > aggregationGap {
				seq++
				c = NewCommit(syntheticID(fr, seq))
				out = append(out, c)
			}
			c.Add(fr)
			last = fr.Time
		}
	}
	return out
}

func syntheticID(fr *FileRevision, seq int) string {
	return fmt.Sprintf("%s-%s-%d", fr.Time.UTC().Format("060102"), fr.Author, seq)
}
