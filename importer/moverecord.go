// CommitMoveRecord: the set of moves and splits a single label needs in
// order to become resolvable, accumulated during the resolver's walk
// and applied in one pass.

package main

import (
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/inconshreveable/log15"
)

type moveEntry struct {
	commit *Commit
	files  stringSet
}

// CommitMoveRecord records, for one label, the commits that must end up
// after the final commit and which of their files are implicated.  A
// commit whose files are all implicated is moved whole; otherwise it is
// split and only the implicated half moves.
type CommitMoveRecord struct {
	label string
	final *Commit

	// keyed by the commit's index at recording time; the resolver does
	// not reorder while recording, so the keys are stable until Apply.
	entries *treemap.Map

	// OnSplit is called for every split so the caller can repair
	// references to the original commit.
	OnSplit func(old, included, excluded *Commit)

	log log15.Logger
}

func NewCommitMoveRecord(label string, log log15.Logger) *CommitMoveRecord {
	return &CommitMoveRecord{
		label:   label,
		entries: treemap.NewWith(utils.IntComparator),
		log:     log,
	}
}

func (mr *CommitMoveRecord) SetFinalCommit(c *Commit) {
	mr.final = c
}

func (mr *CommitMoveRecord) FinalCommit() *Commit {
	return mr.final
}

// AddCommit implicates files of a commit.
func (mr *CommitMoveRecord) AddCommit(c *Commit, files []string) {
	var entry *moveEntry
	if v, ok := mr.entries.Get(c.Index); ok {
		entry = v.(*moveEntry)
	} else {
		entry = &moveEntry{commit: c, files: newStringSet()}
		mr.entries.Put(c.Index, entry)
	}
	for _, f := range files {
		entry.files.Add(f)
	}
}

// AddWholeCommit implicates every file of a commit.
func (mr *CommitMoveRecord) AddWholeCommit(c *Commit) {
	mr.AddCommit(c, c.Files())
}

func (mr *CommitMoveRecord) Count() int {
	return mr.entries.Size()
}

// TakeEntryFor removes and returns a commit's entry.  Used when the
// final commit itself is implicated: it is split in place rather than
// moved past itself.
func (mr *CommitMoveRecord) TakeEntryFor(c *Commit) (stringSet, bool) {
	if v, ok := mr.entries.Get(c.Index); ok {
		entry := v.(*moveEntry)
		if entry.commit == c {
			mr.entries.Remove(c.Index)
			return entry.files, true
		}
	}
	return stringSet{}, false
}

// MovedFilesOf returns the implicated files of a commit, if recorded.
func (mr *CommitMoveRecord) MovedFilesOf(c *Commit) (stringSet, bool) {
	if v, ok := mr.entries.Get(c.Index); ok {
		entry := v.(*moveEntry)
		if entry.commit == c {
			return entry.files, true
		}
	}
	return stringSet{}, false
}

// Apply performs the recorded moves, highest index first so that each
// move never disturbs the positions of entries not yet applied.
func (mr *CommitMoveRecord) Apply(list *commitList) error {
	if mr.final == nil {
		return ErrImportFailed.New("move record for " + mr.label + " has no final commit")
	}
	it := mr.entries.Iterator()
	for it.End(); it.Prev(); {
		entry := it.Value().(*moveEntry)
		c := entry.commit
		if c == mr.final {
			continue
		}
		if c.Index > mr.final.Index {
			// Already past the final commit; nothing to do.
			continue
		}
		whole := true
		for _, fr := range c.Revisions() {
			if !entry.files.Contains(fr.File.Name) {
				whole = false
				break
			}
		}
		if whole {
			mr.log.Debug("moving commit", "label", mr.label, "id", c.CommitID, "after", mr.final.CommitID)
			list.moveAfter(c.Index, mr.final.Index)
			continue
		}
		included, excluded := splitCommit(c, entry.files)
		mr.log.Debug("splitting commit", "label", mr.label, "id", c.CommitID,
			"moved", included.Files(), "stays", excluded.Files())
		if mr.OnSplit != nil {
			mr.OnSplit(c, included, excluded)
		}
		list.replaceAt(c.Index, included, excluded)
		list.moveAfter(included.Index, mr.final.Index)
	}
	return nil
}

// splitCommit divides a commit into the half owning the named files and
// the half owning the rest, rewriting the file-to-commit
// back-references to whichever half now owns each revision.
func splitCommit(c *Commit, files stringSet) (included, excluded *Commit) {
	included = NewCommit(c.CommitID + "-1")
	excluded = NewCommit(c.CommitID + "-2")
	for _, fr := range c.Revisions() {
		if files.Contains(fr.File.Name) {
			included.Add(fr)
		} else {
			excluded.Add(fr)
		}
	}
	for _, fr := range included.Revisions() {
		fr.File.SetCommit(fr.Rev, included)
	}
	for _, fr := range excluded.Revisions() {
		fr.File.SetCommit(fr.Rev, excluded)
	}
	return included, excluded
}
