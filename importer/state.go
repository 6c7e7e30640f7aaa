// Repository state replay: the per-branch picture of which files are
// live at which revision after applying a prefix of the commit list.
// The tag and branch resolvers use it as their oracle; the head-only
// overlay uses the changes-only flavour.

package main

type RepositoryBranchState struct {
	Branch string
	files  map[string]*Revision
}

func newBranchState(branch string) *RepositoryBranchState {
	return &RepositoryBranchState{Branch: branch, files: make(map[string]*Revision)}
}

// Get returns the current revision of a file on this branch, or
// EmptyRevision if the file is not live.
func (bs *RepositoryBranchState) Get(file string) *Revision {
	if rev, ok := bs.files[file]; ok {
		return rev
	}
	return EmptyRevision
}

func (bs *RepositoryBranchState) IsLive(file string) bool {
	_, ok := bs.files[file]
	return ok
}

func (bs *RepositoryBranchState) set(file string, rev *Revision) {
	bs.files[file] = rev
}

func (bs *RepositoryBranchState) remove(file string) {
	delete(bs.files, file)
}

// LiveFiles returns the live file names in sorted order.
func (bs *RepositoryBranchState) LiveFiles() []string {
	return sortedKeys(bs.files)
}

// RepositoryState tracks every branch's state.  The full flavour
// propagates files into a child branch's state as the parent's replay
// passes each file's branchpoint revision, so a child inherits the
// parent tree as of the branchpoint.  The changes-only flavour carries
// only what is applied to the branch directly.
type RepositoryState struct {
	full   bool
	strict bool

	branches map[string]*RepositoryBranchState
}

// NewRepositoryState returns the full flavour, non-strict.
func NewRepositoryState() *RepositoryState {
	return &RepositoryState{full: true, branches: make(map[string]*RepositoryBranchState)}
}

// NewStrictRepositoryState is the full flavour with revision-continuity
// checking: every applied revision must directly follow the previous.
func NewStrictRepositoryState() *RepositoryState {
	return &RepositoryState{full: true, strict: true, branches: make(map[string]*RepositoryBranchState)}
}

// NewChangesOnlyState tracks only what is applied per branch, with no
// branchpoint inheritance.
func NewChangesOnlyState() *RepositoryState {
	return &RepositoryState{branches: make(map[string]*RepositoryBranchState)}
}

// Branch returns (creating if needed) the state of a branch.
func (rs *RepositoryState) Branch(name string) *RepositoryBranchState {
	bs, ok := rs.branches[name]
	if !ok {
		bs = newBranchState(name)
		rs.branches[name] = bs
	}
	return bs
}

// HasBranch reports whether any state has been recorded for a branch.
func (rs *RepositoryState) HasBranch(name string) bool {
	_, ok := rs.branches[name]
	return ok
}

// Apply folds one commit into the state.
func (rs *RepositoryState) Apply(c *Commit) error {
	bs := rs.Branch(c.Branch())
	for _, fr := range c.Revisions() {
		if err := rs.applyOne(bs, fr); err != nil {
			return err
		}
	}
	return nil
}

// ApplyPartial folds in only the members of the commit not named in
// skip, as if the commit had already been split.
func (rs *RepositoryState) ApplyPartial(c *Commit, skip stringSet) error {
	bs := rs.Branch(c.Branch())
	for _, fr := range c.Revisions() {
		if skip.Contains(fr.File.Name) {
			continue
		}
		if err := rs.applyOne(bs, fr); err != nil {
			return err
		}
	}
	return nil
}

func (rs *RepositoryState) applyOne(bs *RepositoryBranchState, fr *FileRevision) error {
	name := fr.File.Name
	if rs.strict {
		prev := bs.Get(name)
		if !prev.DirectlyPrecedes(fr.Rev) && prev != fr.Rev {
			return ErrRepoConsistency.New(
				fr.File.Name + ": " + fr.Rev.String() + " does not follow " + prev.String() + " on " + bs.Branch)
		}
	}
	if fr.Dead {
		bs.remove(name)
	} else {
		bs.set(name, fr.Rev)
	}
	if rs.full {
		rs.propagateBranchpoint(fr)
	}
	return nil
}

// propagateBranchpoint applies a revision to every branch of the file
// that departs exactly here, so the child branch's state inherits it.
func (rs *RepositoryState) propagateBranchpoint(fr *FileRevision) {
	for stem, child := range fr.File.branchByStem {
		if stem.Branchpoint() != fr.Rev {
			continue
		}
		cs := rs.Branch(child)
		if fr.Dead {
			cs.remove(fr.File.Name)
		} else {
			cs.set(fr.File.Name, fr.Rev)
		}
	}
}
