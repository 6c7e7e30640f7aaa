// The label resolver.  A label -- a tag, or the branchpoint a branch
// name implies -- is a per-file notion in cvs: each file binds the name
// to one of its own revisions, applied at whatever moment the user ran
// the tag command on that file.  To emit the label as a single
// whole-tree object we have to find (or manufacture, by reordering and
// splitting commits) a point in the commit sequence where every file
// sits at exactly its labelled revision.
//
// The same machinery resolves tags and branches; the two differ only in
// which revision a file associates with the label, expressed as a
// capability struct rather than inheritance.

package main

import (
	"fmt"

	orderedset "github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/inconshreveable/log15"
)

// LabelCapability tells the resolver how a label kind maps to per-file
// revisions.
type LabelCapability struct {
	// Kind is "tag" or "branch", for reporting.
	Kind string

	// RevisionFor returns the revision a label names on a file, or nil
	// when the file does not carry the label.
	RevisionFor func(f *FileInfo, label string) *Revision

	// MissingOK reports that a file's absence at the label is
	// legitimate and not a defect to repair.
	MissingOK func(f *FileInfo, label string) bool
}

// TagCapability resolves normal tags.
func TagCapability() LabelCapability {
	return LabelCapability{
		Kind: "tag",
		RevisionFor: func(f *FileInfo, label string) *Revision {
			return f.TagRevision(label)
		},
		MissingOK: func(f *FileInfo, label string) bool {
			return false
		},
	}
}

// BranchCapability resolves branch names to their branchpoints.  A file
// added on the branch itself legitimately has no branchpoint revision.
func BranchCapability() LabelCapability {
	return LabelCapability{
		Kind: "branch",
		RevisionFor: func(f *FileInfo, label string) *Revision {
			return f.BranchpointRevision(label)
		},
		MissingOK: func(f *FileInfo, label string) bool {
			return f.BranchAddedOn == label
		},
	}
}

// labelFailure classifies why a label could not be resolved.
type labelFailure int

const (
	failNone labelFailure = iota
	failNoCandidate
	failInconsistentPath
	failReconcile
	failPartial
	failNoReorder
)

func (lf labelFailure) String() string {
	switch lf {
	case failNoCandidate:
		return "no candidate commit"
	case failInconsistentPath:
		return "not a clean branch path"
	case failReconcile:
		return "missing or extra files could not be reconciled"
	case failPartial:
		return "partial: too many unlabelled files"
	case failNoReorder:
		return "reordering disabled"
	}
	return "ok"
}

// LabelResolver pins labels of one kind to single commits, reordering
// and splitting commits as needed.
type LabelResolver struct {
	cat *FileCatalog
	cap LabelCapability
	log log15.Logger

	// PartialThreshold is how many extra (unlabelled but live) files a
	// label tolerates before being declared partial.
	PartialThreshold int

	// ContinueOnError downgrades partial labels to warnings.
	ContinueOnError bool

	// NoReorder resolves only labels that need no commit movement.
	NoReorder bool

	Resolved   map[string]*Commit
	Unresolved map[string]labelFailure
	Partial    []string

	// OnSplit propagates commit splits to interested bookkeeping, such
	// as the branchpoints map built by an earlier resolver pass.
	OnSplit func(old, included, excluded *Commit)
}

func NewLabelResolver(cap LabelCapability, cat *FileCatalog, log log15.Logger) *LabelResolver {
	return &LabelResolver{
		cat:        cat,
		cap:        cap,
		log:        log.New("resolver", cap.Kind),
		Resolved:   make(map[string]*Commit),
		Unresolved: make(map[string]labelFailure),
	}
}

// Resolve processes each label in turn against the commit list, which
// it may reorder and split.  Failures are recorded per label; the error
// return is only for fatal structural trouble.
func (r *LabelResolver) Resolve(labels []string, commits *commitList) error {
	for _, label := range labels {
		fail, err := r.resolveOne(label, commits)
		if err != nil {
			return err
		}
		if fail != failNone {
			r.Unresolved[label] = fail
			r.log.Warn("unresolved", "kind", r.cap.Kind, "name", label, "reason", fail.String())
		}
	}
	r.log.Info("resolution finished",
		"resolved", len(r.Resolved), "unresolved", len(r.Unresolved), "partial", len(r.Partial))
	return nil
}

func (r *LabelResolver) resolveOne(label string, commits *commitList) (labelFailure, error) {
	candidates := r.findCandidates(label, *commits)
	if len(candidates) == 0 {
		return failNoCandidate, nil
	}

	finalBranch, clean := candidateBranchPath(candidates)
	if !clean {
		return failInconsistentPath, nil
	}

	// Restrict to commits on the final branch or on branches it
	// descends from; the rest cannot affect the label's tree.
	var working []*Commit
	for _, c := range *commits {
		if c.Branch() == finalBranch || r.cat.IsBranchAncestor(c.Branch(), finalBranch) {
			working = append(working, c)
		}
	}

	move := NewCommitMoveRecord(label, r.log)
	move.OnSplit = r.OnSplit
	final, fail := r.walk(label, finalBranch, working, candidates, move)
	if fail != failNone {
		return fail, nil
	}
	move.SetFinalCommit(final)

	partial := false
	fail, partial = r.reconcile(label, finalBranch, working, move)
	if fail == failPartial && !r.ContinueOnError {
		return fail, nil
	}
	if fail != failNone && fail != failPartial {
		return fail, nil
	}
	final = move.FinalCommit()

	if move.Count() > 0 && r.NoReorder {
		return failNoReorder, nil
	}
	// The candidate itself may carry files pushed past their labelled
	// revisions; it cannot move past itself, so it splits in place: the
	// clean half keeps the label, the ahead half follows it.
	if aheadFiles, ok := move.TakeEntryFor(final); ok {
		clean := newStringSet(final.Files()...).Subtract(aheadFiles)
		included, excluded := splitCommit(final, clean)
		if r.OnSplit != nil {
			r.OnSplit(final, included, excluded)
		}
		commits.replaceAt(final.Index, included, excluded)
		move.SetFinalCommit(included)
		final = included
	}
	if err := move.Apply(commits); err != nil {
		return failNone, err
	}
	if partial {
		r.Partial = append(r.Partial, label)
		r.log.Warn("partial label resolved", "name", label, "commit", final.CommitID)
	}
	r.Resolved[label] = final
	r.log.Debug("resolved", "name", label, "commit", final.CommitID, "moves", move.Count())
	return failNone, nil
}

// findCandidates lists, in order, the commits contributing at least one
// revision the label names.
func (r *LabelResolver) findCandidates(label string, commits commitList) []*Commit {
	var out []*Commit
	for _, c := range commits {
		if r.isCandidate(c, label) {
			out = append(out, c)
		}
	}
	return out
}

func (r *LabelResolver) isCandidate(c *Commit, label string) bool {
	for _, fr := range c.Revisions() {
		if r.cap.RevisionFor(fr.File, label) == fr.Rev {
			return true
		}
	}
	return false
}

// candidateBranchPath returns the final branch of the candidates'
// branch sequence.  The sequence must be clean: once a branch is left
// it may not reappear.
func candidateBranchPath(candidates []*Commit) (string, bool) {
	path := orderedset.New()
	last := ""
	for _, c := range candidates {
		b := c.Branch()
		if b == last {
			continue
		}
		if path.Contains(b) {
			return "", false
		}
		path.Add(b)
		last = b
	}
	return last, true
}

// compareResult is the relation of the replayed tree to the label at
// one commit.
type compareResult int

const (
	compareBehind compareResult = iota
	compareAhead
	compareExact
)

// walk replays the working commits, tracking the latest candidate and
// recording any commit that pushes a file past its labelled revision.
// It stops on an exact tree match or after the last candidate.
func (r *LabelResolver) walk(label, finalBranch string, working, candidates []*Commit, move *CommitMoveRecord) (*Commit, labelFailure) {
	inWorking := make(map[*Commit]bool, len(working))
	for _, c := range working {
		inWorking[c] = true
	}
	var lastCandidate *Commit
	for _, c := range candidates {
		if inWorking[c] {
			lastCandidate = c
		}
	}
	if lastCandidate == nil {
		return nil, failNoCandidate
	}

	state := NewRepositoryState()
	var current *Commit
	for _, c := range working {
		state.Apply(c)
		if r.isCandidate(c, label) {
			current = c
		}
		result, ahead := r.compare(state, c, label, finalBranch)
		if result == compareAhead {
			move.AddCommit(c, ahead)
		}
		if result == compareExact && current != nil {
			return current, failNone
		}
		if c == lastCandidate {
			break
		}
	}
	if current == nil {
		return nil, failNoCandidate
	}
	return current, failNone
}

// compare relates the branch state after a commit to the label.  Only
// the commit's own live members can be ahead; exactness is judged
// against every file in the catalog carrying the label.
func (r *LabelResolver) compare(state *RepositoryState, c *Commit, label, finalBranch string) (compareResult, []string) {
	bs := state.Branch(finalBranch)
	var ahead []string
	behind := false
	for _, fr := range c.Revisions() {
		if fr.Dead {
			continue
		}
		labelRev := r.cap.RevisionFor(fr.File, label)
		if labelRev == nil || labelRev.IsEmpty() {
			continue
		}
		curr := bs.Get(fr.File.Name)
		switch {
		case curr == labelRev:
			// neutral
		case curr.Precedes(labelRev):
			behind = true
		case labelRev.Precedes(curr):
			ahead = append(ahead, fr.File.Name)
		}
	}
	if len(ahead) > 0 {
		return compareAhead, ahead
	}
	if behind {
		return compareBehind, nil
	}
	for _, f := range r.cat.Files() {
		labelRev := r.cap.RevisionFor(f, label)
		if labelRev == nil || labelRev.IsEmpty() {
			continue
		}
		if bs.Get(f.Name) != labelRev {
			return compareBehind, nil
		}
	}
	return compareExact, nil
}

// reconcile compares the candidate's branch state against the label's
// intended file set and repairs additions and deletions around the
// candidate: extra files are pushed out of the way, missing files are
// recovered from a later add or an earlier delete.
func (r *LabelResolver) reconcile(label, finalBranch string, working []*Commit, move *CommitMoveRecord) (labelFailure, bool) {
	final := move.FinalCommit()
	state := r.replayToCandidate(finalBranch, working, final, move)
	bs := state.Branch(finalBranch)

	// Extra files: live at the candidate with no labelled revision.
	var extras []string
	for _, name := range bs.LiveFiles() {
		f := r.cat.Get(name)
		if f == nil {
			continue
		}
		if rev := r.cap.RevisionFor(f, label); rev == nil || rev.IsEmpty() {
			extras = append(extras, name)
		}
	}
	partial := len(extras) > r.PartialThreshold
	if partial {
		r.log.Warn("label exceeds partial threshold",
			"name", label, "extras", len(extras), "threshold", r.PartialThreshold)
		if !r.ContinueOnError {
			return failPartial, true
		}
	}
	for _, name := range extras {
		if !r.fixExtra(label, name, finalBranch, working, move) {
			return failReconcile, partial
		}
	}

	// Missing files: labelled but not live at the candidate.
	for _, f := range r.cat.Files() {
		labelRev := r.cap.RevisionFor(f, label)
		if labelRev == nil || labelRev.IsEmpty() {
			continue
		}
		if bs.IsLive(f.Name) {
			continue
		}
		if r.cap.MissingOK(f, label) {
			continue
		}
		if !r.fixMissing(label, f, labelRev, finalBranch, working, move) {
			return failReconcile, partial
		}
	}
	if partial {
		return failPartial, true
	}
	return failNone, false
}

// replayToCandidate rebuilds the state as it will look after the move
// record is applied: commits up to the candidate, minus the files
// already recorded to move past it.
func (r *LabelResolver) replayToCandidate(finalBranch string, working []*Commit, final *Commit, move *CommitMoveRecord) *RepositoryState {
	state := NewRepositoryState()
	for _, c := range working {
		if moved, ok := move.MovedFilesOf(c); ok {
			state.ApplyPartial(c, moved)
		} else {
			state.Apply(c)
		}
		if c == final {
			break
		}
	}
	return state
}

// fixExtra removes an unlabelled live file from the candidate's tree,
// preferring whichever of the file's forward delete or backward add run
// is closer; ties advance the candidate to the delete.
func (r *LabelResolver) fixExtra(label, name, finalBranch string, working []*Commit, move *CommitMoveRecord) bool {
	f := r.cat.Get(name)
	final := move.FinalCommit()
	finalPos := commitPos(working, final)

	// Forward: a delete of the file on the label's branch.
	delPos := -1
	for i := finalPos + 1; i < len(working); i++ {
		if fr := working[i].MemberFor(f); fr != nil && fr.Dead &&
			f.IsRevisionOnBranch(fr.Rev, finalBranch) {
			delPos = i
			break
		}
	}
	// Backward: the run of commits keeping the file live, back to the
	// add that introduced it.
	var run []*Commit
	for i := finalPos; i >= 0; i-- {
		fr := working[i].MemberFor(f)
		if fr == nil {
			continue
		}
		if fr.Dead {
			break
		}
		run = append(run, working[i])
		if fr.Rev.last() == 1 {
			break
		}
	}
	addPos := -1
	if len(run) > 0 {
		addPos = commitPos(working, run[len(run)-1])
	}

	distForward := -1
	if delPos >= 0 {
		distForward = delPos - finalPos
	}
	distBackward := -1
	if addPos >= 0 {
		distBackward = finalPos - addPos
	}
	switch {
	case distForward >= 0 && (distBackward < 0 || distForward <= distBackward):
		r.advanceCandidate(label, working, finalPos, delPos, move)
		return true
	case distBackward >= 0:
		for _, c := range run {
			move.AddCommit(c, []string{name})
		}
		return true
	}
	r.log.Warn("extra file cannot be reconciled", "name", label, "file", name)
	return false
}

// fixMissing recovers a labelled file that is absent at the candidate:
// a later add at exactly the labelled revision advances the candidate,
// otherwise an earlier delete is pushed past it.
func (r *LabelResolver) fixMissing(label string, f *FileInfo, labelRev *Revision, finalBranch string, working []*Commit, move *CommitMoveRecord) bool {
	final := move.FinalCommit()
	finalPos := commitPos(working, final)

	for i := finalPos + 1; i < len(working); i++ {
		fr := working[i].MemberFor(f)
		if fr == nil {
			continue
		}
		if !fr.Dead && fr.Rev == labelRev && f.IsRevisionOnBranch(fr.Rev, finalBranch) {
			// Intervening commits touching the file move out of the way.
			for j := finalPos + 1; j < i; j++ {
				if working[j].Touches(f) {
					move.AddCommit(working[j], []string{f.Name})
				}
			}
			r.advanceCandidate(label, working, finalPos, i, move)
			return true
		}
	}
	for i := finalPos; i >= 0; i-- {
		fr := working[i].MemberFor(f)
		if fr == nil {
			continue
		}
		if fr.Dead && f.IsRevisionOnBranch(fr.Rev, finalBranch) {
			move.AddCommit(working[i], []string{f.Name})
			return true
		}
		break
	}
	r.log.Warn("missing file cannot be reconciled",
		"name", label, "file", f.Name, "revision", labelRev.String())
	return false
}

// advanceCandidate moves the final commit forward to a later position,
// sending intervening commits that touch labelled files past it so the
// tree they describe is unchanged at the new candidate.
func (r *LabelResolver) advanceCandidate(label string, working []*Commit, from, to int, move *CommitMoveRecord) {
	newFinal := working[to]
	for i := from + 1; i < to; i++ {
		var touched []string
		for _, fr := range working[i].Revisions() {
			if rev := r.cap.RevisionFor(fr.File, label); rev != nil && !rev.IsEmpty() {
				touched = append(touched, fr.File.Name)
			}
		}
		if len(touched) > 0 {
			move.AddCommit(working[i], touched)
		}
	}
	move.SetFinalCommit(newFinal)
}

func commitPos(working []*Commit, c *Commit) int {
	for i, w := range working {
		if w == c {
			return i
		}
	}
	return -1
}

// Summary renders the resolution results for the diagnostic log.
func (r *LabelResolver) Summary() string {
	return fmt.Sprintf("%s resolution: %d resolved, %d unresolved, %d partial",
		r.cap.Kind, len(r.Resolved), len(r.Unresolved), len(r.Partial))
}
