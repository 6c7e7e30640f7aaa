package main

import (
	"testing"
)

func newTagResolver(rb *repoBuilder) *LabelResolver {
	r := NewLabelResolver(TagCapability(), rb.cat, testLogger())
	r.PartialThreshold = 30
	return r
}

// A tag straddling two commits forces the later commit to split: the
// half carrying the tagged revision keeps the tag, the half that ran
// ahead follows it.
func TestResolveTagSplitsStraddlingCommit(t *testing.T) {
	rb := newRepo()
	f1 := rb.file("a.c")
	f2 := rb.file("b.c")
	assertNoError(t, f1.AddTag("t", MustParseRevision("1.2")))
	assertNoError(t, f2.AddTag("t", MustParseRevision("1.2")))

	c0 := rb.commit("c0", rb.rev(f1, "1.1"), rb.rev(f2, "1.1"))
	c1 := rb.commit("c1", rb.rev(f1, "1.2"))
	c2 := rb.commit("c2", rb.rev(f1, "1.3"), rb.rev(f2, "1.2"))
	commits := commitList{c0, c1, c2}
	commits.reindex()

	r := newTagResolver(rb)
	assertNoError(t, r.Resolve([]string{"t"}, &commits))

	assertOrder(t, commits, "c0", "c1", "c2-1", "c2-2")
	tagged := r.Resolved["t"]
	assertEqual(t, tagged.CommitID, "c2-1")
	assertIntEqual(t, tagged.Len(), 1)
	assertEqual(t, tagged.Revisions()[0].File.Name, "b.c")
	// Back-references follow the split halves.
	assertTrue(t, f2.CommitFor(MustParseRevision("1.2")) == tagged)
	assertTrue(t, f1.CommitFor(MustParseRevision("1.3")) == commits[3])
	assertResolutionCorrect(t, commits, r, "t")
}

// An unrelated file added between the tagged commits is moved past the
// candidate rather than splitting anything.
func TestResolveTagReordersInterveningAdd(t *testing.T) {
	rb := newRepo()
	f1 := rb.file("a.c")
	f2 := rb.file("b.c")
	f3 := rb.file("c.c")
	assertNoError(t, f1.AddTag("t", MustParseRevision("1.1")))
	assertNoError(t, f2.AddTag("t", MustParseRevision("1.2")))

	c0 := rb.commit("c0", rb.rev(f1, "1.1"), rb.rev(f2, "1.1"))
	c1 := rb.commit("c1", rb.rev(f3, "1.1"))
	c2 := rb.commit("c2", rb.rev(f2, "1.2"))
	commits := commitList{c0, c1, c2}
	commits.reindex()

	r := newTagResolver(rb)
	assertNoError(t, r.Resolve([]string{"t"}, &commits))

	assertOrder(t, commits, "c0", "c2", "c1")
	assertEqual(t, r.Resolved["t"].CommitID, "c2")
	assertResolutionCorrect(t, commits, r, "t")
}

// A file deleted before the tag point needs no repair at all.
func TestResolveTagToleratesEarlierDelete(t *testing.T) {
	rb := newRepo()
	f1 := rb.file("a.c")
	f2 := rb.file("b.c")
	assertNoError(t, f1.AddTag("t", MustParseRevision("1.2")))

	c0 := rb.commit("c0", rb.rev(f1, "1.1"), rb.rev(f2, "1.1"))
	c1 := rb.commit("c1", rb.deadRev(f2, "1.2"))
	c2 := rb.commit("c2", rb.rev(f1, "1.2"))
	commits := commitList{c0, c1, c2}
	commits.reindex()

	r := newTagResolver(rb)
	assertNoError(t, r.Resolve([]string{"t"}, &commits))

	assertOrder(t, commits, "c0", "c1", "c2")
	assertEqual(t, r.Resolved["t"].CommitID, "c2")
	assertResolutionCorrect(t, commits, r, "t")
}

// A tagged file deleted before the candidate gets its delete pushed
// past the tag point.
func TestResolveTagRecoversDeletedFile(t *testing.T) {
	rb := newRepo()
	f1 := rb.file("a.c")
	f2 := rb.file("b.c")
	assertNoError(t, f1.AddTag("t", MustParseRevision("1.2")))
	assertNoError(t, f2.AddTag("t", MustParseRevision("1.1")))

	c0 := rb.commit("c0", rb.rev(f1, "1.1"), rb.rev(f2, "1.1"))
	cd := rb.commit("cd", rb.deadRev(f2, "1.2"))
	c1 := rb.commit("c1", rb.rev(f1, "1.2"))
	commits := commitList{c0, cd, c1}
	commits.reindex()

	r := newTagResolver(rb)
	assertNoError(t, r.Resolve([]string{"t"}, &commits))

	assertOrder(t, commits, "c0", "c1", "cd")
	assertEqual(t, r.Resolved["t"].CommitID, "c1")
	assertResolutionCorrect(t, commits, r, "t")
}

// Resolving an already-resolved tag is a no-op.
func TestResolveTagIdempotent(t *testing.T) {
	rb := newRepo()
	f1 := rb.file("a.c")
	f2 := rb.file("b.c")
	assertNoError(t, f1.AddTag("t", MustParseRevision("1.2")))
	assertNoError(t, f2.AddTag("t", MustParseRevision("1.2")))

	c0 := rb.commit("c0", rb.rev(f1, "1.1"), rb.rev(f2, "1.1"))
	c1 := rb.commit("c1", rb.rev(f1, "1.2"))
	c2 := rb.commit("c2", rb.rev(f1, "1.3"), rb.rev(f2, "1.2"))
	commits := commitList{c0, c1, c2}
	commits.reindex()

	r := newTagResolver(rb)
	assertNoError(t, r.Resolve([]string{"t"}, &commits))
	first := commitIDs(commits)
	target := r.Resolved["t"]

	again := newTagResolver(rb)
	assertNoError(t, again.Resolve([]string{"t"}, &commits))
	assertOrder(t, commits, first...)
	assertTrue(t, again.Resolved["t"] == target)
}

// A tag with no labelled revisions anywhere is reported, not fatal.
func TestResolveTagNoCandidate(t *testing.T) {
	rb := newRepo()
	f1 := rb.file("a.c")
	c0 := rb.commit("c0", rb.rev(f1, "1.1"))
	commits := commitList{c0}
	commits.reindex()

	r := newTagResolver(rb)
	assertNoError(t, r.Resolve([]string{"ghost"}, &commits))
	assertIntEqual(t, len(r.Resolved), 0)
	assertBool(t, r.Unresolved["ghost"] == failNoCandidate, true)
}

// Too many live-but-unlabelled files make the tag partial: skipped
// when strict, resolved with a warning under continue-on-error.
func TestResolveTagPartial(t *testing.T) {
	build := func() (*repoBuilder, commitList) {
		rb := newRepo()
		f1 := rb.file("a.c")
		f2 := rb.file("b.c")
		assertNoError(t, f1.AddTag("t", MustParseRevision("1.2")))
		c0 := rb.commit("c0", rb.rev(f1, "1.1"), rb.rev(f2, "1.1"))
		c1 := rb.commit("c1", rb.rev(f1, "1.2"))
		commits := commitList{c0, c1}
		commits.reindex()
		return rb, commits
	}

	rb, commits := build()
	strict := newTagResolver(rb)
	strict.PartialThreshold = 0
	assertNoError(t, strict.Resolve([]string{"t"}, &commits))
	assertBool(t, strict.Unresolved["t"] == failPartial, true)

	rb, commits = build()
	lax := newTagResolver(rb)
	lax.PartialThreshold = 0
	lax.ContinueOnError = true
	assertNoError(t, lax.Resolve([]string{"t"}, &commits))
	assertEqual(t, lax.Resolved["t"].CommitID, "c1")
	assertIntEqual(t, len(lax.Partial), 1)
	assertResolutionCorrect(t, commits, lax, "t")
}

// Under no-reorder, a tag that would need moves is left unresolved.
func TestResolveTagNoReorder(t *testing.T) {
	rb := newRepo()
	f1 := rb.file("a.c")
	f2 := rb.file("b.c")
	assertNoError(t, f1.AddTag("t", MustParseRevision("1.2")))
	assertNoError(t, f2.AddTag("t", MustParseRevision("1.2")))

	c0 := rb.commit("c0", rb.rev(f1, "1.1"), rb.rev(f2, "1.1"))
	c1 := rb.commit("c1", rb.rev(f1, "1.2"))
	c2 := rb.commit("c2", rb.rev(f1, "1.3"), rb.rev(f2, "1.2"))
	commits := commitList{c0, c1, c2}
	commits.reindex()

	r := newTagResolver(rb)
	r.NoReorder = true
	assertNoError(t, r.Resolve([]string{"t"}, &commits))
	assertBool(t, r.Unresolved["t"] == failNoReorder, true)
	assertOrder(t, commits, "c0", "c1", "c2")
}

// Branch resolution is the same algorithm keyed on branchpoints, with
// files added on the branch excused from the missing set.
func TestResolveBranchpoint(t *testing.T) {
	rb := newRepo()
	f1 := rb.file("a.c")
	f2 := rb.file("b.c")
	f3 := rb.file("c.c")
	assertNoError(t, f1.AddBranch("BR1", MustParseRevision("1.2.2")))
	assertNoError(t, f2.AddBranch("BR1", MustParseRevision("1.1.2")))
	assertNoError(t, f3.AddBranch("BR1", MustParseRevision("1.1.2")))
	f3.BranchAddedOn = "BR1"

	c0 := rb.commit("c0", rb.rev(f1, "1.1"), rb.rev(f2, "1.1"))
	c1 := rb.commit("c1", rb.rev(f1, "1.2"))
	commits := commitList{c0, c1}
	commits.reindex()

	r := NewLabelResolver(BranchCapability(), rb.cat, testLogger())
	r.PartialThreshold = 30
	assertNoError(t, r.Resolve([]string{"BR1"}, &commits))
	assertEqual(t, r.Resolved["BR1"].CommitID, "c1")
}

// assertResolutionCorrect replays the commit list and checks that at
// the resolved commit every labelled file sits at exactly its labelled
// revision and nothing unlabelled is live.
func assertResolutionCorrect(t *testing.T, commits commitList, r *LabelResolver, label string) {
	t.Helper()
	target := r.Resolved[label]
	if target == nil {
		t.Fatalf("label %s not resolved", label)
	}
	state := NewRepositoryState()
	for _, c := range commits {
		assertNoError(t, state.Apply(c))
		if c == target {
			break
		}
	}
	bs := state.Branch(target.Branch())
	for _, f := range r.cat.Files() {
		labelRev := r.cap.RevisionFor(f, label)
		if labelRev == nil || labelRev.IsEmpty() {
			continue
		}
		if bs.Get(f.Name) != labelRev {
			t.Errorf("file %s at %s, want %s", f.Name, bs.Get(f.Name), labelRev)
		}
	}
	if !r.ContinueOnError {
		for _, name := range bs.LiveFiles() {
			f := r.cat.Get(name)
			if rev := r.cap.RevisionFor(f, label); rev == nil || rev.IsEmpty() {
				t.Errorf("unlabelled file %s live at resolved commit", name)
			}
		}
	}
}
