package main

import (
	"testing"
)

// twoBranchStreams builds MAIN: m0 m1 m2 and BR1: b0 b1 rooted at m0.
func twoBranchStreams(t *testing.T) (*BranchStreamCollection, commitList) {
	t.Helper()
	rb := newRepo()
	f1 := rb.file("a.c")
	f2 := rb.file("b.c")
	assertNoError(t, f1.AddBranch("BR1", MustParseRevision("1.1.2")))

	m0 := rb.commit("m0", rb.rev(f1, "1.1"), rb.rev(f2, "1.1"))
	b0 := rb.commit("b0", rb.rev(f1, "1.1.2.1"))
	m1 := rb.commit("m1", rb.rev(f2, "1.2"))
	b1 := rb.commit("b1", rb.rev(f1, "1.1.2.2"))
	m2 := rb.commit("m2", rb.rev(f2, "1.3"))
	commits := commitList{m0, b0, m1, b1, m2}
	commits.reindex()
	bsc := NewBranchStreamCollection(commits, map[string]*Commit{"BR1": m0}, testLogger())
	return bsc, commits
}

func TestBranchStreamConstruction(t *testing.T) {
	bsc, _ := twoBranchStreams(t)
	assertNoError(t, bsc.Verify())

	assertEqual(t, bsc.Root("MAIN").CommitID, "m0")
	assertEqual(t, bsc.Head("MAIN").CommitID, "m2")
	assertEqual(t, bsc.Root("BR1").CommitID, "b0")
	assertEqual(t, bsc.Head("BR1").CommitID, "b1")

	// Branch root hangs off its branchpoint.
	root := bsc.Root("BR1")
	assertEqual(t, root.Predecessor.CommitID, "m0")
	assertTrue(t, root.Predecessor.IsBranchpoint())

	// Chains visit strictly increasing indices.
	assertOrder(t, bsc.Commits("MAIN"), "m0", "m1", "m2")
	assertOrder(t, bsc.Commits("BR1"), "b0", "b1")
}

func TestMoveCommitForward(t *testing.T) {
	bsc, _ := twoBranchStreams(t)
	m1 := bsc.Root("MAIN").Successor
	m2 := bsc.Head("MAIN")

	assertNoError(t, bsc.MoveCommit(m1, m2))
	assertNoError(t, bsc.Verify())
	assertOrder(t, bsc.Commits("MAIN"), "m0", "m2", "m1")
	assertEqual(t, bsc.Head("MAIN").CommitID, "m1")

	// Moving backward is refused.
	if err := bsc.MoveCommit(bsc.Head("MAIN"), bsc.Root("MAIN")); err == nil {
		t.Error("backward move unexpectedly allowed")
	}
}

func TestMoveCommitDisplacesRoot(t *testing.T) {
	bsc, _ := twoBranchStreams(t)
	b0 := bsc.Root("BR1")
	b1 := bsc.Head("BR1")
	bp := b0.Predecessor

	assertNoError(t, bsc.MoveCommit(b0, b1))
	assertNoError(t, bsc.Verify())
	assertOrder(t, bsc.Commits("BR1"), "b1", "b0")

	// The new root inherited the branchpoint link and the parent's
	// branches set follows.
	assertEqual(t, bsc.Root("BR1").CommitID, "b1")
	assertTrue(t, bsc.Root("BR1").Predecessor == bp)
	found := false
	for _, b := range bp.Branches {
		if b == bsc.Root("BR1") {
			found = true
		}
	}
	assertTrue(t, found)
}

func TestAppendCommit(t *testing.T) {
	bsc, commits := twoBranchStreams(t)
	rb := newRepo()
	f := rb.file("x.c")
	extra := rb.commit("extra", rb.rev(f, "1.4"))
	extra.SetBranch("MAIN")

	bsc.AppendCommit(extra)
	assertNoError(t, bsc.Verify())
	assertEqual(t, bsc.Head("MAIN").CommitID, "extra")
	assertIntEqual(t, extra.Index, len(commits))
}
