package main

import (
	"testing"
)

// mergeFixture: trunk c0, branch commits b1 b2, then trunk commits m1
// m2 whose mergepoints reference the branch revisions crosswise.
func mergeFixture(t *testing.T, attached bool) (*BranchStreamCollection, map[string]*Commit) {
	t.Helper()
	rb := newRepo()
	f := rb.file("a.c")
	assertNoError(t, f.AddBranch("BR1", MustParseRevision("1.1.2")))

	c0 := rb.commit("c0", rb.rev(f, "1.1"))
	b1 := rb.commit("b1", rb.rev(f, "1.1.2.1"))
	b2 := rb.commit("b2", rb.rev(f, "1.1.2.2"))
	m1r := rb.rev(f, "1.2")
	m1r.Mergepoint = MustParseRevision("1.1.2.2")
	m1 := rb.commit("m1", m1r)
	m2r := rb.rev(f, "1.3")
	m2r.Mergepoint = MustParseRevision("1.1.2.1")
	m2 := rb.commit("m2", m2r)

	commits := commitList{c0, b1, b2, m1, m2}
	commits.reindex()
	branchpoints := map[string]*Commit{}
	if attached {
		branchpoints["BR1"] = c0
	}
	bsc := NewBranchStreamCollection(commits, branchpoints, testLogger())
	byID := map[string]*Commit{"c0": c0, "b1": b1, "b2": b2, "m1": m1, "m2": m2}
	return bsc, byID
}

func TestCrossedMergesReordered(t *testing.T) {
	bsc, c := mergeFixture(t, true)
	assertNoError(t, ResolveMerges(bsc, testLogger()))
	assertNoError(t, bsc.Verify())

	assertOrder(t, bsc.Commits("BR1"), "b2", "b1")
	assertTrue(t, c["m1"].MergeFrom == c["b2"])
	assertTrue(t, c["m2"].MergeFrom == c["b1"])

	// Merge soundness: each source's index exceeds the previous
	// source's from the same branch.
	assertTrue(t, c["b1"].Index > c["b2"].Index)
}

func TestMergeFromUnattachedBranchIgnored(t *testing.T) {
	bsc, c := mergeFixture(t, false)
	assertNoError(t, ResolveMerges(bsc, testLogger()))

	assertTrue(t, c["m1"].MergeFrom == nil)
	assertTrue(t, c["m2"].MergeFrom == nil)
	assertOrder(t, bsc.Commits("BR1"), "b1", "b2")
}

func TestCrossedMergeBlockedByBranchpoint(t *testing.T) {
	bsc, c := mergeFixture(t, true)
	// Pin b1 by hanging another branch off it.
	nested := NewCommit("n0")
	c["b1"].AddBranchRoot(nested)

	assertNoError(t, ResolveMerges(bsc, testLogger()))
	// No reorder, but the merge edges are still set.
	assertOrder(t, bsc.Commits("BR1"), "b1", "b2")
	assertTrue(t, c["m1"].MergeFrom == c["b2"])
	assertTrue(t, c["m2"].MergeFrom == c["b1"])
}
