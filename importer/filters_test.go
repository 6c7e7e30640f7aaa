package main

import (
	"strings"
	"testing"
)

// branchFixture registers a branch BR1 rooted at 1.1 on each file.
func branchFixture(rb *repoBuilder, files ...*FileInfo) {
	for _, f := range files {
		if err := f.AddBranch("BR1", MustParseRevision("1.1.2")); err != nil {
			panic(err)
		}
	}
}

func TestSplitMultiBranchCommits(t *testing.T) {
	rb := newRepo()
	f1 := rb.file("a.c")
	f2 := rb.file("b.c")
	branchFixture(rb, f2)

	c := rb.commit("x1", rb.rev(f1, "1.2"), rb.rev(f2, "1.1.2.1"))
	out := SplitMultiBranchCommits(commitList{c}, testLogger())
	assertIntEqual(t, len(out), 2)
	assertEqual(t, out[0].CommitID, "x1-MAIN")
	assertEqual(t, out[0].Branch(), "MAIN")
	assertEqual(t, out[1].CommitID, "x1-BR1")
	assertEqual(t, out[1].Branch(), "BR1")
	assertIntEqual(t, out[0].Index, 0)
	assertIntEqual(t, out[1].Index, 1)
}

func TestExclusionFilter(t *testing.T) {
	rb := newRepo()
	f1 := rb.file("src/a.c")
	f2 := rb.file("gen/b.c")
	f3 := rb.file("docs/manual.pdf")

	files := NewInclusionMatcher(true)
	assertNoError(t, files.AddRule(`^gen/`, false))
	headOnly := NewInclusionMatcher(false)
	assertNoError(t, headOnly.AddRule(`^docs/`, true))
	branches := NewInclusionMatcher(true)

	c1 := rb.commit("c1", rb.rev(f1, "1.1"), rb.rev(f2, "1.1"), rb.rev(f3, "1.1"))
	c2 := rb.commit("c2", rb.rev(f2, "1.2"))
	ef := NewExclusionFilter(branches, files, headOnly, testLogger())
	out := ef.Filter(commitList{c1, c2})

	// c1 keeps only the included file; c2 loses everything and drops.
	assertIntEqual(t, len(out), 1)
	assertIntEqual(t, out[0].Len(), 1)
	assertEqual(t, out[0].Revisions()[0].File.Name, "src/a.c")

	// The head-only slice went into the shadow state.
	hs := ef.HeadOnlyState.Branch("MAIN")
	assertTrue(t, hs.IsLive("docs/manual.pdf"))
	assertFalse(t, hs.IsLive("gen/b.c"))
}

func TestVerifyCommits(t *testing.T) {
	rb := newRepo()
	f1 := rb.file("a.c")
	f2 := rb.file("b.c")

	r1 := rb.rev(f1, "1.1")
	r2 := rb.rev(f2, "1.1")
	r2.Author = "bob"
	c := rb.commit("c1", r1, r2)
	VerifyCommits(commitList{c}, false, testLogger())
	assertIntEqual(t, len(c.Errors), 1)
	assertTrue(t, strings.Contains(c.Errors[0], "multiple authors"))

	// Back-references are written during verification.
	assertTrue(t, f1.CommitFor(MustParseRevision("1.1")) == c)
}

func TestVerifyMergepoints(t *testing.T) {
	rb := newRepo()
	f1 := rb.file("a.c")
	f2 := rb.file("b.c")
	assertNoError(t, f1.AddBranch("BR1", MustParseRevision("1.1.2")))
	assertNoError(t, f2.AddBranch("BR2", MustParseRevision("1.1.2")))

	r1 := rb.rev(f1, "1.2")
	r1.Mergepoint = MustParseRevision("1.1.2.1")
	r2 := rb.rev(f2, "1.2")
	r2.Mergepoint = MustParseRevision("1.1.2.1")
	c := rb.commit("c1", r1, r2)
	verifyCommit(c, false)
	assertIntEqual(t, len(c.Errors), 1)
	assertTrue(t, strings.Contains(c.Errors[0], "multiple branches merged from"))
}
