package main

import (
	"testing"
)

func TestRepositoryStateApply(t *testing.T) {
	rb := newRepo()
	f1 := rb.file("a.c")
	f2 := rb.file("b.c")

	rs := NewRepositoryState()
	assertNoError(t, rs.Apply(rb.commit("c1", rb.rev(f1, "1.1"), rb.rev(f2, "1.1"))))
	assertNoError(t, rs.Apply(rb.commit("c2", rb.rev(f1, "1.2"))))
	assertNoError(t, rs.Apply(rb.commit("c3", rb.deadRev(f2, "1.2"))))

	bs := rs.Branch("MAIN")
	assertEqual(t, bs.Get("a.c").String(), "1.2")
	assertFalse(t, bs.IsLive("b.c"))
}

func TestStrictApplyRejectsGaps(t *testing.T) {
	rb := newRepo()
	f := rb.file("a.c")

	rs := NewStrictRepositoryState()
	assertNoError(t, rs.Apply(rb.commit("c1", rb.rev(f, "1.1"))))
	err := rs.Apply(rb.commit("c2", rb.rev(f, "1.3"))) // skipped 1.2
	if !ErrRepoConsistency.Is(err) {
		t.Fatalf("expected consistency error, got %v", err)
	}
}

func TestBranchpointInheritance(t *testing.T) {
	rb := newRepo()
	f1 := rb.file("a.c")
	f2 := rb.file("b.c")
	assertNoError(t, f1.AddBranch("BR1", MustParseRevision("1.2.2")))
	assertNoError(t, f2.AddBranch("BR1", MustParseRevision("1.1.2")))

	rs := NewRepositoryState()
	assertNoError(t, rs.Apply(rb.commit("c1", rb.rev(f1, "1.1"), rb.rev(f2, "1.1"))))
	assertNoError(t, rs.Apply(rb.commit("c2", rb.rev(f1, "1.2"))))
	assertNoError(t, rs.Apply(rb.commit("c3", rb.rev(f1, "1.3"))))

	// The child picked up each file at its own branchpoint and did not
	// follow the parent past it.
	bs := rs.Branch("BR1")
	assertEqual(t, bs.Get("a.c").String(), "1.2")
	assertEqual(t, bs.Get("b.c").String(), "1.1")

	// Changes-only states do not inherit.
	co := NewChangesOnlyState()
	assertNoError(t, co.Apply(rb.commit("c4", rb.rev(f1, "1.1"))))
	assertFalse(t, co.HasBranch("BR1"))
}
