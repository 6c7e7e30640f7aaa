package main

import (
	"testing"
)

func TestHeadOnlyOverlay(t *testing.T) {
	rb := newRepo()
	f1 := rb.file("a.c")
	f2 := rb.file("docs/m.pdf")
	f3 := rb.file("docs/n.pdf")
	assertNoError(t, f1.AddBranch("BR1", MustParseRevision("1.1.2")))
	assertNoError(t, f3.AddBranch("BR1", MustParseRevision("1.1.2")))
	rb.cat.NoteBranchParent("BR1", "MAIN")

	m0 := rb.commit("m0", rb.rev(f1, "1.1"))
	b0 := rb.commit("b0", rb.rev(f1, "1.1.2.1"))
	commits := commitList{m0, b0}
	commits.reindex()
	bsc := NewBranchStreamCollection(commits, map[string]*Commit{"BR1": m0}, testLogger())

	// Head-only shadow state: both pdfs live on the trunk, only one
	// survives on the branch.
	hs := NewChangesOnlyState()
	trunk := rb.commit("h1", rb.rev(f2, "1.3"), rb.rev(f3, "1.1"))
	assertNoError(t, hs.Apply(trunk))
	branchSlice := rb.commit("h2", rb.rev(f3, "1.1.2.1"))
	assertNoError(t, hs.Apply(branchSlice))

	made := SynthesizeHeadOnlyCommits(bsc, hs, rb.cat, testLogger())
	assertIntEqual(t, len(made), 2)
	assertNoError(t, bsc.Verify())

	hoMain := made[0]
	assertEqual(t, hoMain.CommitID, "headonly-MAIN")
	assertEqual(t, hoMain.Branch(), "MAIN")
	assertIntEqual(t, hoMain.Len(), 2)
	assertTrue(t, hoMain.MergeFrom == nil)
	assertTrue(t, bsc.Head("MAIN") == hoMain)

	// The child carries its own live file, explicit deletes for the
	// parent's leftovers, and a merge edge back to the parent overlay.
	hoBranch := made[1]
	assertEqual(t, hoBranch.CommitID, "headonly-BR1")
	assertEqual(t, hoBranch.Branch(), "BR1")
	assertTrue(t, hoBranch.MergeFrom == hoMain)

	live := newStringSet()
	dead := newStringSet()
	for _, fr := range hoBranch.Revisions() {
		if fr.Dead {
			dead.Add(fr.File.Name)
		} else {
			live.Add(fr.File.Name)
		}
	}
	assertTrue(t, live.Contains("docs/n.pdf"))
	assertTrue(t, dead.Contains("docs/m.pdf"))

	// Deterministic stamp: the branch head's time, not the wall clock.
	assertTrue(t, hoBranch.Time().Equal(b0.Time()))

	// Playback still prefix-closed with the overlay appended.
	order, err := PlaybackOrder(bsc, testLogger())
	assertNoError(t, err)
	assertIntEqual(t, len(order), 4)
	assertPrefixClosed(t, order)
}
