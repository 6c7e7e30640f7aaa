package main

import (
	"testing"
	"time"

	"github.com/inconshreveable/log15"
)

func assertBool(t *testing.T, see bool, expect bool) {
	t.Helper()
	if see != expect {
		t.Errorf("assertBool: expected %v saw %v", expect, see)
	}
}

func assertTrue(t *testing.T, see bool) {
	t.Helper()
	assertBool(t, see, true)
}

func assertFalse(t *testing.T, see bool) {
	t.Helper()
	assertBool(t, see, false)
}

func assertEqual(t *testing.T, a string, b string) {
	t.Helper()
	if a != b {
		t.Fatalf("assertEqual: expected %q == %q", a, b)
	}
}

func assertIntEqual(t *testing.T, a int, b int) {
	t.Helper()
	if a != b {
		t.Errorf("assertIntEqual: expected %d == %d", a, b)
	}
}

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
}

func testLogger() log15.Logger {
	log := log15.New()
	log.SetHandler(log15.DiscardHandler())
	return log
}

// repoBuilder assembles small synthetic histories for the pipeline
// stages to chew on.
type repoBuilder struct {
	cat  *FileCatalog
	t0   time.Time
	tick int
}

func newRepo() *repoBuilder {
	return &repoBuilder{
		cat: NewFileCatalog(),
		t0:  time.Date(2009, 3, 5, 12, 0, 0, 0, time.UTC),
	}
}

func (rb *repoBuilder) file(name string) *FileInfo {
	return rb.cat.AddFile(name)
}

// rev makes one live file revision; each call advances the clock a
// minute so aggregation keeps events apart.
func (rb *repoBuilder) rev(f *FileInfo, rev string) *FileRevision {
	fr := NewFileRevision(f, MustParseRevision(rev))
	rb.tick++
	fr.Time = rb.t0.Add(time.Duration(rb.tick) * time.Minute)
	fr.Author = "alice"
	return fr
}

func (rb *repoBuilder) deadRev(f *FileInfo, rev string) *FileRevision {
	fr := rb.rev(f, rev)
	fr.Dead = true
	return fr
}

// commit assembles the revisions into a commit and writes the
// file-to-commit back-references, the way verification does.
func (rb *repoBuilder) commit(id string, frs ...*FileRevision) *Commit {
	c := NewCommit(id)
	for _, fr := range frs {
		fr.CommitID = id
		c.Add(fr)
		fr.File.SetCommit(fr.Rev, c)
	}
	return c
}

func commitIDs(commits []*Commit) []string {
	out := make([]string, 0, len(commits))
	for _, c := range commits {
		out = append(out, c.CommitID)
	}
	return out
}

func assertOrder(t *testing.T, commits []*Commit, want ...string) {
	t.Helper()
	got := commitIDs(commits)
	if len(got) != len(want) {
		t.Fatalf("commit order %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("commit order %v, want %v", got, want)
		}
	}
}
