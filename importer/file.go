// The file catalog: one FileInfo per rcs file, holding the symbolic
// name tables and the revision-to-commit back-references, plus the
// FileRevision events that flow through the pipeline.

package main

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// mainBranch is the internal name of the trunk.  It is renamed on
// emission if the user asked for a different main branch name.
const mainBranch = "MAIN"

// FileInfo is everything we know about one file in the repository.
type FileInfo struct {
	Name string

	// Binary is set when the file's keyword substitution mode is "b".
	Binary bool

	// BranchAddedOn is the branch the file was first committed on.
	// Normally the trunk; cvsnt records an exception as a dead 1.1
	// revision whose message names the real branch.
	BranchAddedOn string

	tags         map[string]*Revision
	tagsByRev    map[*Revision][]string
	branches     map[string]*Revision
	branchByStem map[*Revision]string
	commits      map[*Revision]*Commit
}

func NewFileInfo(name string) *FileInfo {
	return &FileInfo{
		Name:          name,
		BranchAddedOn: mainBranch,
		tags:          make(map[string]*Revision),
		tagsByRev:     make(map[*Revision][]string),
		branches:      make(map[string]*Revision),
		branchByStem:  make(map[*Revision]string),
		commits:       make(map[*Revision]*Commit),
	}
}

// AddTag binds a tag name to a revision of this file.
func (f *FileInfo) AddTag(name string, rev *Revision) error {
	if rev.IsBranch() || rev.IsEmpty() {
		return fmt.Errorf("tag %s on %s references branch number %s", name, f.Name, rev)
	}
	f.tags[name] = rev
	f.tagsByRev[rev] = append(f.tagsByRev[rev], name)
	return nil
}

// AddBranch binds a branch name to its stem.
func (f *FileInfo) AddBranch(name string, stem *Revision) error {
	if !stem.IsBranch() {
		return fmt.Errorf("branch %s on %s references non-branch number %s", name, f.Name, stem)
	}
	f.branches[name] = stem
	f.branchByStem[stem] = name
	return nil
}

// TagRevision returns the revision a tag names on this file, or nil if
// the file does not carry the tag.
func (f *FileInfo) TagRevision(tag string) *Revision {
	return f.tags[tag]
}

// TagsFor lists the tags bound to a revision.
func (f *FileInfo) TagsFor(rev *Revision) []string {
	return f.tagsByRev[rev]
}

// BranchStem returns the stem of a named branch, or nil.
func (f *FileInfo) BranchStem(branch string) *Revision {
	return f.branches[branch]
}

// BranchpointRevision returns the revision at which a named branch
// departs on this file, or nil if the file does not carry the branch.
func (f *FileInfo) BranchpointRevision(branch string) *Revision {
	stem, ok := f.branches[branch]
	if !ok {
		return nil
	}
	return stem.Branchpoint()
}

// BranchName resolves the branch a revision lives on.  Trunk revisions
// resolve to the main branch; an unregistered stem resolves to "".
func (f *FileInfo) BranchName(rev *Revision) string {
	if rev.IsEmpty() {
		return ""
	}
	if rev.IsTrunk() {
		return mainBranch
	}
	return f.branchByStem[rev.BranchStem()]
}

// IsRevisionOnBranch reports whether a revision of this file lies on
// the named branch.
func (f *FileInfo) IsRevisionOnBranch(rev *Revision, branch string) bool {
	if branch == mainBranch {
		return rev.IsTrunk()
	}
	stem, ok := f.branches[branch]
	return ok && rev.BranchStem() == stem
}

// SetCommit records the commit a revision of this file belongs to.
// Rewritten when commits are split.
func (f *FileInfo) SetCommit(rev *Revision, c *Commit) {
	f.commits[rev] = c
}

// CommitFor returns the commit owning a revision of this file, or nil.
func (f *FileInfo) CommitFor(rev *Revision) *Commit {
	return f.commits[rev]
}

// FileCatalog owns the FileInfos.  Identity is stable: every
// FileRevision points at the catalog's instance for its file.
type FileCatalog struct {
	files map[string]*FileInfo
	order []string

	// branch -> parent branch, first binding wins
	branchParents map[string]string
}

func NewFileCatalog() *FileCatalog {
	return &FileCatalog{
		files:         make(map[string]*FileInfo),
		branchParents: make(map[string]string),
	}
}

// AddFile registers a file, returning the existing entry if the name
// was seen before.
func (cat *FileCatalog) AddFile(name string) *FileInfo {
	if f, ok := cat.files[name]; ok {
		return f
	}
	f := NewFileInfo(name)
	cat.files[name] = f
	cat.order = append(cat.order, name)
	return f
}

func (cat *FileCatalog) Get(name string) *FileInfo {
	return cat.files[name]
}

func (cat *FileCatalog) Len() int {
	return len(cat.order)
}

// Files yields the catalog in registration order.
func (cat *FileCatalog) Files() []*FileInfo {
	out := make([]*FileInfo, 0, len(cat.order))
	for _, name := range cat.order {
		out = append(out, cat.files[name])
	}
	return out
}

// NoteBranchParent records which branch a branch departs from.  The
// first file to bind a branch decides; later conflicting bindings are a
// verification matter, not a parse failure.
func (cat *FileCatalog) NoteBranchParent(branch, parent string) {
	if _, ok := cat.branchParents[branch]; !ok && branch != parent {
		cat.branchParents[branch] = parent
	}
}

// BranchParent returns the parent of a branch; the main branch has none.
func (cat *FileCatalog) BranchParent(branch string) string {
	return cat.branchParents[branch]
}

// IsBranchAncestor reports whether ancestor appears on the parent chain
// of branch (inclusive of branch itself).
func (cat *FileCatalog) IsBranchAncestor(ancestor, branch string) bool {
	for b := branch; b != ""; b = cat.branchParents[b] {
		if b == ancestor {
			return true
		}
	}
	return false
}

// AllBranches lists every branch that has a recorded parent, plus the
// main branch, parents before children.
func (cat *FileCatalog) AllBranches() []string {
	out := []string{mainBranch}
	seen := newStringSet(mainBranch)
	var emit func(parent string)
	emit = func(parent string) {
		for _, name := range sortedKeys(cat.branchParents) {
			if cat.branchParents[name] == parent && !seen.Contains(name) {
				seen.Add(name)
				out = append(out, name)
				emit(name)
			}
		}
	}
	emit(mainBranch)
	// Orphans whose parent chain never reaches the trunk go last.
	for _, name := range sortedKeys(cat.branchParents) {
		if !seen.Contains(name) {
			out = append(out, name)
		}
	}
	return out
}

// FileRevision is one revision event of one file.
type FileRevision struct {
	File       *FileInfo
	Rev        *Revision
	Time       time.Time
	Author     string
	CommitID   string
	Mergepoint *Revision
	Dead       bool

	msg []string
}

func NewFileRevision(f *FileInfo, rev *Revision) *FileRevision {
	return &FileRevision{File: f, Rev: rev, Mergepoint: EmptyRevision}
}

func (fr *FileRevision) AddMessage(line string) {
	fr.msg = append(fr.msg, line)
}

func (fr *FileRevision) Message() string {
	return strings.Join(fr.msg, "\n")
}

// Branch resolves the branch this revision lives on.
func (fr *FileRevision) Branch() string {
	return fr.File.BranchName(fr.Rev)
}

func (fr *FileRevision) String() string {
	return fmt.Sprintf("%s r%s", fr.File.Name, fr.Rev)
}

var addedOnBranchRE = regexp.MustCompile(`file .* was initially added on branch (\S+)`)

// AddedOnBranch detects the placeholder revision cvsnt leaves on the
// trunk when a file is created on a branch: a dead 1.1 whose message
// names the branch.
func (fr *FileRevision) AddedOnBranch() (string, bool) {
	if !fr.Dead || fr.Rev.String() != "1.1" {
		return "", false
	}
	m := addedOnBranchRE.FindStringSubmatch(fr.Message())
	if m == nil {
		return "", false
	}
	branch := strings.TrimSuffix(m[1], ".")
	return branch, true
}
