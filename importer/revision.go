// Dotted revision numbers and their arithmetic.
//
// A revision is an interned, immutable vector of positive integers.
// Trunk revisions have two parts (1.7); revisions on a branch have four
// or more (1.7.2.3).  A branch itself is named by an odd-length number,
// the branch stem (1.7.2); the "magic" form cvs writes into symbolic
// name tables (1.7.0.2) is normalised to the stem on parse.  Interning
// means pointer equality is value equality, so revisions can key maps
// and be compared with == throughout the pipeline.

package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Revision is one dotted revision number.  The zero value is not valid;
// use ParseRevision or EmptyRevision.
type Revision struct {
	parts []int
	str   string
}

// EmptyRevision is the sentinel for "no revision".  It is the only
// revision with zero parts.
var EmptyRevision = &Revision{str: ""}

// The interning table is the one piece of process-wide state in the
// importer.  Entries are write-once; after parsing it is only read.
var revInterner = struct {
	sync.Mutex
	table map[string]*Revision
}{table: make(map[string]*Revision)}

// ParseRevision parses and interns a dotted revision number.
func ParseRevision(s string) (*Revision, error) {
	if s == "" {
		return EmptyRevision, nil
	}
	fields := strings.Split(s, ".")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid revision %q", s)
		}
		parts = append(parts, n)
	}
	// Normalise the magic branch form a.b.0.c to the stem a.b.c.
	if len(parts) >= 4 && len(parts)%2 == 0 && parts[len(parts)-2] == 0 {
		parts = append(parts[:len(parts)-2], parts[len(parts)-1])
	}
	for i, p := range parts {
		if p == 0 {
			return nil, fmt.Errorf("invalid revision %q: zero at position %d", s, i+1)
		}
	}
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid revision %q: too few parts", s)
	}
	// Branch numbers are allocated even, except the vendor branch.
	if len(parts)%2 == 1 {
		if parts[len(parts)-1]%2 != 0 && !isVendorParts(parts) {
			return nil, fmt.Errorf("invalid branch number %q", s)
		}
	} else if len(parts) > 2 {
		if parts[len(parts)-2]%2 != 0 && !isVendorParts(parts[:len(parts)-1]) {
			return nil, fmt.Errorf("invalid revision %q: odd branch index", s)
		}
	}
	return intern(parts), nil
}

// MustParseRevision is ParseRevision for literals in tests and tables.
func MustParseRevision(s string) *Revision {
	rev, err := ParseRevision(s)
	if err != nil {
		panic(err)
	}
	return rev
}

func intern(parts []int) *Revision {
	canon := joinParts(parts)
	revInterner.Lock()
	defer revInterner.Unlock()
	if rev, ok := revInterner.table[canon]; ok {
		return rev
	}
	rev := &Revision{parts: append([]int(nil), parts...), str: canon}
	revInterner.table[canon] = rev
	return rev
}

func joinParts(parts []int) string {
	var sb strings.Builder
	for i, p := range parts {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.Itoa(p))
	}
	return sb.String()
}

// The vendor branch 1.1.1 is the one place cvs allocates an odd branch
// number.
func isVendorParts(parts []int) bool {
	return len(parts) == 3 && parts[0] == 1 && parts[1] == 1 && parts[2] == 1
}

func (rev *Revision) String() string {
	if rev.IsEmpty() {
		return "<none>"
	}
	return rev.str
}

func (rev *Revision) IsEmpty() bool {
	return len(rev.parts) == 0
}

func (rev *Revision) Len() int {
	return len(rev.parts)
}

// IsBranch reports whether this is a branch stem rather than a revision
// of a file.
func (rev *Revision) IsBranch() bool {
	return len(rev.parts) >= 3 && len(rev.parts)%2 == 1
}

// IsTrunk reports whether the revision lives on the trunk.
func (rev *Revision) IsTrunk() bool {
	return len(rev.parts) == 2
}

func (rev *Revision) last() int {
	return rev.parts[len(rev.parts)-1]
}

// BranchStem returns the stem of the branch a revision lives on: 1.7.2
// for 1.7.2.3.  A branch stem is its own stem; trunk revisions return
// EmptyRevision.
func (rev *Revision) BranchStem() *Revision {
	switch {
	case rev.IsEmpty() || rev.IsTrunk():
		return EmptyRevision
	case rev.IsBranch():
		return rev
	default:
		return intern(rev.parts[:len(rev.parts)-1])
	}
}

// Branchpoint returns the revision on the parent line from which this
// branch departs: 1.7 for both the stem 1.7.2 and the revision 1.7.2.3.
// Trunk revisions return EmptyRevision.
func (rev *Revision) Branchpoint() *Revision {
	switch {
	case rev.IsEmpty() || rev.IsTrunk():
		return EmptyRevision
	case rev.IsBranch():
		return intern(rev.parts[:len(rev.parts)-1])
	default:
		return intern(rev.parts[:len(rev.parts)-2])
	}
}

// sameLine reports whether two revisions are numbered on the same
// trunk or branch line.
func sameLine(a, b *Revision) bool {
	if len(a.parts) != len(b.parts) {
		return false
	}
	for i := 0; i < len(a.parts)-1; i++ {
		if a.parts[i] != b.parts[i] {
			return false
		}
	}
	return true
}

// DirectlyPrecedes reports whether other is the immediate next revision
// after rev.  Two transitions are tolerated besides the simple
// increment on one line: the empty sentinel directly precedes 1.1, and
// a branchpoint directly precedes the first revision on each of its
// branches (1.7 precedes 1.7.2.1).
func (rev *Revision) DirectlyPrecedes(other *Revision) bool {
	if other.IsEmpty() || other.IsBranch() {
		return false
	}
	if rev.IsEmpty() {
		return len(other.parts) == 2 && other.parts[0] == 1 && other.parts[1] == 1
	}
	if sameLine(rev, other) {
		return other.last() == rev.last()+1
	}
	// Branchpoint to first revision on the branch.
	if len(other.parts) == len(rev.parts)+2 && other.last() == 1 {
		return other.Branchpoint() == rev
	}
	return false
}

// Precedes reports strict ancestry on a single line: 1.2 precedes 1.5,
// 1.7.2.1 precedes 1.7.2.3.  Revisions on different lines never precede
// each other; cross-branch ancestry is a branch-level question answered
// by the file catalog.
func (rev *Revision) Precedes(other *Revision) bool {
	if rev.IsEmpty() || other.IsEmpty() {
		return false
	}
	return sameLine(rev, other) && rev.last() < other.last()
}

// PrecedesOrEquals is Precedes plus identity.
func (rev *Revision) PrecedesOrEquals(other *Revision) bool {
	return rev == other || rev.Precedes(other)
}
