// Mapping cvs user names to full identities.

package main

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	fqme "gitlab.com/esr/fqme"
)

var userMapLineRE = regexp.MustCompile(`^(\S+)\s*=\s*(.*?)\s*<(.*)>$`)

// UserMap resolves cvs user names.  Unmapped names fall back to
// name@default-domain; the tagger identity for emitted tags is whoever
// is running the import.
type UserMap struct {
	users         map[string]Identity
	DefaultDomain string

	// TestIdentity pins the tagger in tests, where asking the host who
	// we are would make the output machine-dependent.
	TestIdentity *Identity
}

func NewUserMap(defaultDomain string) *UserMap {
	return &UserMap{users: make(map[string]Identity), DefaultDomain: defaultDomain}
}

// Load reads a user-map file: one `cvsname = Full Name <email>` per
// line, # comments and blank lines ignored.
func (um *UserMap) Load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := userMapLineRE.FindStringSubmatch(line)
		if m == nil {
			return fmt.Errorf("user map line %d: cannot parse %q", lineno, line)
		}
		um.users[m[1]] = Identity{Name: m[2], Email: m[3]}
	}
	return scanner.Err()
}

func (um *UserMap) Add(cvsName string, id Identity) {
	um.users[cvsName] = id
}

// Resolve maps a cvs user name to an identity.
func (um *UserMap) Resolve(cvsName string) Identity {
	if id, ok := um.users[cvsName]; ok {
		return id
	}
	if cvsName == "" {
		cvsName = "unknown"
	}
	return Identity{Name: cvsName, Email: cvsName + "@" + um.DefaultDomain}
}

// Tagger is the identity stamped on emitted tags: the person running
// the import, as far as the host can tell.
func (um *UserMap) Tagger() Identity {
	if um.TestIdentity != nil {
		return *um.TestIdentity
	}
	name, email, err := fqme.WhoAmI()
	if err != nil {
		return Identity{Name: "cvs import", Email: "cvs-import@" + um.DefaultDomain}
	}
	return Identity{Name: name, Email: email}
}
