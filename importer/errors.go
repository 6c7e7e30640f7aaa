// Failure kinds for the import pipeline.  Verification diagnostics are
// *not* errors; they are stored on commits (see filters.go) and only make
// it into the log.

package main

import (
	errors "gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrParse is a malformed record in the cvs log stream.  Always fatal.
	ErrParse = errors.NewKind("parse error at %s line %d: %s")

	// ErrRepoConsistency is a revision that does not directly follow the
	// previous one during a strict state replay.
	ErrRepoConsistency = errors.NewKind("repository inconsistency: %s")

	// ErrTagResolution is a label that could not be pinned to a single
	// commit.  Downgraded to a warning under continue-on-error.
	ErrTagResolution = errors.NewKind("unable to resolve %s %s: %s")

	// ErrImportFailed is a post-resolution invariant violation.  Always
	// fatal; the output stream cannot be trusted after one of these.
	ErrImportFailed = errors.NewKind("import failed: %s")

	// ErrContent is a failure fetching file contents from cvs.
	ErrContent = errors.NewKind("failed to fetch %s r%s: %s")
)
