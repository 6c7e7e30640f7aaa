// The seams between the core and the outside world: the log source the
// pipeline consumes, the content fetcher and emitter it drives, and the
// progress reporter it keeps updated.  The core never does I/O itself;
// everything behind these interfaces is replaceable, which is also how
// the tests drive the pipeline without a cvs server.

package main

import (
	"time"
)

// LogRecord is one parsed record from the legacy log: a file header, a
// symbolic-name binding, or a revision event.
type LogRecord interface {
	isLogRecord()
}

// FileHeader starts a new file's records.
type FileHeader struct {
	Path   string
	Binary bool
}

// SymbolBinding binds a tag or branch name to a revision of the
// current file.
type SymbolBinding struct {
	Name     string
	Rev      *Revision
	IsBranch bool
}

// RevisionEvent is one revision of the current file.
type RevisionEvent struct {
	Rev        *Revision
	Time       time.Time
	Author     string
	CommitID   string
	Mergepoint *Revision
	Dead       bool
	Message    []string
}

func (FileHeader) isLogRecord()    {}
func (SymbolBinding) isLogRecord() {}
func (RevisionEvent) isLogRecord() {}

// LogSource yields parsed records in file order.  Next returns io.EOF
// when the stream is exhausted.
type LogSource interface {
	Next() (LogRecord, error)
}

// FileContent is the fetched bytes of one (file, revision).
type FileContent struct {
	Name   string
	Data   []byte
	Binary bool
	Dead   bool
}

// ContentFetcher retrieves file contents.  Implementations must be
// safe under concurrent calls up to the configured worker count.
type ContentFetcher interface {
	Fetch(f *FileInfo, rev *Revision) (*FileContent, error)
}

// Identity is a resolved author or tagger.
type Identity struct {
	Name  string
	Email string
}

// Emitter receives the finished history in playback order.
type Emitter interface {
	BeginCommit(branch string, mark int, author Identity, when time.Time,
		message string, fromMark, mergeMark int) error
	FileModify(mode int, path string, data []byte) error
	FileDelete(path string) error
	EndCommit() error
	Tag(name string, commitMark int, tagger Identity, when time.Time) error
	Close() error
}

// Progress is the pipeline's reporting hook; the baton implements it.
type Progress interface {
	StartPhase(name string)
	Tick()
	EndPhase()
}

// nullProgress is used when no baton is wanted, as in tests.
type nullProgress struct{}

func (nullProgress) StartPhase(string) {}
func (nullProgress) Tick()             {}
func (nullProgress) EndPhase()         {}
