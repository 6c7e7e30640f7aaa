// Parsing `cvs rlog` output into log records, and collecting those
// records into the file catalog and the flat revision stream the
// aggregator consumes.  The format is line-oriented but full of
// semi-structured stanzas; malformed input is always fatal here, before
// anything downstream can build on it.

package main

import (
	"bufio"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/inconshreveable/log15"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

const (
	revisionSeparator = "----------------------------"
	fileSeparator     = "============================================================================="
)

var (
	rcsFileRE    = regexp.MustCompile(`^RCS file: (.*),v$`)
	symbolRE     = regexp.MustCompile(`^\t(\S+): ([0-9.]+)$`)
	revisionRE   = regexp.MustCompile(`^revision ([0-9.]+)`)
	dateLineRE   = regexp.MustCompile(`^date: ([^;]+);`)
	fieldRE      = regexp.MustCompile(`(\w+): ([^;]*);`)
	kwsRE        = regexp.MustCompile(`^keyword substitution: (\S+)`)
)

// Timestamps appear in a couple of near-iso shapes depending on the
// server version.
var dateFormats = []string{
	"2006/01/02 15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
}

// CvsLogParser reads rlog output as a LogSource.
type CvsLogParser struct {
	scanner *bufio.Scanner
	decoder *encoding.Decoder
	name    string
	lineno  int

	// queued records not yet handed out
	queue []LogRecord

	inSymbols bool
	curBinary bool
	done      bool
}

// NewCvsLogParser wraps a log stream.  encodingName selects the legacy
// message encoding ("" means the bytes are already UTF-8).
func NewCvsLogParser(r io.Reader, name, encodingName string) (*CvsLogParser, error) {
	p := &CvsLogParser{scanner: bufio.NewScanner(r), name: name}
	p.scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if encodingName != "" {
		enc, err := ianaindex.IANA.Encoding(encodingName)
		if err != nil || enc == nil {
			return nil, ErrParse.New(name, 0, "unknown encoding "+encodingName)
		}
		p.decoder = enc.NewDecoder()
	}
	return p, nil
}

func (p *CvsLogParser) Next() (LogRecord, error) {
	for {
		if len(p.queue) > 0 {
			rec := p.queue[0]
			p.queue = p.queue[1:]
			return rec, nil
		}
		if p.done {
			return nil, io.EOF
		}
		if err := p.fill(); err != nil {
			return nil, err
		}
	}
}

func (p *CvsLogParser) scan() bool {
	if !p.scanner.Scan() {
		p.done = true
		return false
	}
	p.lineno++
	return true
}

// fill consumes lines until at least one record is queued or the input
// ends.
func (p *CvsLogParser) fill() error {
	for len(p.queue) == 0 {
		if !p.scan() {
			return p.scanner.Err()
		}
		line := p.scanner.Text()
		switch {
		case rcsFileRE.MatchString(line):
			path := rcsFileRE.FindStringSubmatch(line)[1]
			p.inSymbols = false
			p.curBinary = false
			p.queue = append(p.queue, FileHeader{Path: workingPath(path)})
		case line == "symbolic names:":
			p.inSymbols = true
		case p.inSymbols && symbolRE.MatchString(line):
			m := symbolRE.FindStringSubmatch(line)
			rev, err := ParseRevision(m[2])
			if err != nil {
				return ErrParse.New(p.name, p.lineno, err.Error())
			}
			p.queue = append(p.queue, SymbolBinding{Name: m[1], Rev: rev, IsBranch: rev.IsBranch()})
		case p.inSymbols && !strings.HasPrefix(line, "\t"):
			p.inSymbols = false
			p.handleHeaderLine(line)
		case line == revisionSeparator:
			if err := p.parseRevision(); err != nil {
				return err
			}
		case line == fileSeparator:
			// end of file's records
		default:
			p.handleHeaderLine(line)
		}
	}
	return nil
}

func (p *CvsLogParser) handleHeaderLine(line string) {
	if m := kwsRE.FindStringSubmatch(line); m != nil {
		p.curBinary = m[1] == "b"
		// Patch the pending header if it has not been handed out yet;
		// otherwise queue a replacement.
		for i := len(p.queue) - 1; i >= 0; i-- {
			if fh, ok := p.queue[i].(FileHeader); ok {
				fh.Binary = p.curBinary
				p.queue[i] = fh
				return
			}
		}
		p.queue = append(p.queue, FileHeader{Path: "", Binary: p.curBinary})
	}
}

// parseRevision reads one revision stanza, the separator line having
// just been consumed.
func (p *CvsLogParser) parseRevision() error {
	if !p.scan() {
		return nil
	}
	line := p.scanner.Text()
	m := revisionRE.FindStringSubmatch(line)
	if m == nil {
		// A separator inside a commit message; nothing to parse.
		return nil
	}
	rev, err := ParseRevision(m[1])
	if err != nil {
		return ErrParse.New(p.name, p.lineno, err.Error())
	}
	if !p.scan() {
		return ErrParse.New(p.name, p.lineno, "truncated revision stanza")
	}
	dateLine := p.scanner.Text()
	if !dateLineRE.MatchString(dateLine) {
		return ErrParse.New(p.name, p.lineno, "expected date line, got "+dateLine)
	}
	event := RevisionEvent{Rev: rev, Mergepoint: EmptyRevision}
	for _, f := range fieldRE.FindAllStringSubmatch(dateLine, -1) {
		key, value := f[1], strings.TrimSpace(f[2])
		switch key {
		case "date":
			when, err := parseLogDate(value)
			if err != nil {
				return ErrParse.New(p.name, p.lineno, err.Error())
			}
			event.Time = when
		case "author":
			event.Author = value
		case "state":
			event.Dead = value == "dead"
		case "commitid":
			event.CommitID = value
		case "mergepoint", "mergepoint1":
			mp, err := ParseRevision(value)
			if err != nil {
				return ErrParse.New(p.name, p.lineno, err.Error())
			}
			event.Mergepoint = mp
		}
	}
	// Message lines run to the next separator.
	for p.scan() {
		line := p.scanner.Text()
		if line == revisionSeparator {
			p.queue = append(p.queue, event)
			return p.parseRevision()
		}
		if line == fileSeparator {
			break
		}
		if strings.HasPrefix(line, "branches:") && len(event.Message) == 0 {
			continue
		}
		decoded, err := p.decode(line)
		if err != nil {
			return ErrParse.New(p.name, p.lineno, "undecodable message line")
		}
		event.Message = append(event.Message, decoded)
	}
	p.queue = append(p.queue, event)
	return nil
}

func (p *CvsLogParser) decode(line string) (string, error) {
	if p.decoder == nil {
		return line, nil
	}
	return p.decoder.String(line)
}

func parseLogDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateFormats {
		when, err := time.Parse(layout, s)
		if err == nil {
			return when.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// workingPath strips the ,v suffix (already done by the caller) and the
// Attic component cvs leaves behind for files dead at head.
func workingPath(rcsPath string) string {
	path := strings.TrimPrefix(rcsPath, "/")
	if i := strings.LastIndex(path, "/Attic/"); i >= 0 {
		path = path[:i] + path[i+len("/Attic"):]
	}
	return strings.TrimPrefix(path, "Attic/")
}

// CollectLog drains a log source into the catalog and the flat
// revision stream.  Branch bindings failing the branch rules are
// dropped and reported; tag bindings always survive, since tags are
// filtered at resolution time.
func CollectLog(src LogSource, cat *FileCatalog, branchRules *InclusionMatcher,
	log log15.Logger) ([]*FileRevision, []string, error) {

	var revs []*FileRevision
	var current *FileInfo
	excluded := newStringSet()

	finishFile := func() {
		if current == nil {
			return
		}
		for name, stem := range current.branches {
			parent := current.BranchName(stem.Branchpoint())
			if parent != "" {
				cat.NoteBranchParent(name, parent)
			}
		}
	}

	for {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		switch r := rec.(type) {
		case FileHeader:
			if r.Path == "" {
				if current != nil {
					current.Binary = r.Binary
				}
				continue
			}
			finishFile()
			current = cat.AddFile(r.Path)
			current.Binary = r.Binary
		case SymbolBinding:
			if current == nil {
				return nil, nil, ErrParse.New("log", 0, "symbol before file header")
			}
			if r.IsBranch {
				if !branchRules.Match(r.Name) {
					excluded.Add(r.Name)
					continue
				}
				if err := current.AddBranch(r.Name, r.Rev); err != nil {
					return nil, nil, ErrParse.New("log", 0, err.Error())
				}
			} else if err := current.AddTag(r.Name, r.Rev); err != nil {
				return nil, nil, ErrParse.New("log", 0, err.Error())
			}
		case RevisionEvent:
			if current == nil {
				return nil, nil, ErrParse.New("log", 0, "revision before file header")
			}
			fr := NewFileRevision(current, r.Rev)
			fr.Time = r.Time
			fr.Author = r.Author
			fr.CommitID = r.CommitID
			fr.Mergepoint = r.Mergepoint
			fr.Dead = r.Dead
			for _, line := range r.Message {
				fr.AddMessage(line)
			}
			revs = append(revs, fr)
		}
	}
	finishFile()
	log.Info("collected log", "files", cat.Len(), "revisions", len(revs),
		"excluded-branches", excluded.Len())
	return revs, excluded.Ordered(), nil
}
