// The git fast-import emitter.  Commits arrive in playback order; the
// stream is written through whatever writer the target tool supplied,
// blobs inline, one mark per commit, tags after all commits.

package main

import (
	"bufio"
	"fmt"
	"io"
	"time"
)

const (
	modeText       = 0o100644
	modeExecutable = 0o100755
)

// FastImportEmitter writes the fast-import command stream.
type FastImportEmitter struct {
	w *bufio.Writer
}

func NewFastImportEmitter(w io.Writer) *FastImportEmitter {
	return &FastImportEmitter{w: bufio.NewWriterSize(w, 1<<20)}
}

func (e *FastImportEmitter) BeginCommit(branch string, mark int, author Identity,
	when time.Time, message string, fromMark, mergeMark int) error {

	fmt.Fprintf(e.w, "commit refs/heads/%s\n", branch)
	fmt.Fprintf(e.w, "mark :%d\n", mark)
	fmt.Fprintf(e.w, "committer %s <%s> %d +0000\n", author.Name, author.Email, when.Unix())
	writeData(e.w, []byte(message))
	if fromMark > 0 {
		fmt.Fprintf(e.w, "from :%d\n", fromMark)
	}
	if mergeMark > 0 {
		fmt.Fprintf(e.w, "merge :%d\n", mergeMark)
	}
	return nil
}

func (e *FastImportEmitter) FileModify(mode int, path string, data []byte) error {
	fmt.Fprintf(e.w, "M %o %s %s\n", mode, "inline", path)
	writeData(e.w, data)
	return nil
}

func (e *FastImportEmitter) FileDelete(path string) error {
	fmt.Fprintf(e.w, "D %s\n", path)
	return nil
}

func (e *FastImportEmitter) EndCommit() error {
	_, err := e.w.WriteString("\n")
	return err
}

func (e *FastImportEmitter) Tag(name string, commitMark int, tagger Identity, when time.Time) error {
	fmt.Fprintf(e.w, "tag %s\n", name)
	fmt.Fprintf(e.w, "from :%d\n", commitMark)
	fmt.Fprintf(e.w, "tagger %s <%s> %d +0000\n", tagger.Name, tagger.Email, when.Unix())
	writeData(e.w, nil)
	return nil
}

func (e *FastImportEmitter) Close() error {
	return e.w.Flush()
}

func writeData(w *bufio.Writer, data []byte) {
	fmt.Fprintf(w, "data %d\n", len(data))
	w.Write(data)
	w.WriteString("\n")
}

// EmitHistory streams the finished history: every commit in playback
// order, then one fast-import tag record (with tagger) per resolved label.
func EmitHistory(order []*Commit, emitter Emitter, pool *FetchPool, users *UserMap,
	branchRenamer, tagRenamer *Renamer, tags map[string]*Commit, progress Progress) error {

	marks := make(map[*Commit]int)
	next := 1
	progress.StartPhase("emitting commits")
	for _, c := range order {
		contents, err := pool.FetchCommit(c)
		if err != nil {
			return err
		}
		mark := next
		next++
		marks[c] = mark
		fromMark := 0
		if c.Predecessor != nil {
			fromMark = marks[c.Predecessor]
		}
		mergeMark := 0
		if c.MergeFrom != nil {
			mergeMark = marks[c.MergeFrom]
		}
		branch := branchRenamer.Apply(c.Branch())
		if err := emitter.BeginCommit(branch, mark, users.Resolve(c.Author()),
			c.Time(), c.Message(), fromMark, mergeMark); err != nil {
			return err
		}
		for i, fr := range c.Revisions() {
			if fr.Dead {
				if err := emitter.FileDelete(fr.File.Name); err != nil {
					return err
				}
				continue
			}
			content := contents[i]
			if content == nil {
				return ErrContent.New(fr.File.Name, fr.Rev.String(), "no content fetched")
			}
			if err := emitter.FileModify(modeText, fr.File.Name, content.Data); err != nil {
				return err
			}
		}
		if err := emitter.EndCommit(); err != nil {
			return err
		}
		progress.Tick()
	}
	progress.EndPhase()

	tagger := users.Tagger()
	for _, name := range sortedKeys(tags) {
		c := tags[name]
		mark, ok := marks[c]
		if !ok {
			return ErrImportFailed.New("tag " + name + " points at unemitted commit " + c.CommitID)
		}
		if err := emitter.Tag(tagRenamer.Apply(name), mark, tagger, c.Time()); err != nil {
			return err
		}
	}
	return emitter.Close()
}
