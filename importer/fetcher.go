// Fetching file contents out of cvs.  This is the only concurrent part
// of the importer: an I/O fan-out bounded by the configured process
// count, fronted by an on-disk cache of (file, revision) blobs so a
// re-run never talks to the server twice for the same bytes.

package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/inconshreveable/log15"
	shellquote "github.com/kballard/go-shellquote"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// CvsFetcher shells out to cvs for each (file, revision) and caches the
// result under the cache root.
type CvsFetcher struct {
	argv     []string
	repoRoot string
	sandbox  string
	cacheDir string
	log      log15.Logger

	// StripAdvertising removes the foot-of-message advertising lines
	// some cvsnt clients append.
	StripAdvertising bool

	// NormalizeLineEndings rewrites CRLF to LF in text files.
	NormalizeLineEndings bool

	// present notes cache paths known to exist, shared by the workers.
	present cmap.ConcurrentMap[string, bool]
}

// NewCvsFetcher builds a fetcher from the configured cvs command line.
// Checkouts run inside the sandbox directory when one is given.
func NewCvsFetcher(cvsCommand, repoRoot, sandbox, cacheDir string, log log15.Logger) (*CvsFetcher, error) {
	argv, err := shellquote.Split(cvsCommand)
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, ErrContent.New("cvs", "", "empty cvs command")
	}
	return &CvsFetcher{
		argv:     argv,
		repoRoot: repoRoot,
		sandbox:  sandbox,
		cacheDir: cacheDir,
		log:      log,
		present:  cmap.New[bool](),
	}, nil
}

// Fetch retrieves one revision, from the cache when possible.
func (cf *CvsFetcher) Fetch(f *FileInfo, rev *Revision) (*FileContent, error) {
	path := cf.cachePath(f, rev)
	if _, hit := cf.present.Get(path); hit {
		data, err := os.ReadFile(path)
		if err == nil {
			return cf.content(f, data), nil
		}
	} else if data, err := os.ReadFile(path); err == nil {
		cf.present.Set(path, true)
		return cf.content(f, data), nil
	}

	data, err := cf.checkout(f, rev)
	if err != nil {
		return nil, ErrContent.Wrap(err, f.Name, rev.String(), "checkout failed")
	}
	data = cf.transform(f, data)
	if err := writeAtomic(path, data); err != nil {
		return nil, ErrContent.Wrap(err, f.Name, rev.String(), "cache write failed")
	}
	cf.present.Set(path, true)
	return cf.content(f, data), nil
}

func (cf *CvsFetcher) content(f *FileInfo, data []byte) *FileContent {
	return &FileContent{Name: f.Name, Data: data, Binary: f.Binary}
}

func (cf *CvsFetcher) checkout(f *FileInfo, rev *Revision) ([]byte, error) {
	args := append(append([]string(nil), cf.argv[1:]...),
		"-f", "-q", "-d", cf.repoRoot, "co", "-p", "-r", rev.String(), f.Name)
	cmd := exec.CommandContext(context.Background(), cf.argv[0], args...)
	cmd.Dir = cf.sandbox
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		cf.log.Debug("cvs checkout failed", "file", f.Name, "rev", rev.String(),
			"stderr", errb.String())
		return nil, err
	}
	return out.Bytes(), nil
}

func (cf *CvsFetcher) transform(f *FileInfo, data []byte) []byte {
	if f.Binary {
		return data
	}
	if cf.NormalizeLineEndings {
		data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	}
	if cf.StripAdvertising {
		data = stripAdvertisingLines(data)
	}
	return data
}

// The advertising lines cvsnt GUI clients append to messages also turn
// up in checked-in text files committed through broken tooling.
var advertisingMarkers = [][]byte{
	[]byte("Committed on the Free edition of March Hare Software CVSNT"),
	[]byte("Upgrade to CVS Suite for more features and support"),
}

func stripAdvertisingLines(data []byte) []byte {
	lines := bytes.Split(data, []byte("\n"))
	out := lines[:0]
	for _, line := range lines {
		keep := true
		for _, marker := range advertisingMarkers {
			if bytes.Contains(line, marker) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, line)
		}
	}
	return bytes.Join(out, []byte("\n"))
}

// cachePath shards blobs by a hash of the file name so one directory
// never collects every file in the repository.
func (cf *CvsFetcher) cachePath(f *FileInfo, rev *Revision) string {
	sum := xxhash.Sum64String(f.Name)
	shard := strconv.FormatUint(sum&0xff, 16)
	return filepath.Join(cf.cacheDir, shard, strconv.FormatUint(sum, 16), rev.String())
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// fetchJob asks a worker for one member revision of a commit, keyed so
// the emitter can put results back in member order.
type fetchJob struct {
	index int
	f     *FileInfo
	rev   *Revision
}

type fetchResult struct {
	index   int
	content *FileContent
	err     error
}

// FetchPool fans fetches out over a fixed set of workers.
type FetchPool struct {
	fetcher ContentFetcher
	workers int
	log     log15.Logger
}

func NewFetchPool(fetcher ContentFetcher, workers int, log log15.Logger) *FetchPool {
	if workers < 1 {
		workers = 1
	}
	return &FetchPool{fetcher: fetcher, workers: workers, log: log}
}

// FetchCommit retrieves the live members of a commit, in member order.
// Dead members get a nil slot; the emitter turns those into deletes
// without consulting the fetcher.
func (fp *FetchPool) FetchCommit(c *Commit) ([]*FileContent, error) {
	members := c.Revisions()
	results := make([]*FileContent, len(members))
	jobs := make(chan fetchJob)
	resc := make(chan fetchResult, len(members))

	var wg sync.WaitGroup
	for i := 0; i < fp.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			wlog := fp.log.New("worker", worker)
			for job := range jobs {
				content, err := fp.fetcher.Fetch(job.f, job.rev)
				if err != nil {
					wlog.Debug("fetch failed", "file", job.f.Name, "rev", job.rev.String())
				}
				resc <- fetchResult{index: job.index, content: content, err: err}
			}
		}(i)
	}

	for i, fr := range members {
		if fr.Dead {
			continue
		}
		jobs <- fetchJob{index: i, f: fr.File, rev: fr.Rev}
	}
	close(jobs)
	wg.Wait()
	close(resc)

	var firstErr error
	for res := range resc {
		if res.err != nil && firstErr == nil {
			firstErr = res.err
		}
		results[res.index] = res.content
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
