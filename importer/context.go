// The pipeline context: configuration plus the handles every stage
// needs.  Threaded explicitly; the importer keeps no global state
// beyond the revision interning table.

package main

import (
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/inconshreveable/log15"
)

type Config struct {
	// Inputs.
	LogFile  string
	Sandbox  string
	RepoRoot string
	Encoding string

	// Output.
	OutputFile string

	// Rules.
	TagRules         *InclusionMatcher
	BranchRules      *InclusionMatcher
	FileRules        *InclusionMatcher
	HeadOnlyRules    *InclusionMatcher
	TagRenamer       *Renamer
	BranchRenamer    *Renamer
	BranchpointRule  *Renamer
	MainBranchName   string

	// Users.
	UserMapFile   string
	DefaultDomain string

	// Behaviour toggles.
	PartialTagThreshold  int
	ContinueOnError      bool
	NoReorder            bool
	Fussy                bool
	StripAdvertising     bool
	NormalizeLineEndings bool

	// Content fetch.
	CvsCommand   string
	CvsProcesses int
	CacheDir     string

	Verbose   bool
	DebugFile string
}

func DefaultConfig() *Config {
	return &Config{
		TagRules:            NewInclusionMatcher(true),
		BranchRules:         NewInclusionMatcher(true),
		FileRules:           NewInclusionMatcher(true),
		HeadOnlyRules:       NewInclusionMatcher(false),
		TagRenamer:          &Renamer{},
		BranchRenamer:       &Renamer{},
		BranchpointRule:     &Renamer{},
		MainBranchName:      "master",
		PartialTagThreshold: 30,
		CvsCommand:          "cvs",
		CvsProcesses:        8,
		CacheDir:            "cvs-cache",
	}
}

// Context is handed through the pipeline stages.
type Context struct {
	Config   *Config
	Log      log15.Logger
	Progress Progress
	Catalog  *FileCatalog

	aborted atomic.Bool
}

func NewContext(cfg *Config, log log15.Logger, progress Progress) *Context {
	if progress == nil {
		progress = nullProgress{}
	}
	return &Context{
		Config:   cfg,
		Log:      log,
		Progress: progress,
		Catalog:  NewFileCatalog(),
	}
}

// TrapInterrupts makes SIGINT request a stop at the next stage
// boundary; stages themselves always run to completion.
func (ctx *Context) TrapInterrupts() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		<-ch
		ctx.aborted.Store(true)
	}()
}

// Cancelled is checked between pipeline stages.
func (ctx *Context) Cancelled() bool {
	return ctx.aborted.Load()
}
