// The pipeline driver: parse, aggregate, filter, resolve, build
// streams, resolve merges, overlay, play back, emit.  Data flows
// strictly forward; cancellation is honoured between stages only.

package main

import (
	"io"
	"os"
)

// RunImport executes the whole conversion.
func RunImport(ctx *Context) error {
	cfg := ctx.Config
	log := ctx.Log

	// Parse and collect.
	var input io.Reader = os.Stdin
	if cfg.LogFile != "" && cfg.LogFile != "-" {
		fh, err := os.Open(cfg.LogFile)
		if err != nil {
			return err
		}
		defer fh.Close()
		input = fh
	}
	parser, err := NewCvsLogParser(input, cfg.LogFile, cfg.Encoding)
	if err != nil {
		return err
	}
	ctx.Progress.StartPhase("parsing log")
	revs, excludedBranches, err := CollectLog(parser, ctx.Catalog, cfg.BranchRules, log)
	ctx.Progress.EndPhase()
	if err != nil {
		return err
	}
	for _, b := range excludedBranches {
		log.Debug("excluded branch", "name", b)
	}
	if ctx.Cancelled() {
		return ErrImportFailed.New("interrupted")
	}

	// Aggregate and filter.
	commits := AggregateCommits(revs, log)
	commits = SplitMultiBranchCommits(commits, log)
	filter := NewExclusionFilter(cfg.BranchRules, cfg.FileRules, cfg.HeadOnlyRules, log)
	commits = filter.Filter(commits)
	VerifyCommits(commits, cfg.Fussy, log)
	if ctx.Cancelled() {
		return ErrImportFailed.New("interrupted")
	}

	// Resolve branchpoints, then tags, then the manual adoptions.
	branchNames, tagNames := collectLabels(ctx.Catalog, cfg)
	branchResolver := NewLabelResolver(BranchCapability(), ctx.Catalog, log)
	branchResolver.PartialThreshold = cfg.PartialTagThreshold
	branchResolver.ContinueOnError = cfg.ContinueOnError
	branchResolver.NoReorder = cfg.NoReorder
	ctx.Progress.StartPhase("resolving branches")
	err = branchResolver.Resolve(branchNames, &commits)
	ctx.Progress.EndPhase()
	if err != nil {
		return err
	}
	branchpoints := branchResolver.Resolved

	tagResolver := NewLabelResolver(TagCapability(), ctx.Catalog, log)
	tagResolver.PartialThreshold = cfg.PartialTagThreshold
	tagResolver.ContinueOnError = cfg.ContinueOnError
	tagResolver.NoReorder = cfg.NoReorder
	tagResolver.OnSplit = func(old, included, excluded *Commit) {
		// A branchpoint commit that splits keeps its place through the
		// half left in position.
		for branch, bp := range branchpoints {
			if bp == old {
				branchpoints[branch] = excluded
			}
		}
	}
	ctx.Progress.StartPhase("resolving tags")
	err = tagResolver.Resolve(tagNames, &commits)
	ctx.Progress.EndPhase()
	if err != nil {
		return err
	}

	ResolveManualBranchpoints(&commits, branchNames, cfg.BranchpointRule,
		tagResolver.Resolved, branchpoints, log)
	if !cfg.ContinueOnError {
		if n := len(branchResolver.Unresolved) + len(tagResolver.Unresolved); n > 0 {
			return ErrTagResolution.New("label", "resolution", "unresolved labels remain")
		}
	}
	if ctx.Cancelled() {
		return ErrImportFailed.New("interrupted")
	}

	// Build the streams and finish the graph.
	bsc := NewBranchStreamCollection(commits, branchpoints, log)
	if err := bsc.Verify(); err != nil {
		return err
	}
	if err := ResolveMerges(bsc, log); err != nil {
		return err
	}
	SynthesizeHeadOnlyCommits(bsc, filter.HeadOnlyState, ctx.Catalog, log)
	if err := bsc.Verify(); err != nil {
		return err
	}
	order, err := PlaybackOrder(bsc, log)
	if err != nil {
		return err
	}
	if ctx.Cancelled() {
		return ErrImportFailed.New("interrupted")
	}

	// Emit.
	var out io.Writer = os.Stdout
	if cfg.OutputFile != "" && cfg.OutputFile != "-" {
		fh, err := os.Create(cfg.OutputFile)
		if err != nil {
			return err
		}
		defer fh.Close()
		out = fh
	}
	users := NewUserMap(cfg.DefaultDomain)
	if cfg.UserMapFile != "" {
		fh, err := os.Open(cfg.UserMapFile)
		if err != nil {
			return err
		}
		if err := users.Load(fh); err != nil {
			fh.Close()
			return err
		}
		fh.Close()
	}
	fetcher, err := NewCvsFetcher(cfg.CvsCommand, cfg.RepoRoot, cfg.Sandbox, cfg.CacheDir, log)
	if err != nil {
		return err
	}
	fetcher.StripAdvertising = cfg.StripAdvertising
	fetcher.NormalizeLineEndings = cfg.NormalizeLineEndings
	pool := NewFetchPool(fetcher, cfg.CvsProcesses, log)

	emitRenamer := emissionBranchRenamer(cfg)
	emitter := NewFastImportEmitter(out)
	if err := EmitHistory(order, emitter, pool, users, emitRenamer, cfg.TagRenamer,
		tagResolver.Resolved, ctx.Progress); err != nil {
		return err
	}

	reportLeftovers(ctx, branchResolver, tagResolver)
	return nil
}

// collectLabels gathers the branch and tag names to resolve, applying
// the tag rules (branch rules already applied at parse time).
func collectLabels(cat *FileCatalog, cfg *Config) (branches, tags []string) {
	branchSet := newStringSet()
	tagSet := newStringSet()
	for _, f := range cat.Files() {
		for name := range f.branches {
			branchSet.Add(name)
		}
		for name := range f.tags {
			if cfg.TagRules.Match(name) {
				tagSet.Add(name)
			}
		}
	}
	return branchSet.Ordered(), tagSet.Ordered()
}

// emissionBranchRenamer applies the user's branch renames first, then
// maps the trunk onto the configured main branch name.
func emissionBranchRenamer(cfg *Config) *Renamer {
	r := &Renamer{}
	r.rules = append(r.rules, cfg.BranchRenamer.rules...)
	r.AddRule("^"+mainBranch+"$", cfg.MainBranchName)
	return r
}

func reportLeftovers(ctx *Context, resolvers ...*LabelResolver) {
	for _, r := range resolvers {
		for name, reason := range r.Unresolved {
			warnf("%s %s not imported: %s", r.cap.Kind, name, reason.String())
		}
		for _, name := range r.Partial {
			warnf("%s %s imported partially", r.cap.Kind, name)
		}
		ctx.Log.Info(r.Summary())
	}
}
