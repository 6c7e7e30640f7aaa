// cvsnt-git-importer converts a cvsnt repository's per-file history
// into a git fast-import stream.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	shlex "github.com/anmitsu/go-shlex"
	"github.com/urfave/cli/v2"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		errorf("cvs-import: %s", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	cfg := DefaultConfig()
	return &cli.App{
		Name:  "cvs-import",
		Usage: "convert cvsnt per-file history into a git fast-import stream",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log", Usage: "cvs rlog output to read (- for stdin)", Value: "-"},
			&cli.StringFlag{Name: "sandbox", Usage: "checked-out sandbox `DIR`"},
			&cli.StringFlag{Name: "repo", Usage: "cvs repository root for checkouts"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "fast-import stream destination (- for stdout)", Value: "-"},
			&cli.StringFlag{Name: "encoding", Usage: "legacy log message `ENCODING` (iana name)"},
			&cli.StringFlag{Name: "options", Usage: "read additional switches from `FILE`, one per line"},

			&cli.StringSliceFlag{Name: "include-tag", Usage: "regex of tags to include"},
			&cli.StringSliceFlag{Name: "exclude-tag", Usage: "regex of tags to exclude"},
			&cli.StringSliceFlag{Name: "include-branch", Usage: "regex of branches to include"},
			&cli.StringSliceFlag{Name: "exclude-branch", Usage: "regex of branches to exclude"},
			&cli.StringSliceFlag{Name: "include-file", Usage: "regex of files to include"},
			&cli.StringSliceFlag{Name: "exclude-file", Usage: "regex of files to exclude"},
			&cli.StringSliceFlag{Name: "head-only", Usage: "regex of files imported at branch heads only"},
			&cli.StringSliceFlag{Name: "rename-tag", Usage: "`PATTERN/REPLACEMENT` tag rename rule"},
			&cli.StringSliceFlag{Name: "rename-branch", Usage: "`PATTERN/REPLACEMENT` branch rename rule"},
			&cli.StringSliceFlag{Name: "branchpoint-rule", Usage: "`PATTERN/REPLACEMENT` mapping branch names to branchpoint tags"},

			&cli.StringFlag{Name: "user-map", Usage: "user map `FILE`"},
			&cli.StringFlag{Name: "default-domain", Usage: "email domain for unmapped users", Value: "localhost"},
			&cli.StringFlag{Name: "main-branch", Usage: "name for the trunk in the output", Value: "master"},

			&cli.IntFlag{Name: "partial-tag-threshold", Usage: "extra files tolerated before a tag is partial", Value: 30},
			&cli.BoolFlag{Name: "continue-on-error", Usage: "downgrade resolution failures to warnings"},
			&cli.BoolFlag{Name: "no-reorder", Usage: "never reorder commits; leave such labels unresolved"},
			&cli.BoolFlag{Name: "fussy", Usage: "stricter commit verification"},
			&cli.BoolFlag{Name: "strip-advertising", Usage: "remove cvsnt advertising lines"},
			&cli.BoolFlag{Name: "normalize-line-endings", Usage: "rewrite CRLF to LF in text files"},

			&cli.StringFlag{Name: "cvs-command", Usage: "cvs executable (with leading options) for checkouts", Value: "cvs"},
			&cli.IntFlag{Name: "cvs-processes", Usage: "concurrent checkout processes", Value: 8},
			&cli.StringFlag{Name: "cache-dir", Usage: "content cache `DIR`", Value: "cvs-cache"},

			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging to stderr"},
			&cli.StringFlag{Name: "debug-log", Usage: "write a full debug log to `FILE`"},
		},
		Action: func(c *cli.Context) error {
			if optfile := c.String("options"); optfile != "" {
				args, err := readOptionsFile(optfile)
				if err != nil {
					return err
				}
				// Re-run with the file's switches spliced in ahead of
				// the command line, so the command line wins.
				if len(args) > 0 {
					// Nested --options directives are dropped; one
					// level of indirection is plenty.
					argv := append([]string{os.Args[0]}, stripOptionsFlag(args)...)
					argv = append(argv, stripOptionsFlag(os.Args[1:])...)
					return newApp().Run(argv)
				}
			}
			if err := configure(cfg, c); err != nil {
				return err
			}
			log, err := setupLogging(cfg.DebugFile, cfg.Verbose)
			if err != nil {
				return err
			}
			ctx := NewContext(cfg, log, NewBaton())
			ctx.TrapInterrupts()
			return RunImport(ctx)
		},
	}
}

func configure(cfg *Config, c *cli.Context) error {
	cfg.LogFile = c.String("log")
	cfg.Sandbox = c.String("sandbox")
	cfg.RepoRoot = c.String("repo")
	cfg.OutputFile = c.String("output")
	cfg.Encoding = c.String("encoding")
	cfg.UserMapFile = c.String("user-map")
	cfg.DefaultDomain = c.String("default-domain")
	cfg.MainBranchName = c.String("main-branch")
	cfg.PartialTagThreshold = c.Int("partial-tag-threshold")
	cfg.ContinueOnError = c.Bool("continue-on-error")
	cfg.NoReorder = c.Bool("no-reorder")
	cfg.Fussy = c.Bool("fussy")
	cfg.StripAdvertising = c.Bool("strip-advertising")
	cfg.NormalizeLineEndings = c.Bool("normalize-line-endings")
	cfg.CvsCommand = c.String("cvs-command")
	cfg.CvsProcesses = c.Int("cvs-processes")
	cfg.CacheDir = c.String("cache-dir")
	cfg.Verbose = c.Bool("verbose")
	cfg.DebugFile = c.String("debug-log")

	for _, spec := range c.StringSlice("include-tag") {
		if err := cfg.TagRules.AddRule(spec, true); err != nil {
			return err
		}
	}
	for _, spec := range c.StringSlice("exclude-tag") {
		if err := cfg.TagRules.AddRule(spec, false); err != nil {
			return err
		}
	}
	for _, spec := range c.StringSlice("include-branch") {
		if err := cfg.BranchRules.AddRule(spec, true); err != nil {
			return err
		}
	}
	for _, spec := range c.StringSlice("exclude-branch") {
		if err := cfg.BranchRules.AddRule(spec, false); err != nil {
			return err
		}
	}
	for _, spec := range c.StringSlice("include-file") {
		if err := cfg.FileRules.AddRule(spec, true); err != nil {
			return err
		}
	}
	for _, spec := range c.StringSlice("exclude-file") {
		if err := cfg.FileRules.AddRule(spec, false); err != nil {
			return err
		}
	}
	for _, spec := range c.StringSlice("head-only") {
		if err := cfg.HeadOnlyRules.AddRule(spec, true); err != nil {
			return err
		}
	}
	renames := []struct {
		specs []string
		r     *Renamer
	}{
		{c.StringSlice("rename-tag"), cfg.TagRenamer},
		{c.StringSlice("rename-branch"), cfg.BranchRenamer},
		{c.StringSlice("branchpoint-rule"), cfg.BranchpointRule},
	}
	for _, group := range renames {
		for _, spec := range group.specs {
			pattern, replacement, ok := splitRenameSpec(spec)
			if !ok {
				return fmt.Errorf("bad rename rule %q: want PATTERN/REPLACEMENT", spec)
			}
			if err := group.r.AddRule(pattern, replacement); err != nil {
				return err
			}
		}
	}
	return nil
}

// splitRenameSpec splits PATTERN/REPLACEMENT at the last slash, so
// patterns may contain slashes of their own.  There is no escaping: a
// replacement cannot contain a slash.
func splitRenameSpec(spec string) (string, string, bool) {
	i := strings.LastIndex(spec, "/")
	if i <= 0 {
		return "", "", false
	}
	return spec[:i], spec[i+1:], true
}

// readOptionsFile reads one directive per line, shell-style quoting
// honoured, # comments ignored.
func readOptionsFile(path string) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	var args []string
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields, err := shlex.Split(line, true)
		if err != nil {
			return nil, fmt.Errorf("options file %s: %s", path, err)
		}
		args = append(args, fields...)
	}
	return args, scanner.Err()
}

func stripOptionsFlag(args []string) []string {
	var out []string
	skip := false
	for _, a := range args {
		if skip {
			skip = false
			continue
		}
		if a == "--options" {
			skip = true
			continue
		}
		if strings.HasPrefix(a, "--options=") {
			continue
		}
		out = append(out, a)
	}
	return out
}
