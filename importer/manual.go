// Manual branch-to-branchpoint resolution: when the shop's convention
// names a tag for every branchpoint (say branch "rel-2" is cut at tag
// "rel-2-base"), a rename rule maps the branch name to the tag name and
// the tag's already-resolved commit is adopted as the branchpoint
// directly, skipping the automatic search.

package main

import (
	"github.com/inconshreveable/log15"
)

// ResolveManualBranchpoints adopts tag commits as branchpoints for
// every branch the rule matches, moving stray commits already on the
// branch to sit after the adopted branchpoint.  Branches the rule does
// not match keep whatever the automatic resolver decided.
func ResolveManualBranchpoints(commits *commitList, branches []string, rule *Renamer,
	tags map[string]*Commit, branchpoints map[string]*Commit, log log15.Logger) {

	for _, branch := range branches {
		if branch == mainBranch || !rule.Matches(branch) {
			continue
		}
		tagName := rule.Apply(branch)
		tc, ok := tags[tagName]
		if !ok {
			log.Debug("no tag for manual branchpoint", "branch", branch, "tag", tagName)
			continue
		}
		branchpoints[branch] = tc
		log.Info("manual branchpoint", "branch", branch, "tag", tagName, "commit", tc.CommitID)

		// Strays: commits already on the branch sitting before the
		// adopted branchpoint.  Walk them highest first so relative
		// order survives the moves.
		var strays []int
		for i := 0; i < tc.Index; i++ {
			if (*commits)[i].Branch() == branch {
				strays = append(strays, i)
			}
		}
		for i := len(strays) - 1; i >= 0; i-- {
			commits.moveAfter(strays[i], tc.Index)
		}
	}
}
