package checks

import (
	"fmt"

	"github.com/devsolo-dev/devsolo/internal/branchvalidate"
	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/prvalidate"
)

// Fact keys populated by each tool's createContext phase. Declared here,
// next to the checks that read them, so the contract between "what a tool
// must derive" and "what a check consumes" stays in one place.
const (
	FactCurrentBranch        = "currentBranch"
	FactMainBranch           = "mainBranch"
	FactBranchAvailability   = "branchAvailability"   // branchvalidate.AvailabilityResult
	FactWorkingDirClean      = "workingDirClean"       // bool
	FactMainBehindOrigin     = "mainBehindOrigin"      // bool
	FactActiveSessionOnBranch = "activeSessionOnBranch" // *model.WorkflowSession or nil
	FactSessionForTarget     = "sessionForTarget"       // *model.WorkflowSession or nil
	FactSessionState         = "sessionState"           // model.State
	FactRequiredStates       = "requiredStates"         // []model.State
	FactHasChangesToCommit   = "hasChangesToCommit"     // bool
	FactStagedOnly           = "stagedOnly"             // bool
	FactHasStagedFiles       = "hasStagedFiles"         // bool
	FactPlatformConfigured   = "platformConfigured"     // bool
	FactPRValidation         = "prValidation"            // prvalidate.Result
	FactBranchReuse          = "branchReuse"             // branchvalidate.ReuseClassification
	FactCIHistoryExists      = "ciHistoryExists"         // bool
	FactTargetBranchExists   = "targetBranchExists"      // bool

	// Post-flight facts, populated after executeWorkflow runs.
	FactSessionCreated         = "sessionCreated"
	FactBranchCheckedOut       = "branchCheckedOut"
	FactPRMerged               = "prMerged"
	FactFeatureBranchesDeleted = "featureBranchesDeleted"
	FactMainSyncedWithOrigin   = "mainSyncedWithOrigin"
	FactNoUncommittedChanges   = "noUncommittedChanges"
	FactOnTargetBranch         = "onTargetBranch"
	FactTargetSessionActive    = "targetSessionActive"
)

// BuildCatalog registers every pre-flight and post-flight check.
func BuildCatalog() *Registry {
	r := NewRegistry()

	r.Register(Check{ID: "onMainBranch", Name: "On trunk branch", Category: "branch", Execute: func(c *Context) model.CheckResult {
		current, _ := Fact[string](c, FactCurrentBranch)
		main, _ := Fact[string](c, FactMainBranch)
		if current != main {
			return fail("onMainBranch", "On trunk branch", fmt.Sprintf("current branch %q is not %q", current, main))
		}
		return pass("onMainBranch", "On trunk branch", "on trunk")
	}})

	r.Register(Check{ID: "notOnMainBranch", Name: "Not on trunk branch", Category: "branch", Execute: func(c *Context) model.CheckResult {
		current, _ := Fact[string](c, FactCurrentBranch)
		main, _ := Fact[string](c, FactMainBranch)
		if current == main {
			return fail("notOnMainBranch", "Not on trunk branch", "refusing to operate directly on trunk")
		}
		return pass("notOnMainBranch", "Not on trunk branch", "on a feature branch")
	}})

	r.Register(Check{ID: "branchNameAvailable", Name: "Branch name available", Category: "branch", Execute: func(c *Context) model.CheckResult {
		avail, ok := Fact[branchvalidate.AvailabilityResult](c, FactBranchAvailability)
		if !ok || avail.Availability == branchvalidate.Available {
			return pass("branchNameAvailable", "Branch name available", "name is available")
		}
		res := fail("branchNameAvailable", "Branch name available", fmt.Sprintf("branch name unavailable: %s", avail.Availability))
		res.Suggestions = avail.Suggestions
		return res
	}})

	r.Register(Check{ID: "targetBranchExists", Name: "Target branch exists", Category: "branch", Execute: func(c *Context) model.CheckResult {
		exists, _ := Fact[bool](c, FactTargetBranchExists)
		if !exists {
			return fail("targetBranchExists", "Target branch exists", "target branch does not exist locally or on origin")
		}
		return pass("targetBranchExists", "Target branch exists", "target branch found")
	}})

	r.Register(Check{ID: "workingDirectoryClean", Name: "Working directory clean", Category: "branch", Execute: func(c *Context) model.CheckResult {
		clean, _ := Fact[bool](c, FactWorkingDirClean)
		if !clean {
			res := fail("workingDirectoryClean", "Working directory clean", "uncommitted changes present")
			res.Options = []model.CheckOption{
				{ID: "stash", Label: "Stash changes", Description: "auto-stash and continue", Action: "stash", Risk: model.RiskLow, AutoRecommended: true},
				{ID: "abort", Label: "Abort", Description: "stop and let me handle it manually", Action: "abort", Risk: model.RiskLow},
			}
			res.Level = model.LevelPrompt
			return res
		}
		return pass("workingDirectoryClean", "Working directory clean", "clean")
	}})

	r.Register(Check{ID: "mainUpToDate", Name: "Trunk up to date", Category: "branch", Execute: func(c *Context) model.CheckResult {
		behind, _ := Fact[bool](c, FactMainBehindOrigin)
		if behind {
			return fail("mainUpToDate", "Trunk up to date", "trunk is behind origin")
		}
		return pass("mainUpToDate", "Trunk up to date", "trunk matches origin")
	}})

	r.Register(Check{ID: "noExistingSession", Name: "No existing session", Category: "session", Execute: func(c *Context) model.CheckResult {
		session, _ := Fact[*model.WorkflowSession](c, FactActiveSessionOnBranch)
		if session != nil {
			return fail("noExistingSession", "No existing session", fmt.Sprintf("an active session already exists on this branch (%s)", session.ID))
		}
		return pass("noExistingSession", "No existing session", "no active session on this branch")
	}})

	r.Register(Check{ID: "sessionExists", Name: "Session exists", Category: "session", Execute: func(c *Context) model.CheckResult {
		session, _ := Fact[*model.WorkflowSession](c, FactSessionForTarget)
		if session == nil {
			return fail("sessionExists", "Session exists", "no session found for the target branch")
		}
		return pass("sessionExists", "Session exists", "session found")
	}})

	r.Register(Check{ID: "sessionIsActive", Name: "Session is active", Category: "session", Execute: func(c *Context) model.CheckResult {
		state, _ := Fact[model.State](c, FactSessionState)
		if state.IsTerminal() {
			return fail("sessionIsActive", "Session is active", fmt.Sprintf("session is in terminal state %s", state))
		}
		return pass("sessionIsActive", "Session is active", "session is active")
	}})

	r.Register(Check{ID: "sessionStateIs", Name: "Session state matches", Category: "session", Execute: func(c *Context) model.CheckResult {
		state, _ := Fact[model.State](c, FactSessionState)
		required, _ := Fact[[]model.State](c, FactRequiredStates)
		for _, s := range required {
			if s == state {
				return pass("sessionStateIs", "Session state matches", fmt.Sprintf("session is in state %s", state))
			}
		}
		return fail("sessionStateIs", "Session state matches", fmt.Sprintf("session state %s is not one of %v", state, required))
	}})

	r.Register(Check{ID: "hasChangesToCommit", Name: "Changes to commit", Category: "changes", Execute: func(c *Context) model.CheckResult {
		has, _ := Fact[bool](c, FactHasChangesToCommit)
		if !has {
			return fail("hasChangesToCommit", "Changes to commit", "no modifications to commit")
		}
		return pass("hasChangesToCommit", "Changes to commit", "modifications present")
	}})

	r.Register(Check{ID: "hasStagedFiles", Name: "Staged files present", Category: "changes", Execute: func(c *Context) model.CheckResult {
		stagedOnly, _ := Fact[bool](c, FactStagedOnly)
		if !stagedOnly {
			return model.CheckResult{ID: "hasStagedFiles", Name: "Staged files present", Level: model.LevelInfo, Message: "not applicable (stagedOnly not set)"}
		}
		has, _ := Fact[bool](c, FactHasStagedFiles)
		if !has {
			return fail("hasStagedFiles", "Staged files present", "stagedOnly was set but the index is empty")
		}
		return pass("hasStagedFiles", "Staged files present", "staged files present")
	}})

	r.Register(Check{ID: "githubConfigured", Name: "Platform configured", Category: "pr", Execute: func(c *Context) model.CheckResult {
		ok, _ := Fact[bool](c, FactPlatformConfigured)
		if !ok {
			return model.CheckResult{ID: "githubConfigured", Name: "Platform configured", Level: model.LevelWarn, Message: "platform client could not initialize; PR operations will fail"}
		}
		return pass("githubConfigured", "Platform configured", "platform client ready")
	}})

	r.Register(Check{ID: "noPrConflicts", Name: "No duplicate PRs", Category: "pr", Execute: func(c *Context) model.CheckResult {
		res, ok := Fact[prvalidate.Result](c, FactPRValidation)
		if ok && res.Action == prvalidate.DuplicateOpen {
			return fail("noPrConflicts", "No duplicate PRs", "more than one open PR targets this branch")
		}
		return pass("noPrConflicts", "No duplicate PRs", "no duplicate open PRs")
	}})

	r.Register(Check{ID: "noBranchReuse", Name: "No unsafe branch reuse", Category: "pr", Execute: func(c *Context) model.CheckResult {
		reuse, ok := Fact[branchvalidate.ReuseClassification](c, FactBranchReuse)
		if ok && reuse == branchvalidate.MergedAndRecreated {
			return fail("noBranchReuse", "No unsafe branch reuse", "this branch name was already merged and deleted")
		}
		return pass("noBranchReuse", "No unsafe branch reuse", "no unsafe reuse detected")
	}})

	r.Register(Check{ID: "ciConfigured", Name: "CI configured", Category: "ci", Execute: func(c *Context) model.CheckResult {
		exists, _ := Fact[bool](c, FactCIHistoryExists)
		if !exists {
			return model.CheckResult{ID: "ciConfigured", Name: "CI configured", Level: model.LevelWarn, Message: "repository has no check-suite history"}
		}
		return pass("ciConfigured", "CI configured", "check-suite history found")
	}})

	// Post-flight verifications. Advisory only.
	r.Register(Check{ID: "sessionCreated", Name: "Session created", Category: "post", Execute: advisoryBool(FactSessionCreated, "session record was created")})
	r.Register(Check{ID: "branchCheckedOut", Name: "Branch checked out", Category: "post", Execute: advisoryBool(FactBranchCheckedOut, "now on the expected branch")})
	r.Register(Check{ID: "sessionStateCorrect", Name: "Session state correct", Category: "post", Execute: func(c *Context) model.CheckResult {
		state, _ := Fact[model.State](c, FactSessionState)
		required, ok := Fact[[]model.State](c, FactRequiredStates)
		if ok {
			for _, s := range required {
				if s == state {
					return advisoryPass("sessionStateCorrect", fmt.Sprintf("session state is %s", state))
				}
			}
			return advisoryWarn("sessionStateCorrect", fmt.Sprintf("session state %s was not expected", state))
		}
		return advisoryPass("sessionStateCorrect", fmt.Sprintf("session state is %s", state))
	}})
	r.Register(Check{ID: "branchAvailable", Name: "Branch available for reuse tracking", Category: "post", Execute: advisoryBool(FactBranchCheckedOut, "branch recorded")})
	r.Register(Check{ID: "prMerged", Name: "PR merged", Category: "post", Execute: advisoryBool(FactPRMerged, "pull request reports merged")})
	r.Register(Check{ID: "featureBranchesDeleted", Name: "Feature branches deleted", Category: "post", Execute: advisoryBool(FactFeatureBranchesDeleted, "local and remote feature branches removed")})
	r.Register(Check{ID: "mainSyncedWithOrigin", Name: "Trunk synced with origin", Category: "post", Execute: advisoryBool(FactMainSyncedWithOrigin, "trunk fast-forwarded from origin")})
	r.Register(Check{ID: "noUncommittedChanges", Name: "No uncommitted changes", Category: "post", Execute: advisoryBool(FactNoUncommittedChanges, "working tree clean")})
	r.Register(Check{ID: "onTargetBranch", Name: "On target branch", Category: "post", Execute: advisoryBool(FactOnTargetBranch, "checked out the target branch")})
	r.Register(Check{ID: "targetSessionActive", Name: "Target session active", Category: "post", Execute: advisoryBool(FactTargetSessionActive, "target session is now active")})

	return r
}

func pass(id, name, msg string) model.CheckResult {
	return model.CheckResult{ID: id, Name: name, Level: model.LevelPass, Message: msg}
}

func fail(id, name, msg string) model.CheckResult {
	return model.CheckResult{ID: id, Name: name, Level: model.LevelFail, Message: msg}
}

func advisoryPass(id, msg string) model.CheckResult {
	return model.CheckResult{ID: id, Level: model.LevelPass, Message: msg}
}

func advisoryWarn(id, msg string) model.CheckResult {
	return model.CheckResult{ID: id, Level: model.LevelWarn, Message: msg}
}

// advisoryBool builds a post-flight check reading a bool fact: true → pass,
// false → warn. Post-flight failures are always advisory, never blocking.
func advisoryBool(key, okMsg string) func(*Context) model.CheckResult {
	return func(c *Context) model.CheckResult {
		ok, present := Fact[bool](c, key)
		if !present {
			return model.CheckResult{ID: key, Level: model.LevelInfo, Message: "not evaluated"}
		}
		if ok {
			return model.CheckResult{ID: key, Level: model.LevelPass, Message: okMsg}
		}
		return model.CheckResult{ID: key, Level: model.LevelWarn, Message: "expected condition not observed"}
	}
}
