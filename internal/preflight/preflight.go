package preflight

import (
	"context"

	"mediarelay/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minFreeBytes is the workspace headroom needed to hold a download plus one
// compression attempt at the default ceiling.
const minFreeBytes = 512 * 1024 * 1024

// RunAll executes the filesystem checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.WorkDir()),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckFreeSpace("Work directory space", cfg.WorkDir(), minFreeBytes),
	}
	if cfg.History.Enabled {
		results = append(results, CheckWritableFile("History database", cfg.History.Path))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
