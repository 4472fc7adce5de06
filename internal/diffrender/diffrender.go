// Package diffrender summarizes a working-tree or commit-range diff into
// added/removed/unchanged line counts per file, for status's --diff flag
// and ship's auto-generated pull request description.
package diffrender

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// FileStat is one file's line-level diff summary.
type FileStat struct {
	Path      string
	Added     int
	Removed   int
	Unchanged int
}

// String renders a "+N -M" style one-liner.
func (f FileStat) String() string {
	return fmt.Sprintf("%s  +%d -%d", f.Path, f.Added, f.Removed)
}

// Lines compares before and after (full file contents) and returns
// line-level add/remove/unchanged counts, using the same
// DiffLinesToChars/DiffCharsToLines trick as word-diff engines use to keep
// line-granularity comparisons fast on large files.
func Lines(before, after string) (unchanged, added, removed int) {
	if before == after {
		return countLines(after), 0, 0
	}
	if before == "" {
		return 0, countLines(after), 0
	}
	if after == "" {
		return 0, 0, countLines(before)
	}

	dmp := diffmatchpatch.New()
	text1, text2, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(text1, text2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	for _, d := range diffs {
		lines := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			unchanged += lines
		case diffmatchpatch.DiffInsert:
			added += lines
		case diffmatchpatch.DiffDelete:
			removed += lines
		}
	}
	return unchanged, added, removed
}

// Summarize builds a FileStat for path from its before/after contents.
func Summarize(path, before, after string) FileStat {
	_, added, removed := Lines(before, after)
	return FileStat{Path: path, Added: added, Removed: removed}
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
