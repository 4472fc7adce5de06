// Package audit is the append-only audit log (component L): one JSONL file
// per day, grouped under a year-month directory, rotated by size and
// pruned by retention count.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/paths"
	"github.com/devsolo-dev/devsolo/redact"
)

// DefaultMaxFileBytes is the size at which the current day's file is
// rotated to a timestamped sibling.
const DefaultMaxFileBytes = 10 * 1024 * 1024

// DefaultRetainRotations is how many rotated siblings are kept per day
// before the oldest is pruned.
const DefaultRetainRotations = 10

// Log appends AuditEntry records under <base>/audit/YYYY-MM/DD.jsonl.
type Log struct {
	mu              sync.Mutex
	MaxFileBytes    int64
	RetainRotations int
}

func New() *Log {
	return &Log{MaxFileBytes: DefaultMaxFileBytes, RetainRotations: DefaultRetainRotations}
}

// Record appends one entry, assigning ID and Timestamp if unset, and
// redacting free-text fields that might carry a pasted secret.
func (l *Log) Record(entry model.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.ErrorMessage = redact.String(entry.ErrorMessage)
	entry.Details.Command = redact.String(entry.Details.Command)

	dir, err := paths.AuditDir()
	if err != nil {
		return err
	}
	monthDir := filepath.Join(dir, entry.Timestamp.Format("2006-01"))
	if err := os.MkdirAll(monthDir, 0o750); err != nil {
		return model.NewToolError(model.ErrInternal, "creating audit directory", err)
	}

	path := filepath.Join(monthDir, entry.Timestamp.Format("02")+".jsonl")
	if err := l.rotateIfNeeded(path); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling audit entry: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // path built from fixed components + date
	if err != nil {
		return model.NewToolError(model.ErrInternal, "opening audit log", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.Write(data); err != nil {
		return model.NewToolError(model.ErrInternal, "writing audit entry", err)
	}
	if err := w.WriteByte('\n'); err != nil {
		return model.NewToolError(model.ErrInternal, "writing audit entry", err)
	}
	if err := w.Flush(); err != nil {
		return model.NewToolError(model.ErrInternal, "flushing audit entry", err)
	}
	return nil
}

// rotateIfNeeded renames path to a timestamped sibling once it exceeds
// MaxFileBytes, then prunes rotated siblings beyond RetainRotations.
func (l *Log) rotateIfNeeded(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil // does not exist yet; nothing to rotate
	}
	if info.Size() < l.MaxFileBytes {
		return nil
	}

	rotated := fmt.Sprintf("%s.%d", path, time.Now().UnixNano())
	if err := os.Rename(path, rotated); err != nil {
		return model.NewToolError(model.ErrInternal, "rotating audit log", err)
	}
	return l.pruneRotations(path)
}

// pruneRotations removes the oldest rotated siblings of path beyond
// RetainRotations.
func (l *Log) pruneRotations(path string) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var rotations []string
	prefix := base + "."
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		rotations = append(rotations, e.Name())
	}
	sort.Slice(rotations, func(i, j int) bool {
		ni, _ := strconv.ParseInt(strings.TrimPrefix(rotations[i], prefix), 10, 64)
		nj, _ := strconv.ParseInt(strings.TrimPrefix(rotations[j], prefix), 10, 64)
		return ni < nj
	})

	for len(rotations) > l.RetainRotations {
		oldest := rotations[0]
		rotations = rotations[1:]
		_ = os.Remove(filepath.Join(dir, oldest))
	}
	return nil
}
