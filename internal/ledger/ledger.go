// Package ledger persists the set of event identities that have already
// produced an alert. The store is a line-delimited text file: one identity
// per line, optionally followed by a tab and the RFC 3339 time it was
// recorded. Appending is the only mutation; the file is rewritten only when
// retention pruning removes expired entries at load time.
package ledger

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Ledger is a durable set of previously-alerted event identities.
type Ledger struct {
	path      string
	retention time.Duration // 0 = keep forever
	logger    *slog.Logger
	clock     clockwork.Clock

	mu   sync.Mutex
	seen map[string]struct{}
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock injects a time source for deterministic tests.
func WithClock(c clockwork.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithRetention prunes entries older than d at load time. Entries written
// before timestamps were recorded are never pruned.
func WithRetention(d time.Duration) Option {
	return func(l *Ledger) { l.retention = d }
}

// Open loads the ledger from path. A missing file is an empty ledger, not
// an error. An unreadable file degrades to an empty ledger with a warning:
// the rest of the pipeline must keep working even if alert history is lost,
// at the cost of possibly re-alerting once.
func Open(path string, logger *slog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		path:   path,
		logger: logger,
		clock:  clockwork.NewRealClock(),
		seen:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.load()
	return l
}

// Contains reports whether the identity has already been alerted on.
func (l *Ledger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[id]
	return ok
}

// Add records an identity durably and in the in-memory snapshot. The
// snapshot is updated even when the append fails, so one cycle never
// alerts twice on the same identity; durability is then retried implicitly
// on the next Add's file open.
func (l *Ledger) Add(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[id]; ok {
		return nil
	}
	l.seen[id] = struct{}{}

	if err := l.append(id); err != nil {
		return fmt.Errorf("append to ledger %s: %w", l.path, err)
	}
	return nil
}

// Size returns the number of identities currently held.
func (l *Ledger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

func (l *Ledger) append(id string) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line := id + "\t" + l.clock.Now().UTC().Format(time.RFC3339) + "\n"
	if _, err := f.WriteString(line); err != nil {
		return err
	}
	return f.Sync()
}

func (l *Ledger) load() {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		l.logger.Warn("ledger unreadable, starting empty; duplicate alerts possible this run",
			"path", l.path, "error", err)
		return
	}
	defer f.Close()

	cutoff := time.Time{}
	if l.retention > 0 {
		cutoff = l.clock.Now().UTC().Add(-l.retention)
	}

	pruned := 0
	kept := make([]string, 0, 64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		id, stamp, ok := strings.Cut(line, "\t")
		if ok && !cutoff.IsZero() {
			if at, err := time.Parse(time.RFC3339, stamp); err == nil && at.Before(cutoff) {
				pruned++
				continue
			}
		}
		if _, dup := l.seen[id]; dup {
			continue
		}
		l.seen[id] = struct{}{}
		kept = append(kept, line)
	}
	if err := scanner.Err(); err != nil {
		l.logger.Warn("ledger read interrupted, continuing with partial history",
			"path", l.path, "error", err)
	}

	if pruned > 0 {
		l.compact(kept)
		l.logger.Info("ledger pruned", "path", l.path, "pruned", pruned, "kept", len(kept))
	}
}

// compact rewrites the file with only the surviving lines. Best effort: on
// failure the expired lines merely remain on disk until the next load.
func (l *Ledger) compact(lines []string) {
	tmp := l.path + ".tmp"
	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		l.logger.Warn("ledger compaction failed", "path", l.path, "error", err)
		return
	}
	if err := os.Rename(tmp, l.path); err != nil {
		l.logger.Warn("ledger compaction rename failed", "path", l.path, "error", err)
	}
}
