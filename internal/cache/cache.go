// Package cache publishes and reads the shared slot cache.
//
// The cache is one flat key=value file. A single writer (the sync daemon)
// replaces it atomically each cycle; many short-lived readers (one per
// menu-bar slot) parse it independently. Readers are dumb on purpose: a
// missing cache or an out-of-range slot means "hidden", never an error, so a
// crashed daemon degrades to empty icons instead of a broken menu bar.
package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Fixed keys. Per-slot fields use the SLOT_<n>_ prefix with n starting at 1.
const (
	KeyTimestamp = "CACHE_TS"
	KeySlotCount = "SLOT_COUNT"
	KeyActive    = "ACTIVE_AGENT_TTYS"
)

// Entry is one slot's published view of a terminal session. Transcript is
// empty when resolution found nothing for the session; Status is empty when
// the session's hooks have not reported one yet.
type Entry struct {
	TTY         string
	PID         int
	CWD         string
	ProjectHash string
	ShortTTY    string
	Transcript  string
	Status      string
}

// Snapshot is a complete cache image. Slots[0] is slot 1, the rightmost icon.
type Snapshot struct {
	Timestamp int64
	Active    []string
	Slots     []Entry

	// Extra preserves unknown keys so older readers and newer writers can
	// coexist across an upgrade.
	Extra map[string]string
}

// Slot returns the entry shown in slot n (1-based). ok=false means the slot
// is hidden: n out of 1..len(Slots).
func (s Snapshot) Slot(n int) (Entry, bool) {
	if n < 1 || n > len(s.Slots) {
		return Entry{}, false
	}
	return s.Slots[n-1], true
}

// Age reports how long ago the snapshot was published.
func (s Snapshot) Age(now time.Time) time.Duration {
	if s.Timestamp == 0 {
		return 0
	}
	return now.Sub(time.Unix(s.Timestamp, 0))
}

// Encode renders the snapshot in publication order: header keys, slot blocks,
// then any extra keys sorted. Values are forced single-line.
func Encode(s Snapshot) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s=%d\n", KeyTimestamp, s.Timestamp)
	fmt.Fprintf(&buf, "%s=%d\n", KeySlotCount, len(s.Slots))
	fmt.Fprintf(&buf, "%s=%s\n", KeyActive, sanitize(strings.Join(s.Active, ",")))

	for i, slot := range s.Slots {
		n := i + 1
		fmt.Fprintf(&buf, "SLOT_%d_TTY=%s\n", n, sanitize(slot.TTY))
		fmt.Fprintf(&buf, "SLOT_%d_PID=%d\n", n, slot.PID)
		fmt.Fprintf(&buf, "SLOT_%d_CWD=%s\n", n, sanitize(slot.CWD))
		fmt.Fprintf(&buf, "SLOT_%d_PROJECT_HASH=%s\n", n, sanitize(slot.ProjectHash))
		fmt.Fprintf(&buf, "SLOT_%d_TTY_SHORT=%s\n", n, sanitize(slot.ShortTTY))
		if slot.Transcript != "" {
			fmt.Fprintf(&buf, "SLOT_%d_TRANSCRIPT=%s\n", n, sanitize(slot.Transcript))
		}
		if slot.Status != "" {
			fmt.Fprintf(&buf, "SLOT_%d_STATUS=%s\n", n, sanitize(slot.Status))
		}
	}

	extras := make([]string, 0, len(s.Extra))
	for k := range s.Extra {
		extras = append(extras, k)
	}
	sort.Strings(extras)
	for _, k := range extras {
		fmt.Fprintf(&buf, "%s=%s\n", k, sanitize(s.Extra[k]))
	}

	return buf.Bytes()
}

// Parse decodes a cache image. Blank lines, comments and malformed lines are
// skipped; slot entries beyond the advertised SLOT_COUNT are ignored.
func Parse(data []byte) Snapshot {
	pairs := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found || key == "" {
			continue
		}
		pairs[key] = value
	}

	var s Snapshot
	s.Timestamp, _ = strconv.ParseInt(pairs[KeyTimestamp], 10, 64)
	delete(pairs, KeyTimestamp)

	count, _ := strconv.Atoi(pairs[KeySlotCount])
	delete(pairs, KeySlotCount)

	if active := pairs[KeyActive]; active != "" {
		for _, id := range strings.Split(active, ",") {
			if id = strings.TrimSpace(id); id != "" {
				s.Active = append(s.Active, id)
			}
		}
	}
	delete(pairs, KeyActive)

	for n := 1; n <= count; n++ {
		prefix := fmt.Sprintf("SLOT_%d_", n)
		pid, _ := strconv.Atoi(pairs[prefix+"PID"])
		s.Slots = append(s.Slots, Entry{
			TTY:         pairs[prefix+"TTY"],
			PID:         pid,
			CWD:         pairs[prefix+"CWD"],
			ProjectHash: pairs[prefix+"PROJECT_HASH"],
			ShortTTY:    pairs[prefix+"TTY_SHORT"],
			Transcript:  pairs[prefix+"TRANSCRIPT"],
			Status:      pairs[prefix+"STATUS"],
		})
		for _, field := range []string{"TTY", "PID", "CWD", "PROJECT_HASH", "TTY_SHORT", "TRANSCRIPT", "STATUS"} {
			delete(pairs, prefix+field)
		}
	}

	if len(pairs) > 0 {
		s.Extra = pairs
	}
	return s
}

// Write atomically publishes the snapshot: tmp file + rename, so a reader
// either sees the previous complete image or this one.
func Write(path string, s Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, Encode(s), 0644); err != nil {
		return fmt.Errorf("write tmp cache: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename cache: %w", err)
	}
	return nil
}

// Read loads the cache. ok=false when the file is missing or unreadable,
// which readers render as every slot hidden.
func Read(path string) (Snapshot, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, false
	}
	return Parse(data), true
}

// sanitize keeps values on one line.
func sanitize(v string) string {
	v = strings.ReplaceAll(v, "\n", " ")
	return strings.ReplaceAll(v, "\r", " ")
}
