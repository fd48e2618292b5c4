package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Timestamp: 1736899200,
		Active:    []string{"ttys012", "ttys009"},
		Slots: []Entry{
			{
				TTY:         "/dev/ttys012",
				PID:         4242,
				CWD:         "/Users/test/project2",
				ProjectHash: "-Users-test-project2",
				ShortTTY:    "ttys012",
				Transcript:  "/Users/test/.claude/projects/-Users-test-project2/abc.jsonl",
				Status:      "active",
			},
			{
				TTY:         "/dev/ttys009",
				PID:         4100,
				CWD:         "/Users/test/project1",
				ProjectHash: "-Users-test-project1",
				ShortTTY:    "ttys009",
			},
		},
	}
}

func TestEncodeLayout(t *testing.T) {
	out := string(Encode(sampleSnapshot()))

	assert.Contains(t, out, "CACHE_TS=1736899200\n")
	assert.Contains(t, out, "SLOT_COUNT=2\n")
	assert.Contains(t, out, "ACTIVE_AGENT_TTYS=ttys012,ttys009\n")
	assert.Contains(t, out, "SLOT_1_TTY=/dev/ttys012\n")
	assert.Contains(t, out, "SLOT_1_PID=4242\n")
	assert.Contains(t, out, "SLOT_1_TRANSCRIPT=/Users/test/.claude/projects/-Users-test-project2/abc.jsonl\n")
	assert.Contains(t, out, "SLOT_1_STATUS=active\n")
	assert.Contains(t, out, "SLOT_2_TTY_SHORT=ttys009\n")
	assert.Contains(t, out, "SLOT_2_PROJECT_HASH=-Users-test-project1\n")
	assert.NotContains(t, out, "SLOT_2_TRANSCRIPT=", "unresolved transcript leaves the key out")
	assert.NotContains(t, out, "SLOT_2_STATUS=", "unreported status leaves the key out")
}

func TestWriteReadSlotView(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.env")
	require.NoError(t, Write(path, sampleSnapshot()))

	snap, ok := Read(path)
	require.True(t, ok)

	first, ok := snap.Slot(1)
	require.True(t, ok)
	assert.Equal(t, "ttys012", first.ShortTTY)
	assert.Equal(t, 4242, first.PID)
	assert.Equal(t, "/Users/test/project2", first.CWD)
	assert.Equal(t, "/Users/test/.claude/projects/-Users-test-project2/abc.jsonl", first.Transcript)
	assert.Equal(t, "active", first.Status)

	second, ok := snap.Slot(2)
	require.True(t, ok)
	assert.Equal(t, "ttys009", second.ShortTTY)
	assert.Empty(t, second.Transcript)
	assert.Empty(t, second.Status)

	assert.Equal(t, []string{"ttys012", "ttys009"}, snap.Active)

	// No stray tmp file after publication
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSlotBeyondCountHides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.env")
	require.NoError(t, Write(path, sampleSnapshot()))

	snap, ok := Read(path)
	require.True(t, ok)

	_, ok = snap.Slot(3)
	assert.False(t, ok, "slot beyond SLOT_COUNT is hidden")
	_, ok = snap.Slot(0)
	assert.False(t, ok)
}

func TestMissingCacheHides(t *testing.T) {
	snap, ok := Read(filepath.Join(t.TempDir(), "cache.env"))
	assert.False(t, ok)

	_, slotOK := snap.Slot(1)
	assert.False(t, slotOK, "missing cache hides every slot")
}

func TestParseSkipsJunkLines(t *testing.T) {
	data := strings.Join([]string{
		"# published by agentbar",
		"",
		"CACHE_TS=100",
		"SLOT_COUNT=1",
		"not a pair",
		"=orphan",
		"ACTIVE_AGENT_TTYS=ttys001",
		"SLOT_1_TTY=/dev/ttys001",
		"SLOT_1_PID=7",
		"SLOT_1_CWD=/tmp/p",
		"SLOT_1_PROJECT_HASH=-tmp-p",
		"SLOT_1_TTY_SHORT=ttys001",
	}, "\n")

	snap := Parse([]byte(data))
	assert.Equal(t, int64(100), snap.Timestamp)
	entry, ok := snap.Slot(1)
	require.True(t, ok)
	assert.Equal(t, 7, entry.PID)
	assert.Equal(t, "/tmp/p", entry.CWD)
}

func TestParsePreservesUnknownKeys(t *testing.T) {
	data := "CACHE_TS=5\nSLOT_COUNT=0\nACTIVE_AGENT_TTYS=\nFUTURE_KEY=hello=world\n"

	snap := Parse([]byte(data))
	require.NotNil(t, snap.Extra)
	assert.Equal(t, "hello=world", snap.Extra["FUTURE_KEY"], "values keep embedded equals signs")

	// And they survive a re-encode
	out := string(Encode(snap))
	assert.Contains(t, out, "FUTURE_KEY=hello=world\n")
}

func TestEncodeSanitizesNewlines(t *testing.T) {
	snap := Snapshot{
		Timestamp: 1,
		Slots: []Entry{{
			TTY:      "/dev/ttys001",
			CWD:      "/tmp/evil\ndir",
			ShortTTY: "ttys001",
		}},
	}

	out := string(Encode(snap))
	assert.Contains(t, out, "SLOT_1_CWD=/tmp/evil dir\n")
}

func TestAge(t *testing.T) {
	now := time.Unix(1000, 0)
	snap := Snapshot{Timestamp: 940}
	assert.Equal(t, time.Minute, snap.Age(now))

	assert.Equal(t, time.Duration(0), Snapshot{}.Age(now), "unstamped snapshot has no age")
}
