package audit

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(line string) Record {
	return Record{
		Line:     line,
		Stages:   [][]string{{"grep", "x"}, {"head"}},
		Statuses: []int{0, 0},
		Duration: time.Millisecond,
		Cwd:      "/tmp",
		Policy:   "allow",
	}
}

func TestLogAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	logger, err := NewLogger(path)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := logger.Log(record("grep x | head"))
		require.NoError(t, err, "log entry %d", i)
	}

	assert.NoError(t, Verify(path))
}

func TestLogFillsEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	logger.now = func() time.Time { return fixed }

	r := record("false | true")
	r.Statuses = []int{1, 0}
	r.Err = errors.New("stage 0: boom")
	e, err := logger.Log(r)
	require.NoError(t, err)

	_, err = uuid.Parse(e.ID)
	assert.NoError(t, err, "generated id %q", e.ID)
	assert.Equal(t, uint64(1), e.Seq)
	assert.True(t, e.Time.Equal(fixed))
	assert.Equal(t, "stage 0: boom", e.Error)
	assert.Equal(t, genesisHash(), e.PrevHash, "first entry chains from genesis")

	r.ID = "run-1"
	e, err = logger.Log(r)
	require.NoError(t, err)
	assert.Equal(t, "run-1", e.ID)

	entries, err := Tail(path, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "head", entries[0].Stages[1][0])
	assert.Equal(t, 1, entries[0].Statuses[0])
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	logger, err := NewLogger(path)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := logger.Log(record("cat f"))
		require.NoError(t, err)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := strings.Replace(string(data), `"exit_code":0`, `"exit_code":9`, 1)
	require.NotEqual(t, string(data), tampered, "nothing to tamper with")
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0600))

	err = Verify(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash mismatch")
}

func TestVerifyDetectsSequenceGap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	logger, err := NewLogger(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := logger.Log(record("cat f"))
		require.NoError(t, err)
	}

	// Delete line 3 of 5.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := splitLines(data)
	remaining := append(lines[:2], lines[3:]...)
	var newData []byte
	for _, line := range remaining {
		newData = append(newData, line...)
		newData = append(newData, '\n')
	}
	require.NoError(t, os.WriteFile(path, newData, 0600))

	err = Verify(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequence gap")
}

func TestVerifyEmptyLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	require.NoError(t, os.WriteFile(path, []byte{}, 0600))

	assert.NoError(t, Verify(path), "empty log is valid")
}

func TestLoggerResumesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	logger1, err := NewLogger(path)
	require.NoError(t, err)
	_, err = logger1.Log(record("first"))
	require.NoError(t, err)
	_, err = logger1.Log(record("second"))
	require.NoError(t, err)

	// A new logger, as after a restart.
	logger2, err := NewLogger(path)
	require.NoError(t, err)
	_, err = logger2.Log(record("third"))
	require.NoError(t, err)

	assert.NoError(t, Verify(path), "chain is valid after restart")

	entries, err := Tail(path, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(3), entries[1].Seq)
	assert.Equal(t, "third", entries[1].Line)
}

func TestNewLoggerRejectsCorruptTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json\n"), 0600))

	_, err := NewLogger(path)
	assert.Error(t, err, "corrupt last entry")
}
