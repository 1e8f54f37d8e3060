package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/algorand/go-deadlock"
	"github.com/stretchr/testify/require"

	"github.com/daviddao/merklelog/pkg/config"
	"github.com/daviddao/merklelog/pkg/hash"
	"github.com/daviddao/merklelog/pkg/oplog"
	"github.com/daviddao/merklelog/pkg/storage"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = old }()

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()
	fn()
	w.Close()
	return <-done
}

func testConfig(t *testing.T, backend, identityName, logID string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "replica")
	cfg.Storage = backend
	cfg.Identity = identityName
	cfg.LogID = logID
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config) *app {
	t.Helper()
	a, err := newApp(cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

// --- helpers ---

func TestShortHash(t *testing.T) {
	require.Equal(t, "short", shortHash("short"))
	require.Equal(t, "zdpuAx..wxyz", shortHash("zdpuAxxxxxxxxxxxxwxyz"))
}

func TestShortKey(t *testing.T) {
	require.Equal(t, "02abc", shortKey("02abc"))
	require.Equal(t, "02abcdef01", shortKey("02abcdef0123456789"))
}

// --- init ---

func TestCmdInit(t *testing.T) {
	cfg := testConfig(t, config.StorageSQLite, "alice", "")

	var code int
	out := captureStdout(t, func() { code = cmdInit(cfg, []string{"--log-id", "todos", "--pointers", "8"}) })
	require.Equal(t, 0, code)
	require.Contains(t, out, "initialized merklelog")
	require.Contains(t, out, "log id:      todos")

	saved, err := config.LoadDir(cfg.DataDir)
	require.NoError(t, err)
	require.Equal(t, "todos", saved.LogID)
	require.Equal(t, 8, saved.PointerCount)
	require.Equal(t, "alice", saved.Identity)

	out = captureStdout(t, func() { code = cmdInit(saved, nil) })
	require.Equal(t, 0, code)
	require.Contains(t, out, "reinitialized")
}

func TestCmdInitRejectsUnknownStorage(t *testing.T) {
	cfg := testConfig(t, config.StorageSQLite, "alice", "todos")
	require.Equal(t, 1, cmdInit(cfg, []string{"--storage", "tape"}))
	require.False(t, cfg.Exists())
}

func TestNewAppRequiresLogID(t *testing.T) {
	cfg := testConfig(t, config.StorageMemory, "alice", "")
	_, err := newApp(cfg)
	require.Error(t, err)
}

// --- append / log ---

func TestAppendAndLogJSON(t *testing.T) {
	a := newTestApp(t, testConfig(t, config.StorageMemory, "alice", "todos"))

	var code int
	out := captureStdout(t, func() { code = a.cmdAppend([]string{"--json", "buy", "milk"}) })
	require.Equal(t, 0, code)
	var first entryView
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	require.Equal(t, "buy milk", first.Payload)
	require.Equal(t, "todos", first.ID)
	require.Equal(t, uint64(1), first.Clock.Time)
	require.Empty(t, first.Next)

	captureStdout(t, func() { code = a.cmdAppend([]string{"walk dog"}) })
	require.Equal(t, 0, code)

	out = captureStdout(t, func() { code = a.cmdLog([]string{"--json"}) })
	require.Equal(t, 0, code)
	var listed struct {
		Entries []entryView `json:"entries"`
		Count   int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Equal(t, 2, listed.Count)
	require.Equal(t, "walk dog", listed.Entries[0].Payload)
	require.Equal(t, []string{first.Hash}, listed.Entries[0].Next)
	require.Equal(t, "buy milk", listed.Entries[1].Payload)

	out = captureStdout(t, func() { code = a.cmdLog([]string{"--amount", "1"}) })
	require.Equal(t, 0, code)
	require.Contains(t, out, "[t=2]")
	require.NotContains(t, out, "buy milk")
}

func TestAppendRequiresPayload(t *testing.T) {
	a := newTestApp(t, testConfig(t, config.StorageMemory, "alice", "todos"))
	require.Equal(t, 1, a.cmdAppend(nil))
}

func TestLogBounds(t *testing.T) {
	a := newTestApp(t, testConfig(t, config.StorageMemory, "alice", "todos"))
	unknown, err := hash.Sum([]byte("never appended"))
	require.NoError(t, err)
	require.Equal(t, 1, a.cmdLog([]string{"--lte", unknown}))
	require.Equal(t, 1, a.cmdLog([]string{"--gt", "zdpuUnknown"}))
}

func TestCheckHash(t *testing.T) {
	h, err := hash.Sum([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, checkHash("get", h))
	require.NoError(t, checkHash("log --lt", ""))

	err = checkHash("log --lt", "zdpuUnknown")
	require.ErrorIs(t, err, hash.ErrInvalidAddress)
	require.Contains(t, err.Error(), "log --lt")
}

func TestHeadsAndGet(t *testing.T) {
	a := newTestApp(t, testConfig(t, config.StorageMemory, "alice", "todos"))
	e1, err := a.log.Append([]byte("one"), oplog.AppendOptions{})
	require.NoError(t, err)
	e2, err := a.log.Append([]byte("two"), oplog.AppendOptions{})
	require.NoError(t, err)

	var code int
	out := captureStdout(t, func() { code = a.cmdHeads(nil) })
	require.Equal(t, 0, code)
	require.Contains(t, out, e2.Hash)
	require.NotContains(t, out, e1.Hash)

	out = captureStdout(t, func() { code = a.cmdGet([]string{e1.Hash}) })
	require.Equal(t, 0, code)
	require.Contains(t, out, "payload:  one")
	require.Contains(t, out, "superseded by 1")

	require.Equal(t, 1, a.cmdGet([]string{"zdpuUnknown"}))
	unknown, err := hash.Sum([]byte("never appended"))
	require.NoError(t, err)
	require.Equal(t, 1, a.cmdGet([]string{unknown}))
}

// --- export / import ---

func TestExportImportBetweenReplicas(t *testing.T) {
	alice := newTestApp(t, testConfig(t, config.StorageSQLite, "alice", "todos"))
	for _, p := range []string{"a", "b", "c"} {
		_, err := alice.log.Append([]byte(p), oplog.AppendOptions{PointerCount: 4})
		require.NoError(t, err)
	}
	var stream bytes.Buffer
	n, err := alice.exportStream(&stream)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	bob := newTestApp(t, testConfig(t, config.StorageLevelDB, "bob", "todos"))
	res, err := bob.importStream(bytes.NewReader(stream.Bytes()))
	require.NoError(t, err)
	require.Equal(t, importResult{Added: 3}, res)

	res, err = bob.importStream(bytes.NewReader(stream.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 3, res.Ignored)
	require.Zero(t, res.Added)

	want, err := alice.log.Heads()
	require.NoError(t, err)
	got, err := bob.log.Heads()
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, want[0].Hash, got[0].Hash)

	// bob's next append continues after alice's clock
	e, err := bob.log.Append([]byte("d"), oplog.AppendOptions{})
	require.NoError(t, err)
	require.Equal(t, uint64(4), e.Clock.Time)
}

func TestImportRejectsOtherLog(t *testing.T) {
	alice := newTestApp(t, testConfig(t, config.StorageMemory, "alice", "todos"))
	_, err := alice.log.Append([]byte("a"), oplog.AppendOptions{})
	require.NoError(t, err)
	var stream bytes.Buffer
	_, err = alice.exportStream(&stream)
	require.NoError(t, err)

	other := newTestApp(t, testConfig(t, config.StorageMemory, "carol", "groceries"))
	path := filepath.Join(t.TempDir(), "todos.mpk")
	require.NoError(t, os.WriteFile(path, stream.Bytes(), 0644))

	var code int
	out := captureStdout(t, func() { code = other.cmdImport([]string{"--json", path}) })
	require.Equal(t, 2, code)
	var res importResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, 1, res.Rejected)
	require.Len(t, res.Errors, 1)

	n, err := other.log.Len()
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestImportCountsMalformedItems(t *testing.T) {
	a := newTestApp(t, testConfig(t, config.StorageMemory, "alice", "todos"))
	var stream bytes.Buffer
	sw := newStreamWriter(&stream)
	require.NoError(t, sw.write(kindIdentity, []byte("not an identity")))
	require.NoError(t, sw.write(kindEntry, []byte("not an entry")))
	require.NoError(t, sw.write("snapshot", nil))

	res, err := a.importStream(&stream)
	require.NoError(t, err)
	require.Equal(t, 3, res.Rejected)
	require.Zero(t, res.Added)
}

func TestImportBrokenStream(t *testing.T) {
	a := newTestApp(t, testConfig(t, config.StorageMemory, "alice", "todos"))
	_, err := a.importStream(strings.NewReader("\xc1"))
	require.Error(t, err)
}

func TestExportToFile(t *testing.T) {
	a := newTestApp(t, testConfig(t, config.StorageMemory, "alice", "todos"))
	_, err := a.log.Append([]byte("a"), oplog.AppendOptions{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.mpk")
	require.Equal(t, 0, a.cmdExport([]string{"--out", path}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var kinds []string
	require.NoError(t, readStream(f, func(kind string, _ []byte) error {
		kinds = append(kinds, kind)
		return nil
	}))
	require.Equal(t, []string{kindIdentity, kindEntry}, kinds)
}

// --- persistence ---

func TestReopenPersists(t *testing.T) {
	for _, backend := range []string{config.StorageSQLite, config.StorageLevelDB} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend, "alice", "todos")

			a, err := newApp(cfg)
			require.NoError(t, err)
			first := a.identity.ID
			for _, p := range []string{"a", "b"} {
				_, err := a.log.Append([]byte(p), oplog.AppendOptions{})
				require.NoError(t, err)
			}
			a.Close()

			b := newTestApp(t, cfg)
			require.Equal(t, first, b.identity.ID)
			n, err := b.log.Len()
			require.NoError(t, err)
			require.Equal(t, 2, n)
			hs, err := b.log.Heads()
			require.NoError(t, err)
			require.Len(t, hs, 1)
			require.Equal(t, "b", string(hs[0].Payload))
			c, err := b.log.Clock()
			require.NoError(t, err)
			require.Equal(t, uint64(2), c.Time)
		})
	}
}

// --- status / stats / dispatch ---

func TestStatusAndStats(t *testing.T) {
	a := newTestApp(t, testConfig(t, config.StorageSQLite, "alice", "todos"))
	for _, p := range []string{"a", "b"} {
		_, err := a.log.Append([]byte(p), oplog.AppendOptions{})
		require.NoError(t, err)
	}

	st, err := a.status()
	require.NoError(t, err)
	require.Equal(t, 2, st.Entries)
	require.Equal(t, 1, st.Heads)
	require.Equal(t, 1, st.Writers)
	require.Equal(t, uint64(2), st.Clock)
	require.Equal(t, int64(2), st.StoredBlocks)
	require.Positive(t, st.StoredBytes)

	var code int
	out := captureStdout(t, func() { code = a.cmdStats(nil) })
	require.Equal(t, 0, code)
	require.Contains(t, out, "merklelog_appends_total")
	require.Contains(t, out, `log="todos"`)
	require.Contains(t, out, "merklelog_entries")
}

func TestNewAppDeadlockDetection(t *testing.T) {
	disable, timeout, report := deadlock.Opts.Disable, deadlock.Opts.DeadlockTimeout, deadlock.Opts.OnPotentialDeadlock
	t.Cleanup(func() {
		deadlock.Opts.Disable = disable
		deadlock.Opts.DeadlockTimeout = timeout
		deadlock.Opts.OnPotentialDeadlock = report
	})

	newTestApp(t, testConfig(t, config.StorageMemory, "alice", "todos"))
	require.True(t, deadlock.Opts.Disable)

	cfg := testConfig(t, config.StorageMemory, "alice", "todos")
	cfg.DeadlockDetection = true
	newTestApp(t, cfg)
	require.False(t, deadlock.Opts.Disable)
	require.Greater(t, deadlock.Opts.DeadlockTimeout, storage.MaxWriteWait())
	require.Equal(t, oplog.MinDeadlockTimeout, deadlock.Opts.DeadlockTimeout)
}

func TestRunUnknownCommand(t *testing.T) {
	a, err := newApp(testConfig(t, config.StorageMemory, "alice", "todos"))
	require.NoError(t, err)
	require.Equal(t, 1, run(a, "frobnicate", nil))
}

func TestRunClosesApp(t *testing.T) {
	a, err := newApp(testConfig(t, config.StorageMemory, "alice", "todos"))
	require.NoError(t, err)
	captureStdout(t, func() { require.Equal(t, 0, run(a, "clock", nil)) })
	_, err = a.log.Append([]byte("late"), oplog.AppendOptions{})
	require.ErrorIs(t, err, oplog.ErrClosed)
}
