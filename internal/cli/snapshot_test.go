package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedSnapshotDB runs the hello program twice so the database holds
// snapshots at ticks 2 and 4.
func seedSnapshotDB(t *testing.T) string {
	t.Helper()
	dir := writeHelloDefinition(t)
	db := filepath.Join(t.TempDir(), "state.db")

	_, err := execRun(t, dir, "--ticks", "2", "--db", db)
	require.NoError(t, err)
	_, err = execRun(t, dir, "--ticks", "4", "--db", db)
	require.NoError(t, err)
	return db
}

func execSnapshot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSnapshotCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestSnapshotList(t *testing.T) {
	db := seedSnapshotDB(t)

	out, err := execSnapshot(t, "list", "--db", db, "--program", "hello-demo")
	require.NoError(t, err)
	assert.Contains(t, out, "tick 2")
	assert.Contains(t, out, "tick 4")
}

func TestSnapshotListUnknownProgram(t *testing.T) {
	db := seedSnapshotDB(t)

	out, err := execSnapshot(t, "list", "--db", db, "--program", "ghost")
	require.NoError(t, err)
	assert.Contains(t, out, "no snapshots for ghost")
}

func TestSnapshotShowLatest(t *testing.T) {
	db := seedSnapshotDB(t)

	out, err := execSnapshot(t, "show", "latest", "--db", db, "--program", "hello-demo")
	require.NoError(t, err)
	assert.Contains(t, out, `"tick": 4`)
	assert.Contains(t, out, "greeting")
}

func TestSnapshotShowExactTick(t *testing.T) {
	db := seedSnapshotDB(t)

	out, err := execSnapshot(t, "show", "2", "--db", db, "--program", "hello-demo")
	require.NoError(t, err)
	assert.Contains(t, out, `"tick": 2`)
}

func TestSnapshotShowMissingTick(t *testing.T) {
	db := seedSnapshotDB(t)

	out, err := execSnapshot(t, "show", "99", "--db", db, "--program", "hello-demo")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "NO_SNAPSHOT")
}

func TestSnapshotPrune(t *testing.T) {
	db := seedSnapshotDB(t)

	out, err := execSnapshot(t, "prune", "--db", db, "--program", "hello-demo", "--keep", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 1 snapshots")

	out, err = execSnapshot(t, "list", "--db", db, "--program", "hello-demo")
	require.NoError(t, err)
	assert.NotContains(t, out, "tick 2")
	assert.Contains(t, out, "tick 4")
}

func TestSnapshotRequiresFlags(t *testing.T) {
	out, err := execSnapshot(t, "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "MISSING_FLAGS")
}
