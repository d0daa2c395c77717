package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightbench/litctl/internal/schedule"
)

func writeSchedule(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bench.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCheckCommand_PrintsRows(t *testing.T) {
	path := writeSchedule(t, "time,set_point\n0,1.0\n500,2.0\n1000,1.5\n")

	var buf bytes.Buffer
	checkCmd.SetOut(&buf)
	defer checkCmd.SetOut(nil)

	err := runCheck(checkCmd, []string{path})
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "ROW")
	assert.Contains(t, output, "SET_POINT")
	assert.Contains(t, output, "3 rows")
	assert.Contains(t, output, "1.5s")
}

func TestCheckCommand_MissingFile(t *testing.T) {
	err := runCheck(checkCmd, []string{filepath.Join(t.TempDir(), "absent.csv")})
	require.Error(t, err)
	assert.ErrorIs(t, err, schedule.ErrNotFound)
}

func TestCheckCommand_InvalidRow(t *testing.T) {
	path := writeSchedule(t, "time,set_point\n100,abc\n")

	err := runCheck(checkCmd, []string{path})
	require.Error(t, err)

	var perr *schedule.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Row)
}
