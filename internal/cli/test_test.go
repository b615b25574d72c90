package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: create
description: "a landlord creates a contract"
identities:
  landlord: { org: orgA, user: L }
flow:
  - invoke: CreateContract
    as: landlord
    args:
      contractId: C1
      landlordId: L
      tenantId: T
      landlordOrg: orgA
      tenantOrg: orgB
      signedContractFileHash: "sha256:l"
      landlordSignatureMeta: { kid: L-key }
      rentAmount: 100
      depositAmount: 200
      startDate: "2025-01-01"
      endDate: "2025-06-30"
assertions:
  - type: event_count
    event: ContractCreated
    count: 1
`

const failingScenario = `
name: missing
description: "reading a contract that does not exist"
identities:
  landlord: { org: orgA, user: L }
flow:
  - invoke: GetContract
    as: landlord
    query: true
    args: { contractId: C1 }
`

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentPath(t *testing.T) {
	_, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyDir(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")

	out, err = execute(t, "--format", "json", "test", dir)
	require.NoError(t, err)
	assert.Equal(t, "ok", decodeResponse(t, out).Status)
}

func TestTestCommandGoldenLifecycle(t *testing.T) {
	dir := t.TempDir()
	scenario := writeFile(t, dir, "create.yaml", passingScenario)
	golden := filepath.Join(dir, "golden", "create.golden")

	out, err := execute(t, "test", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ create")
	assert.NoFileExists(t, golden)

	out, err = execute(t, "test", dir, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "golden updated")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Equal(t,
		`{"caller":"landlord","event":"ContractCreated","function":"CreateContract","outcome":"ok","phase":"flow","seq":1,"tx_id":"tx-000001"}`+"\n",
		string(data))

	out, err = execute(t, "test", scenario)
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	require.NoError(t, os.WriteFile(golden, []byte(strings.Replace(string(data), "tx-000001", "tx-000002", 1)), 0o644))
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandFailuresJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "create.yaml", passingScenario)
	writeFile(t, dir, "missing.yaml", failingScenario)
	writeFile(t, dir, "broken.yaml", "name: broken\n")

	out, err := execute(t, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)

	data := resp.Data.(map[string]any)
	assert.EqualValues(t, 3, data["total"])
	assert.EqualValues(t, 1, data["passed"])
	assert.EqualValues(t, 2, data["failed"])
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "create.yaml", passingScenario)
	writeFile(t, dir, "missing.yaml", failingScenario)

	out, err := execute(t, "test", dir, "--filter", "cr*")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestFindScenarioFiles(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "late")
	require.NoError(t, os.MkdirAll(subDir, 0o755))

	writeFile(t, tmpDir, "late-fee.yaml", "")
	writeFile(t, tmpDir, "lifecycle.yml", "")
	writeFile(t, tmpDir, "notes.txt", "")
	writeFile(t, subDir, "late-sweep.yaml", "")

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	files, err = findScenarioFiles(tmpDir, "late-*")
	require.NoError(t, err)
	assert.Len(t, files, 2)
	for _, f := range files {
		assert.True(t, strings.HasPrefix(filepath.Base(f), "late-"), f)
	}

	_, err = findScenarioFiles(tmpDir, "[")
	assert.ErrorContains(t, err, "invalid filter pattern")
}
