package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/ecocycle/internal/model"
	sqliterepo "github.com/sakif/ecocycle/internal/repository/sqlite"
)

// run executes the CLI with args against a fresh database file.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func tempDB(t *testing.T) string {
	return filepath.Join(t.TempDir(), "ecocycle.db")
}

func TestMigrate(t *testing.T) {
	db := tempDB(t)

	out, err := run(t, db, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated to version 3")

	out, err = run(t, db, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 3")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		device model.DeviceType
	}{
		{"label", []string{"--label", "laptop", "--score", "0.93"}, model.DeviceLaptop},
		{"phone label", []string{"--label", "cell phone"}, model.DeviceSmartphone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tempDB(t), append([]string{"classify"}, tt.args...)...)
			require.NoError(t, err)

			var res model.ClassificationResult
			require.NoError(t, json.Unmarshal([]byte(out), &res), out)
			assert.Equal(t, tt.device, res.DeviceType)
		})
	}

	_, err := run(t, tempDB(t), "classify", "--label", "laptop", "--score", "1.5")
	assert.Error(t, err)
}

func TestValue(t *testing.T) {
	out, err := run(t, tempDB(t), "value", "smartphone", "--condition", "0.8")
	require.NoError(t, err)

	var res valueReport
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.InDelta(t, 0.18, res.Weight, 1e-9)
	assert.Equal(t, 27, res.Points)
	assert.Equal(t, 97.52, res.Value.FinalValue)
	assert.Equal(t, 8.1, res.CO2Saved)

	_, err = run(t, tempDB(t), "value", "toaster")
	assert.Error(t, err)
}

func TestSeedAndSweep(t *testing.T) {
	db := tempDB(t)

	_, err := run(t, db, "seed")
	assert.Error(t, err, "seed without a target")

	out, err := run(t, db, "seed", "--competitors")
	require.NoError(t, err)
	assert.Contains(t, out, "created")

	// a second run keeps the existing accounts
	out, err = run(t, db, "seed", "--competitors")
	require.NoError(t, err)
	assert.Contains(t, out, "created 0 competitor accounts")

	store, err := sqliterepo.New(db)
	require.NoError(t, err)
	ids, err := store.ListUserIDs(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NotEmpty(t, ids)

	out, err = run(t, db, "seed", "--user", ids[0])
	require.NoError(t, err)
	assert.Contains(t, out, "added 15 records")

	out, err = run(t, db, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "replaced expired challenges for 0 users")
}

func TestDetectNeedsOneInput(t *testing.T) {
	_, err := run(t, tempDB(t), "detect")
	assert.Error(t, err)
}
