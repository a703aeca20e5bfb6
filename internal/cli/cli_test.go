package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"venuebook/internal/database"
	"venuebook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dbPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := "database:\n  driver: sqlite\n  path: " + dbPath + "\n" +
		"notify:\n  driver: log\n" +
		"logging:\n  level: warn\n  format: json\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func seedExpired(t *testing.T, dbPath string) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.UpsertVenue(ctx, &models.Venue{ID: "hotel-a", Name: "Hotel Lumen", Currency: "EUR"}))

	b := &models.Booking{
		ClientName: "Jane Roe",
		VenueID:    "hotel-a",
		Date:       "2026-03-02",
		Time:       "10:30",
		Currency:   "EUR",
		Status:     models.StatusAwaitingSelection,
	}
	p := &models.ProposedSlot{
		Date1:     "2026-03-02",
		Time1:     "10:30",
		ExpiresAt: time.Now().Add(-3 * time.Hour),
	}
	require.NoError(t, db.CreateProposal(ctx, b, p))
}

func TestSweepCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "venuebook.db")
	seedExpired(t, dbPath)
	cfgPath := writeConfig(t, dbPath)

	out, err := run(t, "--config", cfgPath, "sweep")
	require.NoError(t, err)

	var got sweepOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, sweepOutput{Success: true, Expired: 1, Notified: 1, Claimed: 1}, got)

	out, err = run(t, "--config", cfgPath, "sweep")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, sweepOutput{Success: true}, got)
}

func TestMigrateCommand_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "venuebook.db")
	cfgPath := writeConfig(t, dbPath)

	_, err := run(t, "--config", cfgPath, "migrate")
	require.NoError(t, err)
	assert.FileExists(t, dbPath)
}

func TestReportCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "venuebook.db")
	seedExpired(t, dbPath)
	cfgPath := writeConfig(t, dbPath)
	outPath := filepath.Join(t.TempDir(), "report.xlsx")

	today := time.Now().UTC()
	from := today.AddDate(0, 0, -1).Format(dateFlagLayout)
	to := today.AddDate(0, 0, 2).Format(dateFlagLayout)

	out, err := run(t, "--config", cfgPath, "report", "--from", from, "--to", to, "--out", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "1 proposals")
	assert.FileExists(t, outPath)
}

func TestReportWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

	from, to, err := (&reportOptions{}).window(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), to)

	from, to, err = (&reportOptions{from: "2026-01-10", to: "2026-01-20"}).window(now)
	require.NoError(t, err)
	assert.Equal(t, 10, from.Day())
	assert.Equal(t, 20, to.Day())

	_, _, err = (&reportOptions{from: "2026-01-20", to: "2026-01-10"}).window(now)
	assert.Error(t, err)

	_, _, err = (&reportOptions{from: "20.01.2026"}).window(now)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "venuebook dev")
}
