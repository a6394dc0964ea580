package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadExpandsEnvAndDefaults(t *testing.T) {
	t.Setenv("AULABOT_TEST_PASSWORD", "s3cret")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
credentials:
  email: user@example.org
  password: ${AULABOT_TEST_PASSWORD}
booking:
  room: ormea
  shift_start: "09:00"
  shift_end: "13:00"
ledger:
  path: ` + filepath.Join(dir, "data", "test.db") + `
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Credentials.Password)
	assert.Equal(t, "ormea", cfg.Booking.Room)
	assert.Equal(t, "Europe/Rome", cfg.Booking.Timezone)
	assert.Equal(t, "https://edisuprenotazioni.edisu-piemonte.it:8443/sbs", cfg.API.WebBaseURL)
	assert.DirExists(t, filepath.Join(dir, "data"))

	id, err := cfg.HallID("ormea")
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	_, err = cfg.HallID("nonexistent")
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "verdi", cfg.Booking.Room)
	assert.Equal(t, 6, cfg.Rooms["verdi"])
	assert.Positive(t, cfg.APITimeout())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Rome", loc.String())
}
