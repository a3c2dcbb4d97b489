package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"slotbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("SLOTBOOK_TEST_DB", "data/test.db")
	yamlContent := `
database:
  path: "${SLOTBOOK_TEST_DB}"
booking:
  office_hours: "10:00-12:00"
  slot_duration_minutes: 20
  capacity: 3
  timezone: "Europe/Berlin"
api:
  auth:
    enabled: true
    api_keys:
      - key: "k1"
        extra: "e1"
        name: "frontend"
        permissions: ["read:calendar"]
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "data/test.db", cfg.Database.Path)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Booking.Capacity)
	require.Len(t, cfg.API.Auth.APIKeys, 1)
	assert.Equal(t, []string{"read:calendar"}, cfg.API.Auth.APIKeys[0].Permissions)

	grid, err := cfg.Grid()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Minute, grid.Duration())
	assert.Equal(t, "Europe/Berlin", grid.Location().String())
	assert.Len(t, grid.ForDay(2030, time.March, 4), 6)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		cfg := Config{Database: DatabaseConfig{Path: "path"}}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing sqlite path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "mysql" },
			wantErr: true,
		},
		{
			name: "postgres without host",
			mutate: func(c *Config) {
				c.Database.Driver = DriverPostgres
				c.Database.Postgres.DBName = "slotbook"
			},
			wantErr: true,
		},
		{
			name: "postgres",
			mutate: func(c *Config) {
				c.Database.Driver = DriverPostgres
				c.Database.Postgres.Host = "localhost"
				c.Database.Postgres.DBName = "slotbook"
			},
		},
		{
			name:    "overlapping office hours",
			mutate:  func(c *Config) { c.Booking.OfficeHours = "09:00-12:00,11:30-13:00" },
			wantErr: true,
		},
		{
			name:    "malformed office hours",
			mutate:  func(c *Config) { c.Booking.OfficeHours = "nine to five" },
			wantErr: true,
		},
		{
			name:    "negative capacity",
			mutate:  func(c *Config) { c.Booking.Capacity = -1 },
			wantErr: true,
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Booking.Timezone = "Mars/Olympus" },
			wantErr: true,
		},
		{
			name: "duplicate api key",
			mutate: func(c *Config) {
				c.API.Auth.APIKeys = []APIClientKey{{Key: "k", Name: "a"}, {Key: "k", Name: "b"}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, models.DefaultOfficeHours, cfg.Booking.OfficeHours)
	assert.Equal(t, models.DefaultSlotDurationMinutes, cfg.Booking.SlotDurationMinutes)
	assert.Equal(t, models.DefaultSlotCapacity, cfg.Booking.Capacity)
	assert.Equal(t, "UTC", cfg.Booking.Timezone)
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, "x-user-id", cfg.API.HTTP.HeaderUserID)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss", DBName: "slotbook", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss@db:5432/slotbook?sslmode=disable", p.DSN())
}
