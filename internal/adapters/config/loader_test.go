package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/conduit/internal/adapters/config"
	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/conduit/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, domain.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newLoader(t *testing.T) *config.Loader {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	return config.NewLoader(log)
}

func TestLoader_Load_Full(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
version: "1"
log:
  json: true
clock:
  tick: 500ms
cache:
  expire: 2m
  outdate: 30s
  shards: 64
  sweepInterval: 5m
pipeline:
  inputs: [Key]
  results: [Value, Audit?]
  entrypoints:
    - name: lookupCache
      imports: [Key]
      exports: [Cached?]
      priority: high
      component: cache
      lifetime: singleton
      absent: [Cached]
    - name: lookupDB
      imports: [Key]
      exports: [FromDB]
      constraints: ["!Cached"]
      priority: low
      async: true
      delay: 20ms
  domains:
    - name: lookup
      keys: [Key]
      values: [Value]
`)

	settings, err := newLoader(t).Load(path)
	require.NoError(t, err)

	assert.True(t, settings.LogJSON)
	assert.Equal(t, 500*time.Millisecond, settings.ClockTick)
	assert.Equal(t, domain.CacheSettings{
		Expire:        2 * time.Minute,
		Outdate:       30 * time.Second,
		Shards:        64,
		SweepInterval: 5 * time.Minute,
	}, settings.Cache)

	m := settings.Pipeline
	assert.Equal(t, []domain.Port{{Type: domain.NewInternedString("Key")}}, m.Inputs)
	assert.Equal(t, []domain.Port{
		{Type: domain.NewInternedString("Value")},
		{Type: domain.NewInternedString("Audit"), Optional: true},
	}, m.Results)

	require.Len(t, m.Entrypoints, 2)
	cache := m.Entrypoints[0]
	assert.Equal(t, "lookupCache", cache.Name)
	assert.Equal(t, domain.PriorityHigh, cache.Priority)
	assert.Equal(t, "cache", cache.Component)
	assert.Equal(t, domain.LifetimeSingleton, cache.Lifetime)
	assert.Equal(t, []domain.Port{{Type: domain.NewInternedString("Cached"), Optional: true}}, cache.Exports)
	assert.Equal(t, []domain.InternedString{domain.NewInternedString("Cached")}, cache.Absent)

	db := m.Entrypoints[1]
	assert.Equal(t, domain.PriorityLow, db.Priority)
	assert.True(t, db.Async)
	assert.Equal(t, 20*time.Millisecond, db.Delay)
	assert.Equal(t, []domain.Constraint{
		{Type: domain.NewInternedString("Cached"), RequiresAbsent: true},
	}, db.Constraints)

	require.Len(t, m.Domains, 1)
	assert.Equal(t, "lookup", m.Domains[0].Name)
	assert.Equal(t, []domain.InternedString{domain.NewInternedString("Key")}, m.Domains[0].Keys)
}

func TestLoader_Load_Defaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `version: "1"`)

	settings, err := newLoader(t).Load(path)
	require.NoError(t, err)

	assert.False(t, settings.LogJSON)
	assert.Equal(t, domain.DefaultClockTick, settings.ClockTick)
	assert.Equal(t, domain.CacheSettings{
		Expire:        domain.DefaultExpireTTL,
		Outdate:       domain.DefaultOutdateTTL,
		Shards:        domain.DefaultShards,
		SweepInterval: domain.DefaultSweepInterval,
	}, settings.Cache)
}

func TestLoader_Load_OutdateDefaultsBelowShortExpire(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
cache:
  expire: 10s
`)

	settings, err := newLoader(t).Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, settings.Cache.Outdate)
}

func TestLoader_Load_InvalidTTL(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
cache:
  expire: 10s
  outdate: 1m
`)

	_, err := newLoader(t).Load(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrInvalidTTL.Error())
}

func TestLoader_Load_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name: "priority",
			content: `
pipeline:
  entrypoints:
    - name: a
      priority: urgent
`,
			field: "priority",
		},
		{
			name: "lifetime",
			content: `
pipeline:
  entrypoints:
    - name: a
      lifetime: forever
`,
			field: "lifetime",
		},
		{
			name: "shards",
			content: `
cache:
  shards: -1
`,
			field: "cache.shards",
		},
		{
			name: "missing name",
			content: `
pipeline:
  entrypoints:
    - imports: [A]
`,
			field: "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)

			_, err := newLoader(t).Load(path)
			require.Error(t, err)
			assert.ErrorContains(t, err, domain.ErrInvalidConfig.Error())

			var zErr *zerr.Error
			require.ErrorAs(t, err, &zErr)
			assert.Equal(t, tt.field, zErr.Metadata()["field"])
		})
	}
}

func TestLoader_Load_BadDuration(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
clock:
  tick: soon
`)

	_, err := newLoader(t).Load(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrInvalidConfig.Error())
}

func TestLoader_Load_ParseError(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "pipeline: [unterminated")

	_, err := newLoader(t).Load(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrConfigParseFailed.Error())
}

func TestLoader_Load_DiscoversParentDirectory(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
cache:
  shards: 8
`)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	settings, err := newLoader(t).Load(nested)
	require.NoError(t, err)
	assert.Equal(t, 8, settings.Cache.Shards)
}

func TestLoader_Load_NotFound(t *testing.T) {
	_, err := newLoader(t).Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrConfigNotFound.Error())
}

func TestLoader_Load_WarnsWithoutVersion(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).Times(1)

	path := writeConfig(t, t.TempDir(), "log:\n  json: false\n")
	_, err := config.NewLoader(log).Load(path)
	require.NoError(t, err)
}

func TestLoader_Load_AbsentMustBeOptionalExport(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
pipeline:
  entrypoints:
    - name: a
      exports: [A]
      absent: [A]
`)

	_, err := newLoader(t).Load(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrInvalidConfig.Error())

	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, "absent", zErr.Metadata()["field"])
}
