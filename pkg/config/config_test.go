package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/scanmeta/pkg/ingest"
	"github.com/ChrisMcGann/scanmeta/pkg/source"
)

func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	settings, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", settings.Database.Driver)
	assert.Equal(t, "scanmeta.db", settings.Database.Path)
	assert.Equal(t, "info", settings.Log.Level)
	assert.Equal(t, "console", settings.Log.Format)
	assert.Equal(t, 4, settings.Ingest.Workers)
	assert.Equal(t, 500, settings.Ingest.BatchSize)
	assert.Empty(t, settings.Filter.MsLevels)

	analyzer, dissociation, err := settings.ReaderAttributes()
	require.NoError(t, err)
	assert.Equal(t, source.AnalyzerUnknown, analyzer)
	assert.Equal(t, source.DissociationUnknown, dissociation)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /data/scans.db
ingest:
  workers: 8
  onerror: abort
filter:
  mslevels: [2, 3]
  minrt: 1.5
  filltic: true
reader:
  analyzer: IT
  dissociation: CID
`), 0o600))

	t.Setenv("SCANMETA_INGEST_BATCHSIZE", "50")
	t.Setenv("SCANMETA_LOG_FORMAT", "json")

	settings, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "/data/scans.db", settings.Database.Path)
	assert.Equal(t, 8, settings.Ingest.Workers)
	assert.Equal(t, 50, settings.Ingest.BatchSize)
	assert.Equal(t, "json", settings.Log.Format)

	opts, err := settings.IngestOptions()
	require.NoError(t, err)
	assert.Equal(t, ingest.Abort, opts.OnError)
	require.NotNil(t, opts.Filter)
	assert.Equal(t, []int{2, 3}, opts.Filter.MsLevels)
	assert.Equal(t, 1.5, opts.Filter.MinRT)
	assert.True(t, opts.Filter.FillTotalIonCurrent)

	analyzer, dissociation, err := settings.ReaderAttributes()
	require.NoError(t, err)
	assert.Equal(t, source.AnalyzerIonTrap2D, analyzer)
	assert.Equal(t, source.DissociationCID, dissociation)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	isolate(t)

	tests := []struct {
		name   string
		key    string
		value  any
		errMsg string
	}{
		{"unknown driver", "database.driver", "postgres", "unsupported database driver"},
		{"mysql without dsn", "database.driver", "mysql", "database.dsn is required"},
		{"log format", "log.format", "xml", "invalid log format"},
		{"workers", "ingest.workers", 0, "ingest.workers"},
		{"batch size", "ingest.batchsize", -1, "ingest.batchsize"},
		{"error policy", "ingest.onerror", "retry", "invalid error policy"},
		{"rt window", "filter.minrt", 10.0, "exceeds maximum"},
		{"analyzer", "reader.analyzer", "magnet", "unknown mass analyzer"},
		{"dissociation", "reader.dissociation", "laser", "unknown dissociation type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Set("filter.maxrt", 5.0)
			v.Set(tt.key, tt.value)

			_, err := Load(v, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
