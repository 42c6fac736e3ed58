package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/lobby/internal/core/hash"
)

// validConfig returns a Config with all required fields set for testing.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	return &cfg
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), dataDir)
	require.NoError(t, err)

	assert.Equal(t, "ws://127.0.0.1:8888", cfg.Conductor.URL)
	assert.Equal(t, 30*time.Second, cfg.Conductor.CallTimeout)
	assert.Equal(t, 20, cfg.Fetch.BatchSize)
	assert.Equal(t, 10, cfg.Fetch.LatestBatchSize)
	assert.Equal(t, filepath.Join(dataDir, "state.json"), cfg.StateFile())
}

func TestLoad_File(t *testing.T) {
	bob := hash.Serialize([]byte("bob"))
	path := writeConfig(t, `
conductor:
  url: wss://conductor.example:443
  call_timeout: 5s
fetch:
  batch_size: 50
  payload_type: media
aliases:
  bob: `+bob+`
`)

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "wss://conductor.example:443", cfg.Conductor.URL)
	assert.Equal(t, 5*time.Second, cfg.Conductor.CallTimeout)
	assert.Equal(t, 50, cfg.Fetch.BatchSize)
	assert.Equal(t, 10, cfg.Fetch.LatestBatchSize, "unset values fall back to defaults")
	assert.Equal(t, "Media", string(cfg.PayloadType()))
	assert.Equal(t, bob, cfg.Resolve("bob"))
	assert.Equal(t, "u-other", cfg.Resolve("u-other"))
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, `
conductor:
  url: http://localhost:8888
fetch:
  batch_size: -1
  payload_type: audio
aliases:
  bob: not-a-hash
`)

	_, err := Load(path, t.TempDir())

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"conductor.url", "fetch.batch_size", "fetch.payload_type", "aliases.bob"}, fields)
}

func TestLoad_ParseError(t *testing.T) {
	path := writeConfig(t, "conductor: [")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestValidate_URL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"ws", "ws://localhost:8888", false},
		{"wss", "wss://example.com", false},
		{"empty", "", true},
		{"http", "http://localhost", true},
		{"no host", "ws://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			cfg.Conductor.URL = tt.url
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_EmptyDataDir(t *testing.T) {
	cfg := validConfig(t)
	cfg.DataDir = ""

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.Validate(), &fieldErrs)
	assert.Equal(t, "data_dir", fieldErrs[0].Field)
}

func TestValidateDeep_ValidConfig(t *testing.T) {
	cfg := validConfig(t)
	cfg.Aliases = map[string]string{"bob": hash.Serialize([]byte("bob"))}

	assert.NoError(t, cfg.ValidateDeep(""))
}

func TestValidateDeep_DuplicateAlias(t *testing.T) {
	cfg := validConfig(t)
	bob := hash.Serialize([]byte("bob"))
	cfg.Aliases = map[string]string{"b": bob, "bob": bob}

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.ValidateDeep(""), &fieldErrs)
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "aliases.bob", fieldErrs[0].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), `"b"`)
}

func TestValidateDeep_ConfigIsDirectory(t *testing.T) {
	cfg := validConfig(t)

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.ValidateDeep(t.TempDir()), &fieldErrs)
	assert.Equal(t, "config", fieldErrs[0].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), "is a directory")
}

func TestValidateDeep_DataDirIsFile(t *testing.T) {
	cfg := validConfig(t)
	cfg.DataDir = writeConfig(t, "")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.ValidateDeep(""), &fieldErrs)
	assert.Equal(t, "data_dir", fieldErrs[0].Field)
}

func TestWarnings(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		assert.Empty(t, validConfig(t).Warnings())
	})

	t.Run("remote plaintext", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Conductor.URL = "ws://conductor.example:8888"

		warnings := cfg.Warnings()
		require.Len(t, warnings, 1)
		assert.Equal(t, "url", warnings[0].Item)
	})

	t.Run("payload filter", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Fetch.PayloadType = "text"

		warnings := cfg.Warnings()
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0].Message, "Text")
	})
}
