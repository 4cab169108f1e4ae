package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDefinitionYAML = `
id: lights-off
name: Lights Off
description: Turn lights off when nobody is around
targetUrl: https://example.com/smartapp
permissions:
  - "r:devices:*"
configPages:
  - pageName: Devices
    sections:
      - name: Sensors
        settings:
          - id: motionSensor
            name: Motion sensor
            description: Sensor to watch
            required: true
            type: DEVICE
            multiple: false
            capabilities: [motionSensor]
            permissions: [r]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	defPath := writeFile(t, dir, "app.yaml", testDefinitionYAML)
	cfgPath := writeFile(t, dir, "config.yaml", "definition: "+defPath+"\n")

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, DefaultKeyServerURL, cfg.KeyServerURL)
	assert.True(t, *cfg.CheckSignatures)
	assert.Equal(t, 5*time.Minute, cfg.ClockSkew())
	assert.Equal(t, time.Hour, cfg.KeyCacheTTL())
	assert.False(t, cfg.StrictEvents)
}

func TestLoadExplicitValues(t *testing.T) {
	dir := t.TempDir()
	defPath := writeFile(t, dir, "app.yaml", testDefinitionYAML)
	cfgPath := writeFile(t, dir, "config.yaml", `
listen: 0.0.0.0:9000
log_level: DEBUG
definition: `+defPath+`
keyserver_url: https://keys.example.com
check_signatures: false
clock_skew_sec: 0
strict_events: true
max_body_size: 2MB
key_cache_ttl_sec: 600
`)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "https://keys.example.com", cfg.KeyServerURL)
	assert.False(t, *cfg.CheckSignatures)
	assert.Equal(t, time.Duration(0), cfg.ClockSkew())
	assert.True(t, cfg.StrictEvents)
	assert.Equal(t, 10*time.Minute, cfg.KeyCacheTTL())

	size, err := ParseMaxBodySize(cfg.MaxBodySize)
	require.NoError(t, err)
	assert.Equal(t, int64(2*1024*1024), size)
}

func TestLoadEnvExpansion(t *testing.T) {
	dir := t.TempDir()
	defPath := writeFile(t, dir, "app.yaml", testDefinitionYAML)
	cfgPath := writeFile(t, dir, "config.yaml", `
listen: "${GW_TEST_LISTEN}"
definition: `+defPath+`
`)

	t.Setenv("GW_TEST_LISTEN", "127.0.0.1:9999")

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Listen)
}

func TestLoadValidation(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("missing definition", func(t *testing.T) {
		cfgPath := writeFile(t, dir, "nodef.yaml", "listen: 127.0.0.1:8080\n")
		_, err := Load(cfgPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "definition")
	})

	t.Run("negative clock skew", func(t *testing.T) {
		defPath := writeFile(t, dir, "app.yaml", testDefinitionYAML)
		cfgPath := writeFile(t, dir, "skew.yaml", "definition: "+defPath+"\nclock_skew_sec: -1\n")
		_, err := Load(cfgPath)
		assert.Error(t, err)
	})

	t.Run("bad max body size", func(t *testing.T) {
		defPath := writeFile(t, dir, "app2.yaml", testDefinitionYAML)
		cfgPath := writeFile(t, dir, "size.yaml", "definition: "+defPath+"\nmax_body_size: lots\n")
		_, err := Load(cfgPath)
		assert.Error(t, err)
	})
}

func TestLoadDefinitionYAML(t *testing.T) {
	dir := t.TempDir()
	defPath := writeFile(t, dir, "app.yaml", testDefinitionYAML)
	cfgPath := writeFile(t, dir, "config.yaml", "definition: "+defPath+"\n")

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	def, err := cfg.LoadDefinition()
	require.NoError(t, err)
	assert.Equal(t, "lights-off", def.ID)
	assert.Equal(t, "https://example.com/smartapp", def.TargetURL)
	require.Len(t, def.ConfigPages, 1)
}

func TestLoadDefinitionPinnedHash(t *testing.T) {
	dir := t.TempDir()
	defPath := writeFile(t, dir, "app.yaml", testDefinitionYAML)

	hash, err := ComputeFileHash(defPath)
	require.NoError(t, err)

	cfgPath := writeFile(t, dir, "config.yaml",
		"definition: "+defPath+"\ndefinition_hash: "+hash+"\n")
	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	_, err = cfg.LoadDefinition()
	assert.NoError(t, err)

	// Drift the file; the pinned hash must now reject it.
	require.NoError(t, os.WriteFile(defPath, []byte(testDefinitionYAML+"# edited\n"), 0o644))
	_, err = cfg.LoadDefinition()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash mismatch")
}

func TestVerifyFileHash(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.txt", "hello")

	hash, err := ComputeFileHash(path)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	assert.NoError(t, VerifyFileHash(path, hash))
	assert.Error(t, VerifyFileHash(path, "deadbeef"))
}

func TestParseMaxBodySize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "", want: 1048576},
		{input: "1048576", want: 1048576},
		{input: "512KB", want: 512 * 1024},
		{input: "1MB", want: 1024 * 1024},
		{input: "1GB", want: 1024 * 1024 * 1024},
		{input: " 2 MB ", want: 2 * 1024 * 1024},
		{input: "abc", wantErr: true},
		{input: "-1", wantErr: true},
		{input: "0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMaxBodySize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
