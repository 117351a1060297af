package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-nfsd/nfsd3/internal/bytesize"
)

func TestLoadFallsBackToDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nfsd3.yaml")
	content := `
listen:
  address: "127.0.0.1"
  port: 20490
  portmap_port: 1110
export:
  name: "/srv/data"
  id: 2
limits:
  rtmax: 65536
  rtpref: 65536
  wtmax: 65536
  wtpref: 65536
  dtpref: 8192
  max_file_size: 1073741824
  name_max: 255
  path_max: 4096
tracker:
  ttl: 30s
  max_clients: 128
  max_per_client: 512
logging:
  level: "debug"
  format: "json"
  output: "stderr"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.Listen.Address)
	require.Equal(t, 20490, cfg.Listen.Port)
	require.Equal(t, "/srv/data", cfg.Export.Name)
	require.Equal(t, uint8(2), cfg.Export.ID)
	require.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestValidateRejectsMissingExportName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Export.Name = ""
	err := Validate(cfg)
	require.Error(t, err)
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "VERBOSE"
	err := Validate(cfg)
	require.Error(t, err)
}

func TestValidateRejectsZeroLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Limits.RtMax = 0
	err := Validate(cfg)
	require.Error(t, err)
}

func TestValidateAcceptsDefaultConfig(t *testing.T) {
	require.NoError(t, Validate(DefaultConfig()))
}

func TestLoadAcceptsHumanReadableByteSizes(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nfsd3.yaml")
	content := `
limits:
  rtmax: 1MiB
  rtpref: 1MiB
  wtmax: 1MiB
  wtpref: 1MiB
  dtpref: 32KiB
  max_file_size: 1GiB
  name_max: 255
  path_max: 4096
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.Equal(t, bytesize.MiB, cfg.Limits.RtMax)
	require.Equal(t, 32*bytesize.KiB, cfg.Limits.DtPref)
	require.Equal(t, bytesize.GiB, cfg.Limits.MaxFileSize)
}
