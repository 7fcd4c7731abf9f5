// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptobluejava/phbt-sub000/internal/program"
	"github.com/cryptobluejava/phbt-sub000/internal/program/processor"
)

var validConfigJSON = `{
    "rpc_list": [
        "https://api.devnet.solana.com",
        "https://rpc.ankr.com/solana_devnet"
    ],
    "graduation_threshold": 10000000000,
    "untracked_sell_policy": "exempt",
    "paperhand_tax_bps": 2500,
    "debug_logging": true,
    "retries": 5
}`

func setupTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "valid config",
			content: validConfigJSON,
			check: func(t *testing.T, cfg *Config) {
				assert.Len(t, cfg.RPCList, 2)
				assert.Equal(t, uint64(10_000_000_000), cfg.GraduationThreshold)
				assert.Equal(t, "exempt", cfg.UntrackedSellPolicy)
				assert.Equal(t, uint16(2500), cfg.PaperhandTaxBps)
				assert.True(t, cfg.DebugLogging)
				assert.Equal(t, 5, cfg.Retries)
				// defaults fill the rest
				assert.Equal(t, program.DefaultProgramID.String(), cfg.ProgramID)
				assert.Equal(t, program.DefaultVirtualSol, cfg.DefaultVirtualSol)
				assert.Equal(t, DefaultEventBuffer, cfg.EventBuffer)
			},
		},
		{name: "bad policy", content: `{"untracked_sell_policy": "maybe"}`, wantErr: true},
		{name: "bad rpc scheme", content: `{"rpc_list": ["ftp://x"]}`, wantErr: true},
		{name: "bad program id", content: `{"program_id": "not-a-key"}`, wantErr: true},
		{name: "tax over 100%", content: `{"paperhand_tax_bps": 10001}`, wantErr: true},
		{name: "zero threshold", content: `{"graduation_threshold": 0}`, wantErr: true},
		{name: "invalid JSON syntax", content: "{invalid json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(setupTestConfig(t, tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultRPC}, cfg.RPCList)
	assert.Equal(t, program.DefaultGraduationThreshold, cfg.GraduationThreshold)
	assert.Equal(t, DefaultStatePath, cfg.StatePath)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PHBT_RPC_LIST", "https://a.example.com, https://b.example.com")
	t.Setenv("PHBT_LAUNCH_FEE", "7")
	t.Setenv("PHBT_POSTGRES_URL", "postgres://phbt@localhost/phbt")

	cfg, err := LoadConfig(setupTestConfig(t, validConfigJSON))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.RPCList)
	assert.Equal(t, uint64(7), cfg.LaunchFee)
	assert.Equal(t, "postgres://phbt@localhost/phbt", cfg.PostgresURL)
}

func TestConfig_Params(t *testing.T) {
	cfg, err := LoadConfig(setupTestConfig(t, validConfigJSON))
	require.NoError(t, err)

	params, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, processor.UntrackedSellExempt, params.UntrackedSellPolicy)
	assert.Equal(t, cfg.GraduationThreshold, params.GraduationThreshold)
	assert.Equal(t, program.DefaultProgramID, cfg.ProgramKey())
}
