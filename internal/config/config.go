// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"github.com/cryptobluejava/phbt-sub000/internal/program"
	"github.com/cryptobluejava/phbt-sub000/internal/program/processor"
)

type Config struct {
	ProgramID   string   `mapstructure:"program_id"`
	RPCList     []string `mapstructure:"rpc_list"`
	KeypairPath string   `mapstructure:"keypair_path"`

	GraduationThreshold uint64 `mapstructure:"graduation_threshold"`
	DefaultVirtualSol   uint64 `mapstructure:"default_virtual_sol"`
	LaunchFee           uint64 `mapstructure:"launch_fee"`
	UntrackedSellPolicy string `mapstructure:"untracked_sell_policy"`
	Fees                uint16 `mapstructure:"fees"`
	PaperhandTaxBps     uint16 `mapstructure:"paperhand_tax_bps"`

	StatePath   string `mapstructure:"state_path"`
	JournalDir  string `mapstructure:"journal_dir"`
	PostgresURL string `mapstructure:"postgres_url"`

	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
	EventBuffer  int    `mapstructure:"event_buffer"`
	Retries      int    `mapstructure:"retries"`
}

const (
	DefaultRPC         = "https://api.devnet.solana.com"
	DefaultStatePath   = "phbt-state.json"
	DefaultJournalDir  = "journal"
	DefaultEventBuffer = 1024
	DefaultRetries     = 3
	EnvPrefix          = "PHBT"
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"program_id":            program.DefaultProgramID.String(),
		"rpc_list":              []string{DefaultRPC},
		"keypair_path":          "",
		"graduation_threshold":  program.DefaultGraduationThreshold,
		"default_virtual_sol":   program.DefaultVirtualSol,
		"launch_fee":            program.DefaultLaunchFee,
		"untracked_sell_policy": string(processor.UntrackedSellTax),
		"fees":                  0,
		"paperhand_tax_bps":     program.DefaultPaperhandTaxBps,
		"state_path":            DefaultStatePath,
		"journal_dir":           DefaultJournalDir,
		"postgres_url":          "",
		"debug_logging":         false,
		"log_file":              "",
		"event_buffer":          DefaultEventBuffer,
		"retries":               DefaultRetries,
	}
}

// LoadConfig reads path (when non-empty) over the defaults, then applies
// PHBT_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	loadRPCList(v, &cfg)

	return &cfg, validateConfig(&cfg)
}

// loadRPCList splits a comma separated PHBT_RPC_LIST.
func loadRPCList(v *viper.Viper, cfg *Config) {
	raw := v.GetString("rpc_list")
	if raw == "" {
		return
	}
	var clean []string
	for _, rpc := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(rpc); s != "" {
			clean = append(clean, s)
		}
	}
	if len(clean) > 0 {
		cfg.RPCList = clean
	}
}

func validateConfig(cfg *Config) error {
	if _, err := solana.PublicKeyFromBase58(cfg.ProgramID); err != nil {
		return fmt.Errorf("invalid program_id: %w", err)
	}
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", rpcURL, err)
		}
	}
	if _, err := processor.ParseUntrackedSellPolicy(cfg.UntrackedSellPolicy); err != nil {
		return err
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.GraduationThreshold == 0 {
		return errors.New("invalid graduation_threshold")
	}
	if cfg.Fees > program.BasisPoints {
		return errors.New("invalid fees")
	}
	if cfg.PaperhandTaxBps > program.BasisPoints {
		return errors.New("invalid paperhand_tax_bps")
	}
	if cfg.EventBuffer <= 0 {
		return errors.New("invalid event_buffer")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// ProgramKey returns the parsed program id.
func (c *Config) ProgramKey() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.ProgramID)
}

// Params returns the processor parameters described by c.
func (c *Config) Params() (processor.Params, error) {
	policy, err := processor.ParseUntrackedSellPolicy(c.UntrackedSellPolicy)
	if err != nil {
		return processor.Params{}, err
	}
	return processor.Params{
		GraduationThreshold: c.GraduationThreshold,
		LaunchFee:           c.LaunchFee,
		DefaultVirtualSol:   c.DefaultVirtualSol,
		UntrackedSellPolicy: policy,
	}, nil
}
