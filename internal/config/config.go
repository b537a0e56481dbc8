package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the archiver's resolved runtime settings (SPEC_FULL.md §6
// AMBIENT Configuration).
type Config struct {
	DataDir             string
	GatewayToken        string // never logged, never read from a config file
	DownloadConcurrency int
	GuildIDs            []string // empty means archive every guild the token can see
	BackfillPacing      time.Duration
}

// String masks GatewayToken so a stray %v/%+v in a log line never leaks it,
// matching spec.md §7's credential-handling design note.
func (c Config) String() string {
	masked := "<unset>"
	if c.GatewayToken != "" {
		masked = "<redacted>"
	}
	return fmt.Sprintf("Config{DataDir:%q GatewayToken:%s DownloadConcurrency:%d GuildIDs:%v BackfillPacing:%v}",
		c.DataDir, masked, c.DownloadConcurrency, c.GuildIDs, c.BackfillPacing)
}

const (
	defaultDownloadConcurrency = 8
	defaultBackfillPacing      = 250 * time.Millisecond
	defaultConfigPath          = "archiver.json"

	gatewayTokenEnvVar = "DISCORD_ARCHIVER_TOKEN"
)

// fileConfig is the on-disk JSON config shape. The gateway token has no
// field here by design: it is env-var only, so it can never end up
// committed to a config file by accident.
type fileConfig struct {
	DataDir             string   `json:"data_dir,omitempty"`
	DownloadConcurrency int      `json:"download_concurrency,omitempty"`
	GuildIDs            []string `json:"guild_ids,omitempty"`
	BackfillPacingMs    int64    `json:"backfill_pacing_ms,omitempty"`
}

// Load resolves configuration with the following priority (highest wins):
//  1. Environment variables (ARCHIVER_DATA_DIR, ARCHIVER_DOWNLOAD_CONCURRENCY,
//     ARCHIVER_GUILD_IDS) and DISCORD_ARCHIVER_TOKEN for the gateway token
//  2. CLI flag overrides (flagDataDir, flagConfigPath)
//  3. Config file (JSON, default ./archiver.json)
//  4. Built-in defaults
func Load(flagDataDir, flagConfigPath string) (*Config, error) {
	return LoadWithPath(flagConfigPath, flagDataDir)
}

// LoadWithPath loads configuration using an explicit config file path,
// falling back to defaultConfigPath when configPath is empty.
func LoadWithPath(configPath, flagDataDir string) (*Config, error) {
	cfg := &Config{
		DownloadConcurrency: defaultDownloadConcurrency,
		BackfillPacing:      defaultBackfillPacing,
	}

	if configPath == "" {
		configPath = defaultConfigPath
	}
	fc, err := loadFileConfig(configPath)
	if err == nil {
		applyFileConfig(cfg, fc)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if v := os.Getenv("ARCHIVER_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ARCHIVER_DOWNLOAD_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("ARCHIVER_DOWNLOAD_CONCURRENCY: %w", err)
		}
		cfg.DownloadConcurrency = n
	}
	if v := os.Getenv("ARCHIVER_GUILD_IDS"); v != "" {
		cfg.GuildIDs = strings.Split(v, ",")
	}

	cfg.GatewayToken = os.Getenv(gatewayTokenEnvVar)
	if cfg.GatewayToken == "" {
		return nil, fmt.Errorf("gateway token not set: export %s", gatewayTokenEnvVar)
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data directory not specified: set ARCHIVER_DATA_DIR, pass --data-dir, or set data_dir in %s", configPath)
	}
	if cfg.DownloadConcurrency <= 0 {
		return nil, fmt.Errorf("download concurrency must be positive, got %d", cfg.DownloadConcurrency)
	}

	return cfg, nil
}

func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &fc, nil
}

func applyFileConfig(cfg *Config, fc *fileConfig) {
	if fc.DataDir != "" {
		cfg.DataDir = fc.DataDir
	}
	if fc.DownloadConcurrency != 0 {
		cfg.DownloadConcurrency = fc.DownloadConcurrency
	}
	if len(fc.GuildIDs) > 0 {
		cfg.GuildIDs = fc.GuildIDs
	}
	if fc.BackfillPacingMs != 0 {
		cfg.BackfillPacing = time.Duration(fc.BackfillPacingMs) * time.Millisecond
	}
}
