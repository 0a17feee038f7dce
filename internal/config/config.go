package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
)

// CurrentSchemaVersion is the current config schema version.
const CurrentSchemaVersion = 1

// Environment variable names for config overrides.
// Priority: Environment > Config File > Default
const (
	EnvPort                 = "SUITICKET_PORT"
	EnvLanEnabled           = "SUITICKET_LAN_ENABLED"
	EnvRPCURL               = "SUITICKET_RPC_URL"
	EnvNetwork              = "SUITICKET_NETWORK"
	EnvPackageID            = "SUITICKET_PACKAGE_ID"
	EnvRegistryID           = "SUITICKET_REGISTRY_ID"
	EnvOwner                = "SUITICKET_OWNER"
	EnvSyncIntervalSec      = "SUITICKET_SYNC_INTERVAL_SEC"
	EnvFinalityMode         = "SUITICKET_FINALITY_MODE"
	EnvLogLevel             = "SUITICKET_LOG_LEVEL"
	EnvDiscordBatchSec      = "SUITICKET_DISCORD_BATCH_SEC"
	EnvNotifyOnSuccess      = "SUITICKET_NOTIFY_ON_SUCCESS"
	EnvNotifyOnFailure      = "SUITICKET_NOTIFY_ON_FAILURE"
	EnvJournalRetentionDays = "SUITICKET_JOURNAL_RETENTION_DAYS"
	EnvAllowedOrigins       = "SUITICKET_ALLOWED_ORIGINS"
)

// Finality modes.
const (
	FinalityPoll = "poll"
	FinalityWait = "wait"
)

const defaultRPCURL = "https://fullnode.testnet.sui.io:443"

// Config holds non-sensitive application configuration.
type Config struct {
	SchemaVersion        int    `json:"schema_version"`
	Port                 int    `json:"port"`
	LanEnabled           bool   `json:"lan_enabled"`
	RPCURL               string `json:"rpc_url"`
	Network              string `json:"network"`
	PackageID            string `json:"package_id"`
	RegistryID           string `json:"registry_id"`
	OwnerAddress         string `json:"owner_address"`
	SyncIntervalSec      int    `json:"sync_interval_sec"`
	FinalityMode         string `json:"finality_mode"`
	LogLevel             string `json:"log_level"`
	DiscordBatchSec      int    `json:"discord_batch_sec"`
	NotifyOnSuccess      bool   `json:"notify_on_success"`
	NotifyOnFailure      bool   `json:"notify_on_failure"`
	JournalRetentionDays int    `json:"journal_retention_days"`
	// AllowedOrigins are the web origins (the wallet dApp) allowed to call
	// the API cross-origin.
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SchemaVersion:        CurrentSchemaVersion,
		Port:                 8787,
		LanEnabled:           false,
		RPCURL:               defaultRPCURL,
		Network:              "testnet",
		SyncIntervalSec:      30,
		FinalityMode:         FinalityPoll,
		LogLevel:             "info",
		DiscordBatchSec:      3,
		NotifyOnSuccess:      true,
		NotifyOnFailure:      true,
		JournalRetentionDays: 30,
	}
}

// LoadConfigFrom reads config from the specified path.
// The file may contain comments and trailing commas.
func LoadConfigFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		log.Printf("Warning: failed to read config file: %v, using defaults", err)
		return cfg, nil
	}

	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		log.Printf("Warning: config file is corrupt: %v, using defaults", err)
		return DefaultConfig(), nil
	}

	if cfg.SchemaVersion != CurrentSchemaVersion {
		log.Printf("Warning: config schema version mismatch (got %d, expected %d), using defaults",
			cfg.SchemaVersion, CurrentSchemaVersion)
		return DefaultConfig(), nil
	}

	return normalizeConfig(cfg), nil
}

// normalizeConfig validates and normalizes config values.
func normalizeConfig(cfg Config) Config {
	defaults := DefaultConfig()

	cfg.SchemaVersion = CurrentSchemaVersion

	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = defaults.Port
	}
	cfg.RPCURL = strings.TrimSpace(cfg.RPCURL)
	if cfg.RPCURL == "" {
		cfg.RPCURL = defaults.RPCURL
	}
	if cfg.Network == "" {
		cfg.Network = defaults.Network
	}
	cfg.PackageID = strings.ToLower(strings.TrimSpace(cfg.PackageID))
	cfg.RegistryID = strings.ToLower(strings.TrimSpace(cfg.RegistryID))
	cfg.OwnerAddress = strings.ToLower(strings.TrimSpace(cfg.OwnerAddress))
	if cfg.SyncIntervalSec <= 0 {
		cfg.SyncIntervalSec = defaults.SyncIntervalSec
	}
	cfg.FinalityMode = strings.ToLower(strings.TrimSpace(cfg.FinalityMode))
	if cfg.FinalityMode != FinalityPoll && cfg.FinalityMode != FinalityWait {
		cfg.FinalityMode = defaults.FinalityMode
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
		cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	default:
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.DiscordBatchSec < 0 {
		cfg.DiscordBatchSec = defaults.DiscordBatchSec
	}
	if cfg.JournalRetentionDays <= 0 {
		cfg.JournalRetentionDays = defaults.JournalRetentionDays
	}
	cfg.AllowedOrigins = NormalizeOrigins(cfg.AllowedOrigins)

	return cfg
}

// NormalizeOrigins trims, drops trailing slashes and dedupes.
func NormalizeOrigins(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, o := range in {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}

// Validate reports configuration that makes the daemon unusable.
// Empty package or owner are allowed; the API reports them as not configured.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.RPCURL, "http://") && !strings.HasPrefix(c.RPCURL, "https://") {
		return fmt.Errorf("rpc_url must be http(s): %q", c.RPCURL)
	}
	for name, v := range map[string]string{
		"package_id":    c.PackageID,
		"registry_id":   c.RegistryID,
		"owner_address": c.OwnerAddress,
	} {
		if v != "" && !strings.HasPrefix(v, "0x") {
			return fmt.Errorf("%s must start with 0x: %q", name, v)
		}
	}
	for _, o := range c.AllowedOrigins {
		u, err := url.Parse(o)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || u.Path != "" {
			return fmt.Errorf("allowed_origins entry must be scheme://host[:port]: %q", o)
		}
	}
	return nil
}

// SaveConfigTo writes config to the specified path atomically.
func SaveConfigTo(cfg Config, path string) error {
	cfg.SchemaVersion = CurrentSchemaVersion

	return writeJSONAtomic(path, cfg)
}

// LoadDotEnv loads variables from the given dotenv files into the process
// environment. Variables already set are left alone and missing files are
// skipped, so a real environment always wins over the file.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the config.
// Environment variables take highest priority over config file values.
func ApplyEnvOverrides(cfg Config) Config {
	if v := os.Getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port <= 65535 {
			cfg.Port = port
		}
	}

	if v := os.Getenv(EnvLanEnabled); v != "" {
		cfg.LanEnabled = parseBool(v)
	}

	if v := os.Getenv(EnvRPCURL); v != "" {
		cfg.RPCURL = v
	}
	if v := os.Getenv(EnvNetwork); v != "" {
		cfg.Network = v
	}
	if v := os.Getenv(EnvPackageID); v != "" {
		cfg.PackageID = v
	}
	if v := os.Getenv(EnvRegistryID); v != "" {
		cfg.RegistryID = v
	}
	if v := os.Getenv(EnvOwner); v != "" {
		cfg.OwnerAddress = v
	}

	if v := os.Getenv(EnvSyncIntervalSec); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.SyncIntervalSec = sec
		}
	}

	if v := os.Getenv(EnvFinalityMode); v != "" {
		cfg.FinalityMode = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv(EnvDiscordBatchSec); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec >= 0 {
			cfg.DiscordBatchSec = sec
		}
	}

	if v := os.Getenv(EnvNotifyOnSuccess); v != "" {
		cfg.NotifyOnSuccess = parseBool(v)
	}
	if v := os.Getenv(EnvNotifyOnFailure); v != "" {
		cfg.NotifyOnFailure = parseBool(v)
	}

	if v := os.Getenv(EnvJournalRetentionDays); v != "" {
		if d, err := strconv.Atoi(v); err == nil && d > 0 {
			cfg.JournalRetentionDays = d
		}
	}

	if v := os.Getenv(EnvAllowedOrigins); v != "" {
		cfg.AllowedOrigins = strings.Split(v, ",")
	}

	return normalizeConfig(cfg)
}

// parseBool parses a boolean from various string representations.
// Accepts: "true", "1", "yes", "on" (case-insensitive) as true.
// All other values are treated as false.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
