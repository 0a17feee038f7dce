package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/graaaaa/suiticket-companion/internal/config"
)

// ConfigUsecase defines the configuration management use case.
type ConfigUsecase interface {
	// GetConfig returns the current configuration.
	GetConfig(ctx context.Context) ConfigResponse

	// UpdateConfig updates the configuration with the given changes.
	// Returns the result indicating success and whether restart is required.
	UpdateConfig(ctx context.Context, req ConfigUpdateRequest) (ConfigUpdateResponse, error)
}

// ConfigResponse represents the current configuration (excludes secret values).
type ConfigResponse struct {
	Port                     int      `json:"port"`
	LanEnabled               bool     `json:"lan_enabled"`
	RPCURL                   string   `json:"rpc_url"`
	Network                  string   `json:"network"`
	PackageID                string   `json:"package_id"`
	RegistryID               string   `json:"registry_id"`
	OwnerAddress             string   `json:"owner_address"`
	SyncIntervalSec          int      `json:"sync_interval_sec"`
	FinalityMode             string   `json:"finality_mode"`
	LogLevel                 string   `json:"log_level"`
	DiscordBatchSec          int      `json:"discord_batch_sec"`
	NotifyOnSuccess          bool     `json:"notify_on_success"`
	NotifyOnFailure          bool     `json:"notify_on_failure"`
	JournalRetentionDays     int      `json:"journal_retention_days"`
	AllowedOrigins           []string `json:"allowed_origins"`
	DiscordWebhookConfigured bool     `json:"discord_webhook_configured"`
}

// ConfigUpdateRequest contains optional fields for updating configuration.
type ConfigUpdateRequest struct {
	Port                 *int      `json:"port,omitempty"`
	LanEnabled           *bool     `json:"lan_enabled,omitempty"`
	RPCURL               *string   `json:"rpc_url,omitempty"`
	Network              *string   `json:"network,omitempty"`
	PackageID            *string   `json:"package_id,omitempty"`
	RegistryID           *string   `json:"registry_id,omitempty"`
	OwnerAddress         *string   `json:"owner_address,omitempty"`
	SyncIntervalSec      *int      `json:"sync_interval_sec,omitempty"`
	FinalityMode         *string   `json:"finality_mode,omitempty"`
	LogLevel             *string   `json:"log_level,omitempty"`
	DiscordBatchSec      *int      `json:"discord_batch_sec,omitempty"`
	NotifyOnSuccess      *bool     `json:"notify_on_success,omitempty"`
	NotifyOnFailure      *bool     `json:"notify_on_failure,omitempty"`
	JournalRetentionDays *int      `json:"journal_retention_days,omitempty"`
	AllowedOrigins       *[]string `json:"allowed_origins,omitempty"`
	DiscordWebhookURL    *string   `json:"discord_webhook_url,omitempty"`
}

// ConfigUpdateResponse indicates the result of a configuration update.
type ConfigUpdateResponse struct {
	Success         bool `json:"success"`
	RestartRequired bool `json:"restart_required"`
	NewPort         int  `json:"new_port,omitempty"`
}

// ConfigService implements ConfigUsecase.
type ConfigService struct {
	ConfigPath  string
	SecretsPath string

	// OwnerChanged, if set, applies a new owner_address to the running
	// process, so that change alone does not require a restart.
	OwnerChanged func(owner string)
}

// GetConfig returns the current configuration.
func (s ConfigService) GetConfig(ctx context.Context) ConfigResponse {
	cfg, _ := config.LoadConfigFrom(s.ConfigPath)
	sec, _, _ := config.LoadSecretsFrom(s.SecretsPath)

	return ConfigResponse{
		Port:                     cfg.Port,
		LanEnabled:               cfg.LanEnabled,
		RPCURL:                   cfg.RPCURL,
		Network:                  cfg.Network,
		PackageID:                cfg.PackageID,
		RegistryID:               cfg.RegistryID,
		OwnerAddress:             cfg.OwnerAddress,
		SyncIntervalSec:          cfg.SyncIntervalSec,
		FinalityMode:             cfg.FinalityMode,
		LogLevel:                 cfg.LogLevel,
		DiscordBatchSec:          cfg.DiscordBatchSec,
		NotifyOnSuccess:          cfg.NotifyOnSuccess,
		NotifyOnFailure:          cfg.NotifyOnFailure,
		JournalRetentionDays:     cfg.JournalRetentionDays,
		AllowedOrigins:           append([]string{}, cfg.AllowedOrigins...),
		DiscordWebhookConfigured: !sec.DiscordWebhookURL.IsEmpty(),
	}
}

// UpdateConfig updates the configuration.
func (s ConfigService) UpdateConfig(ctx context.Context, req ConfigUpdateRequest) (ConfigUpdateResponse, error) {
	// Load current config
	cfg, err := config.LoadConfigFrom(s.ConfigPath)
	if err != nil {
		return ConfigUpdateResponse{}, fmt.Errorf("load config: %w", err)
	}

	// Load current secrets
	sec, status, err := config.LoadSecretsFrom(s.SecretsPath)
	if err != nil && status == config.SecretsFallback {
		return ConfigUpdateResponse{}, fmt.Errorf("load secrets: %w", err)
	}

	originalPort := cfg.Port
	originalOwner := cfg.OwnerAddress
	configChanged := false
	secretsChanged := false

	// Apply updates to config
	if req.Port != nil {
		if *req.Port < 1 || *req.Port > 65535 {
			return ConfigUpdateResponse{}, invalidf("port must be between 1 and 65535")
		}
		cfg.Port = *req.Port
		configChanged = true
	}
	if req.LanEnabled != nil {
		cfg.LanEnabled = *req.LanEnabled
		configChanged = true
	}
	for _, f := range []struct {
		src *string
		dst *string
	}{
		{req.RPCURL, &cfg.RPCURL},
		{req.Network, &cfg.Network},
		{req.PackageID, &cfg.PackageID},
		{req.RegistryID, &cfg.RegistryID},
		{req.OwnerAddress, &cfg.OwnerAddress},
		{req.LogLevel, &cfg.LogLevel},
	} {
		if f.src != nil {
			*f.dst = strings.TrimSpace(*f.src)
			configChanged = true
		}
	}
	if req.SyncIntervalSec != nil {
		if *req.SyncIntervalSec < 1 {
			return ConfigUpdateResponse{}, invalidf("sync_interval_sec must be positive")
		}
		cfg.SyncIntervalSec = *req.SyncIntervalSec
		configChanged = true
	}
	if req.FinalityMode != nil {
		if m := *req.FinalityMode; m != config.FinalityPoll && m != config.FinalityWait {
			return ConfigUpdateResponse{}, invalidf("finality_mode must be %q or %q", config.FinalityPoll, config.FinalityWait)
		}
		cfg.FinalityMode = *req.FinalityMode
		configChanged = true
	}
	if req.DiscordBatchSec != nil {
		if *req.DiscordBatchSec < 0 {
			return ConfigUpdateResponse{}, invalidf("discord_batch_sec must be non-negative")
		}
		cfg.DiscordBatchSec = *req.DiscordBatchSec
		configChanged = true
	}
	if req.NotifyOnSuccess != nil {
		cfg.NotifyOnSuccess = *req.NotifyOnSuccess
		configChanged = true
	}
	if req.NotifyOnFailure != nil {
		cfg.NotifyOnFailure = *req.NotifyOnFailure
		configChanged = true
	}
	if req.JournalRetentionDays != nil {
		if *req.JournalRetentionDays < 1 {
			return ConfigUpdateResponse{}, invalidf("journal_retention_days must be positive")
		}
		cfg.JournalRetentionDays = *req.JournalRetentionDays
		configChanged = true
	}
	if req.AllowedOrigins != nil {
		cfg.AllowedOrigins = config.NormalizeOrigins(*req.AllowedOrigins)
		configChanged = true
	}
	if err := cfg.Validate(); err != nil {
		return ConfigUpdateResponse{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	// Apply updates to secrets
	if req.DiscordWebhookURL != nil {
		url := *req.DiscordWebhookURL
		if url != "" && !isValidDiscordWebhookURL(url) {
			return ConfigUpdateResponse{}, invalidf("invalid Discord webhook URL")
		}
		sec.DiscordWebhookURL = config.Secret(url)
		secretsChanged = true
	}

	// Save config if changed
	if configChanged {
		if err := config.SaveConfigTo(cfg, s.ConfigPath); err != nil {
			return ConfigUpdateResponse{}, fmt.Errorf("save config: %w", err)
		}
	}

	// Save secrets if changed
	if secretsChanged {
		if err := config.SaveSecretsTo(sec, s.SecretsPath); err != nil {
			return ConfigUpdateResponse{}, fmt.Errorf("save secrets: %w", err)
		}
	}

	restart := secretsChanged || (configChanged && !ownerOnly(req))
	if cfg.OwnerAddress != originalOwner {
		if s.OwnerChanged != nil {
			s.OwnerChanged(cfg.OwnerAddress)
		} else {
			restart = true
		}
	}

	resp := ConfigUpdateResponse{
		Success:         true,
		RestartRequired: restart,
	}

	if cfg.Port != originalPort {
		resp.NewPort = cfg.Port
	}

	return resp, nil
}

// ownerOnly reports whether req touches no config field besides owner_address.
func ownerOnly(req ConfigUpdateRequest) bool {
	r := req
	r.OwnerAddress = nil
	r.DiscordWebhookURL = nil
	return r == ConfigUpdateRequest{}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// isValidDiscordWebhookURL validates Discord webhook URL format.
func isValidDiscordWebhookURL(url string) bool {
	return strings.HasPrefix(url, "https://discord.com/api/webhooks/") ||
		strings.HasPrefix(url, "https://discordapp.com/api/webhooks/")
}
