package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const defaultUsername = "admin"

// ErrSecretsSchema is returned when secrets.json was written by an
// incompatible version.
var ErrSecretsSchema = errors.New("secrets schema mismatch")

// SecretsLoadStatus tells the caller whether secrets.json may be rewritten.
type SecretsLoadStatus int

const (
	SecretsLoaded SecretsLoadStatus = iota
	// SecretsMissing: no file yet, writing one is safe.
	SecretsMissing
	// SecretsFallback: the file exists but could not be used. Defaults are
	// returned and the file must be left alone.
	SecretsFallback
)

func (s SecretsLoadStatus) String() string {
	switch s {
	case SecretsLoaded:
		return "loaded"
	case SecretsMissing:
		return "missing"
	case SecretsFallback:
		return "fallback"
	}
	return fmt.Sprintf("SecretsLoadStatus(%d)", int(s))
}

const redacted = "[REDACTED]"

// Secret is a string that prints redacted under every fmt verb and in
// slog text output. Value returns the real string.
type Secret string

func (s Secret) String() string   { return redacted }
func (s Secret) GoString() string { return redacted }
func (s Secret) Value() string    { return string(s) }
func (s Secret) IsEmpty() bool    { return s == "" }

// Secrets is the content of secrets.json. json.Marshal writes the real
// values, so never log it whole.
type Secrets struct {
	SchemaVersion     int    `json:"schema_version"`
	DiscordWebhookURL Secret `json:"discord_webhook_url"`
	BasicAuthUsername string `json:"basic_auth_username"`
	BasicAuthPassword Secret `json:"basic_auth_password"`
	SSESigningKey     Secret `json:"sse_signing_key"`
}

// DefaultSecrets returns empty secrets at the current schema version.
func DefaultSecrets() Secrets {
	return Secrets{SchemaVersion: CurrentSchemaVersion}
}

// LoadSecretsFrom reads secrets.json. A missing file is not an error.
func LoadSecretsFrom(path string) (Secrets, SecretsLoadStatus, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return DefaultSecrets(), SecretsMissing, nil
	case err != nil:
		return DefaultSecrets(), SecretsFallback, fmt.Errorf("read secrets: %w", err)
	}

	var sec Secrets
	if err := json.Unmarshal(data, &sec); err != nil {
		return DefaultSecrets(), SecretsFallback, fmt.Errorf("decode secrets: %w", err)
	}
	if sec.SchemaVersion != CurrentSchemaVersion {
		return DefaultSecrets(), SecretsFallback,
			fmt.Errorf("%w: got %d, want %d", ErrSecretsSchema, sec.SchemaVersion, CurrentSchemaVersion)
	}
	return sec, SecretsLoaded, nil
}

// SaveSecretsTo writes secrets.json atomically.
func SaveSecretsTo(sec Secrets, path string) error {
	sec.SchemaVersion = CurrentSchemaVersion
	return writeJSONAtomic(path, sec)
}

// EnsureLanAuth fills in Basic Auth credentials when LAN mode is on. A
// generated password is returned in plaintext once so it can be shown to
// the user; it is empty when nothing was generated.
func EnsureLanAuth(s *Secrets, lanEnabled bool) (updated bool, generatedPassword string) {
	if !lanEnabled {
		return false, ""
	}
	if s.BasicAuthUsername == "" {
		s.BasicAuthUsername = defaultUsername
		updated = true
	}
	if s.BasicAuthPassword.IsEmpty() {
		generatedPassword = rand.Text()
		s.BasicAuthPassword = Secret(generatedPassword)
		updated = true
	}
	return updated, generatedPassword
}

// EnsureSSEKey generates the stream token signing key on first start.
// Rotating it invalidates every issued token.
func EnsureSSEKey(s *Secrets) (updated bool, err error) {
	if !s.SSESigningKey.IsEmpty() {
		return false, nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return false, fmt.Errorf("generate sse key: %w", err)
	}
	s.SSESigningKey = Secret(hex.EncodeToString(b))
	return true, nil
}

// WritePasswordFile writes generated credentials to path, owner-only.
func WritePasswordFile(path, username, password string) error {
	content := fmt.Sprintf("Username: %s\nPassword: %s\n\nDelete this file after saving the credentials.\n", username, password)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write password file: %w", err)
	}
	return nil
}
