// Package config provides configuration management for SuiTicket Companion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/graaaaa/suiticket-companion/internal/appinfo"
)

// EnvDataDir relocates every file the companion keeps on disk.
const EnvDataDir = "SUITICKET_DATA_DIR"

// Paths locates the companion's files under one data directory.
type Paths struct {
	Dir string
}

// ResolvePaths picks the data directory: $SUITICKET_DATA_DIR when set,
// else %LOCALAPPDATA%\suiticket on Windows, else the user config dir.
func ResolvePaths() (Paths, error) {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return Paths{}, fmt.Errorf("resolve %s: %w", EnvDataDir, err)
		}
		return Paths{Dir: abs}, nil
	}

	base := ""
	if runtime.GOOS == "windows" {
		base = os.Getenv("LOCALAPPDATA")
	}
	if base == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return Paths{}, fmt.Errorf("get user config dir: %w", err)
		}
		base = dir
	}
	return Paths{Dir: filepath.Join(base, appinfo.DirName)}, nil
}

// Ensure creates the data directory, owner-only.
func (p Paths) Ensure() error {
	if err := os.MkdirAll(p.Dir, 0o700); err != nil {
		return fmt.Errorf("create data dir %q: %w", p.Dir, err)
	}
	return nil
}

func (p Paths) Config() string   { return filepath.Join(p.Dir, appinfo.ConfigFileName) }
func (p Paths) Secrets() string  { return filepath.Join(p.Dir, appinfo.SecretsFileName) }
func (p Paths) Lock() string     { return filepath.Join(p.Dir, appinfo.LockFileName) }
func (p Paths) Database() string { return filepath.Join(p.Dir, appinfo.DatabaseFileName) }
func (p Paths) Env() string      { return filepath.Join(p.Dir, appinfo.EnvFileName) }

// PasswordFile is where generated Basic Auth credentials are written for
// one-time pickup.
func (p Paths) PasswordFile() string { return filepath.Join(p.Dir, "generated_password.txt") }
