// Package appinfo provides application identity constants.
// These are used across packages for consistent naming.
package appinfo

const (
	// AppName is the display name of the application.
	AppName = "SuiTicket Companion"

	// DirName is the directory name used for storing application data.
	// Location: %LOCALAPPDATA%/suiticket/ (Windows) or ~/.config/suiticket/ (other)
	DirName = "suiticket"

	// MutexName is the Windows mutex name for single instance control.
	// "Local\" scopes the mutex to the current user session.
	MutexName = "Local\\suiticket-companion"

	// LockFileName is the lock file used for single instance control on POSIX.
	LockFileName = "suiticket.lock"

	// ConfigFileName is the configuration file name.
	ConfigFileName = "config.json"

	// SecretsFileName is the secrets file name.
	SecretsFileName = "secrets.json"

	// DatabaseFileName is the SQLite database file name.
	DatabaseFileName = "suiticket.sqlite"

	// EnvFileName is the optional dotenv file read from the data dir.
	EnvFileName = ".env"
)
