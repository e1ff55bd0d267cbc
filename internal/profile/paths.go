package profile

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the base directory, mostly for tests and sandboxes.
const HomeEnv = "TABROOM_HOME"

// BaseDir returns $TABROOM_HOME, or ~/.tabroom.
func BaseDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tabroom")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// Dir returns the profile directory. Everything under it is shared by the
// profile's tabs.
func Dir(profile string) string {
	return filepath.Join(BaseDir(), "profiles", profile)
}

// SQLitePath returns the shared message log database.
func SQLitePath(profile string) string {
	return filepath.Join(Dir(profile), "room.db")
}

// PebblePath returns the shared Pebble message log directory.
func PebblePath(profile string) string {
	return filepath.Join(Dir(profile), "room.pebble")
}

// SessionDir returns the directory owned by one tab session.
func SessionDir(profile, session string) string {
	return filepath.Join(Dir(profile), "sessions", session)
}

// SocketPath returns the UDS control socket of a session.
func SocketPath(profile, session string) string {
	return filepath.Join(SessionDir(profile, session), "tab.sock")
}

// IdentityPath returns the session's identity record.
func IdentityPath(profile, session string) string {
	return filepath.Join(SessionDir(profile, session), "identity.toml")
}

// LogDir returns the log directory for a session.
func LogDir(profile, session string) string {
	return filepath.Join(SessionDir(profile, session), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(profile, session string) string {
	return filepath.Join(LogDir(profile, session), "tabroomd.log")
}

// EnsureDirs creates the profile and session directory tree with proper permissions.
func EnsureDirs(profile, session string) error {
	for _, d := range []string{Dir(profile), SessionDir(profile, session), LogDir(profile, session)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
