package profile

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.meshchat, or $MESHCHAT_HOME when set.
func BaseDir() string {
	if dir := os.Getenv("MESHCHAT_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".meshchat")
}

// Dir returns the profile-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "profiles", name)
}

// SocketPath returns the UDS socket path for a profile.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "daemon.sock")
}

// LockPath returns the lock file path for a profile.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// DBPath returns the message log and roster database path.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "mesh.db")
}

// NodeConfigPath returns the node.toml path.
func NodeConfigPath(name string) string {
	return filepath.Join(Dir(name), "node.toml")
}

// EnvPath returns the optional dotenv file of a profile.
func EnvPath(name string) string {
	return filepath.Join(Dir(name), ".env")
}

// LogDir returns the log directory for a profile.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "meshd.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree with proper permissions.
func EnsureDir(name string) error {
	dirs := []string{
		Dir(name),
		LogDir(name),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
