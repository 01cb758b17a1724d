package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const appName = "edgebar"

// Dir returns the per-user runtime directory. $XDG_RUNTIME_DIR wins; then an
// existing /run/user/<uid>; otherwise a private directory under /tmp is
// created.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir, nil
	}
	uid := strconv.Itoa(os.Getuid())
	if dir := filepath.Join("/run/user", uid); isDir(dir) {
		return dir, nil
	}
	dir := filepath.Join(os.TempDir(), appName+"-runtime-"+uid)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create runtime dir %s: %w", dir, err)
	}
	return dir, nil
}

// SocketPath returns the daemon IPC socket path.
func SocketPath() (string, error) {
	return under(Dir, appName+".sock")
}

// DataDir returns $XDG_DATA_HOME/edgebar, else ~/.local/share/edgebar. It is
// not created.
func DataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// JournalPath returns the default pass journal database path.
func JournalPath() (string, error) {
	return under(DataDir, "journal.db")
}

func under(base func() (string, error), name string) (string, error) {
	dir, err := base()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
