// Package runtimepath locates the per-user runtime files of the daemon: the
// control socket and the single-instance lock.
package runtimepath

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

const (
	socketName = "tagwm.sock"
	lockName   = "tagwm.lock"
)

// Dir returns the directory holding the socket and the lock, trying in order
// $TAGWM_RUNTIME_DIR, $XDG_RUNTIME_DIR, /run/user/<uid> and finally a
// private tagwm-<uid> directory under the system temp dir.
func Dir() (string, error) {
	for _, env := range []string{"TAGWM_RUNTIME_DIR", "XDG_RUNTIME_DIR"} {
		if dir := os.Getenv(env); dir != "" {
			return dir, nil
		}
	}

	uid := os.Getuid()
	runUser := filepath.Join("/run/user", strconv.Itoa(uid))
	if info, err := os.Stat(runUser); err == nil && info.IsDir() {
		return runUser, nil
	}
	return privateTempDir(uid)
}

// privateTempDir creates tagwm-<uid> under the temp dir. An existing entry
// is only accepted when it is a real directory owned by uid that no other
// user can enter, since the socket inside it accepts control commands.
func privateTempDir(uid int) (string, error) {
	dir := filepath.Join(os.TempDir(), "tagwm-"+strconv.Itoa(uid))
	if err := os.Mkdir(dir, 0o700); err != nil && !errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("create runtime dir: %w", err)
	}

	var st unix.Stat_t
	if err := unix.Lstat(dir, &st); err != nil {
		return "", fmt.Errorf("stat runtime dir: %w", err)
	}
	switch {
	case st.Mode&unix.S_IFMT != unix.S_IFDIR:
		return "", fmt.Errorf("runtime dir %s is not a directory", dir)
	case int(st.Uid) != uid:
		return "", fmt.Errorf("runtime dir %s is owned by uid %d, not %d", dir, st.Uid, uid)
	case st.Mode&0o077 != 0:
		return "", fmt.Errorf("runtime dir %s is accessible by other users (mode %#o)", dir, st.Mode&0o777)
	}
	return dir, nil
}

func join(name string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// SocketPath returns the daemon IPC socket path. TAGWM_SOCKET overrides it.
func SocketPath() (string, error) {
	if p := os.Getenv("TAGWM_SOCKET"); p != "" {
		return p, nil
	}
	return join(socketName)
}

// LockPath returns the path of the file the daemon holds an exclusive lock
// on while running.
func LockPath() (string, error) {
	return join(lockName)
}
