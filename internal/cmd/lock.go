package cmd

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/renato0307/farol/internal/config"
	"github.com/renato0307/farol/internal/logging"
)

// acquireInstanceLock takes an exclusive flock on the farol home so only
// one engine spawns sessions out of a registry database. The returned
// function releases the lock.
func acquireInstanceLock() (func(), error) {
	lockPath := config.GetLockPath()
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("another farol instance is already running (lock: %s)", lockPath)
	}

	logging.Logger.Debug("Acquired instance lock", "path", lockPath)
	return func() {
		if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
			logging.Logger.Warn("Failed to release instance lock", "error", err)
		}
		_ = f.Close()
	}, nil
}
