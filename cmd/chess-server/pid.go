package main

import (
	"fmt"
	"os"
	"strconv"
	"syscall"
)

// writePIDFile writes the process ID to path and holds an exclusive lock on it,
// so a second server with the same PID file refuses to start. The returned
// cleanup releases the lock and removes the file.
func writePIDFile(path string) (func(), error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("cannot open PID file: %w", err)
	}

	if err = syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		if err == syscall.EWOULDBLOCK {
			return nil, fmt.Errorf("another instance holds %s", path)
		}
		return nil, fmt.Errorf("cannot lock PID file: %w", err)
	}

	if err = file.Truncate(0); err == nil {
		_, err = file.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	}
	if err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return nil, fmt.Errorf("cannot write PID file: %w", err)
	}

	return func() {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		os.Remove(path)
	}, nil
}
