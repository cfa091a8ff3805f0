package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrEmptyPIDPath is returned when no pid file is configured
var ErrEmptyPIDPath = errors.New("pid file path is empty")

// PIDFile records the process id of a running collabd
type PIDFile struct {
	path string
}

// NewPIDFile returns a PIDFile at path
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Path returns the pid file location
func (p *PIDFile) Path() string {
	return p.path
}

// Write stores the current process id, creating the parent directory when missing
func (p *PIDFile) Write() error {
	if p.path == "" {
		return ErrEmptyPIDPath
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

// Remove deletes the pid file. A missing file is not an error.
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Read parses the stored process id
func (p *PIDFile) Read() (int, error) {
	if p.path == "" {
		return 0, ErrEmptyPIDPath
	}
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return 0, fmt.Errorf("failed to read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("invalid pid in %s: %w", p.path, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid pid value: %d", pid)
	}
	return pid, nil
}

// Signal sends sig to the process recorded in the pid file
func (p *PIDFile) Signal(sig unix.Signal) error {
	pid, err := p.Read()
	if err != nil {
		return err
	}
	if err := unix.Kill(pid, sig); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}
	return nil
}
