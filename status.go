package hotspot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	statusFileName = "status.json"
	pidFileName    = "hotspotd.pid"
)

// StatusRecord is the machine-readable session status published to disk.
// External tooling polls the file; there is no IPC socket.
type StatusRecord struct {
	State          string    `json:"state"`
	SSID           string    `json:"ssid,omitempty"`
	Interface      string    `json:"interface,omitempty"`
	InternetSource string    `json:"internet_source,omitempty"`
	VPNPinned      bool      `json:"vpn_pinned,omitempty"`
	Clients        int       `json:"clients"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	Deadline       time.Time `json:"deadline,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
	PID            int       `json:"pid"`
	Kernel         string    `json:"kernel,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Publisher writes session status and the pid file under one runtime
// directory. All writes are atomic (write-then-rename) so a poller never
// observes a half-written record.
type Publisher struct {
	dir string
}

// DefaultRuntimeDir returns the preferred runtime directory, falling back
// to the system temp dir when /run is not writable (non-root invocations
// of the read-only subcommands).
func DefaultRuntimeDir() string {
	dir := "/run/hotspotd"
	if err := os.MkdirAll(dir, 0o755); err == nil {
		return dir
	}
	return filepath.Join(os.TempDir(), "hotspotd")
}

// NewPublisher creates a Publisher rooted at dir, creating it if needed.
func NewPublisher(dir string) (*Publisher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create runtime dir: %w", err)
	}
	return &Publisher{dir: dir}, nil
}

// Dir returns the runtime directory.
func (p *Publisher) Dir() string { return p.dir }

// Publish writes the status record, stamping UpdatedAt and PID.
func (p *Publisher) Publish(rec StatusRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	if rec.PID == 0 {
		rec.PID = os.Getpid()
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	return p.atomicWrite(statusFileName, append(data, '\n'), 0o644)
}

// ReadStatus loads the last published record, if any.
func (p *Publisher) ReadStatus() (*StatusRecord, error) {
	data, err := os.ReadFile(filepath.Join(p.dir, statusFileName))
	if err != nil {
		return nil, err
	}
	var rec StatusRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &rec, nil
}

// Clear removes the status record. Missing files are fine.
func (p *Publisher) Clear() error {
	err := os.Remove(filepath.Join(p.dir, statusFileName))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// WritePID records the current process id for --stop signaling.
func (p *Publisher) WritePID() error {
	pid := strconv.Itoa(os.Getpid())
	return p.atomicWrite(pidFileName, []byte(pid+"\n"), 0o644)
}

// ReadPID returns the recorded process id, or an error when no daemon has
// written one.
func (p *Publisher) ReadPID() (int, error) {
	data, err := os.ReadFile(filepath.Join(p.dir, pidFileName))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed pid file: %w", err)
	}
	return pid, nil
}

// RemovePID deletes the pid file. Missing files are fine.
func (p *Publisher) RemovePID() error {
	err := os.Remove(filepath.Join(p.dir, pidFileName))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (p *Publisher) atomicWrite(name string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(p.dir, name+".tmp*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return os.Rename(tmp.Name(), filepath.Join(p.dir, name))
}
