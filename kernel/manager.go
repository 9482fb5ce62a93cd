// Package kernel runs the proxy core as a child process and restarts it
// when the profile it serves changes.
//
// The process is tracked through a small state file in the run directory,
// so a later invocation can find and stop a kernel started by an earlier
// one.
package kernel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yllada/wgconv/common"
	"github.com/yllada/wgconv/config"
	"github.com/yllada/wgconv/profile"
)

const (
	stateFileName = "kernel.state"
	logFileName   = "kernel.log"
)

// Status represents the current state of the kernel process.
type Status int

const (
	// StatusStopped indicates no kernel process.
	StatusStopped Status = iota
	// StatusStarting indicates the process was spawned but is still in its
	// startup grace period.
	StatusStarting
	// StatusRunning indicates a live kernel process.
	StatusRunning
	// StatusStopping indicates the process was asked to exit.
	StatusStopping
	// StatusError indicates the process exited unexpectedly.
	StatusError
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "Stopped"
	case StatusStarting:
		return "Starting..."
	case StatusRunning:
		return "Running"
	case StatusStopping:
		return "Stopping..."
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// state is persisted next to the runtime config.
type state struct {
	PID       int       `yaml:"pid"`
	ProfileID string    `yaml:"profile_id"`
	Config    string    `yaml:"config"`
	Started   time.Time `yaml:"started"`
}

// Options configures a Manager.
type Options struct {
	// Binary is the kernel executable.
	Binary string
	// Args are passed to Binary; "{config}" expands to the runtime config path.
	Args []string
	// RunDir holds runtime configs and the state file.
	RunDir string
	// StartupGrace is how long a new process must stay alive before Start
	// reports success. Zero means common.StartupGrace.
	StartupGrace time.Duration
	// StopTimeout bounds the wait after SIGTERM before SIGKILL.
	// Zero means common.StopTimeout.
	StopTimeout time.Duration
	// Detach runs the kernel in its own session with output appended to
	// kernel.log in RunDir, so it outlives the command that started it.
	Detach bool
}

// OptionsFromConfig maps the kernel settings onto Options.
func OptionsFromConfig(kc config.KernelConfig, runDir string) Options {
	return Options{
		Binary: kc.Binary,
		Args:   append([]string(nil), kc.Args...),
		RunDir: runDir,
		Detach: true,
	}
}

// Manager starts, stops and restarts the kernel process.
// It is safe for concurrent use.
type Manager struct {
	opts Options

	mu         sync.RWMutex
	cmd        *exec.Cmd
	done       chan struct{}
	status     Status
	lastError  string
	startTime  time.Time
	logHandler func(string)
}

// NewManager creates a kernel manager.
func NewManager(opts Options) *Manager {
	if opts.StartupGrace <= 0 {
		opts.StartupGrace = common.StartupGrace
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = common.StopTimeout
	}
	return &Manager{opts: opts}
}

// SetLogHandler sets a handler for kernel output lines.
func (m *Manager) SetLogHandler(handler func(string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logHandler = handler
}

// Running reports the profile served by a live kernel, if any.
func (m *Manager) Running() (string, bool) {
	st, err := m.readState()
	if err != nil || !processAlive(st.PID) {
		return "", false
	}
	return st.ProfileID, true
}

// Status returns the kernel status as seen by this process.
func (m *Manager) Status() Status {
	m.mu.RLock()
	status := m.status
	m.mu.RUnlock()

	if status == StatusStopped {
		if _, ok := m.Running(); ok {
			return StatusRunning
		}
	}
	return status
}

// LastError returns the exit error of the last process that failed.
func (m *Manager) LastError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// Uptime returns how long the current kernel has been running.
func (m *Manager) Uptime() time.Duration {
	st, err := m.readState()
	if err != nil || !processAlive(st.PID) {
		return 0
	}
	return time.Since(st.Started)
}

// Start writes the profile's mixin config to the run directory and launches
// the kernel with it.
func (m *Manager) Start(ctx context.Context, p *profile.Profile) error {
	if _, ok := m.Running(); ok {
		return common.ErrKernelAlreadyRunning
	}

	configPath, err := m.writeRuntimeConfig(p)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrKernelStart, err)
	}

	cmd := exec.Command(m.opts.Binary, m.expandArgs(configPath)...)
	var outputs []io.Reader
	if m.opts.Detach {
		logFile, err := os.OpenFile(m.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrKernelStart, err)
		}
		defer logFile.Close()
		cmd.Stdout = logFile
		cmd.Stderr = logFile
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	} else {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrKernelStart, err)
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrKernelStart, err)
		}
		outputs = append(outputs, stdout, stderr)
	}

	common.LogInfo("Kernel: starting %s for profile %s", m.opts.Binary, p.Name)
	if err := cmd.Start(); err != nil {
		m.setError(err)
		return fmt.Errorf("%w: %v", common.ErrKernelStart, err)
	}
	common.LogDebug("Kernel: process started with PID %d", cmd.Process.Pid)

	done := make(chan struct{})
	m.mu.Lock()
	m.cmd = cmd
	m.done = done
	m.status = StatusStarting
	m.lastError = ""
	m.startTime = time.Now()
	m.mu.Unlock()

	if err := m.writeState(state{
		PID:       cmd.Process.Pid,
		ProfileID: p.ID,
		Config:    configPath,
		Started:   time.Now(),
	}); err != nil {
		common.LogWarn("Kernel: could not write state file: %v", err)
	}

	var pipes sync.WaitGroup
	for _, output := range outputs {
		pipes.Add(1)
		go m.monitorOutput(&pipes, output)
	}
	go m.wait(cmd, &pipes, done)

	select {
	case <-done:
		return fmt.Errorf("%w: exited during startup: %s", common.ErrKernelStart, m.LastError())
	case <-ctx.Done():
		_ = m.Stop(context.Background())
		return ctx.Err()
	case <-time.After(m.opts.StartupGrace):
	}

	m.mu.Lock()
	if m.status == StatusStarting {
		m.status = StatusRunning
	}
	m.mu.Unlock()

	common.LogInfo("Kernel: running profile %s", p.Name)
	return nil
}

// wait reaps the process and records how it ended.
func (m *Manager) wait(cmd *exec.Cmd, pipes *sync.WaitGroup, done chan struct{}) {
	pipes.Wait()
	err := cmd.Wait()

	m.mu.Lock()
	switch {
	case m.status == StatusStopping:
		m.status = StatusStopped
	case err != nil:
		common.LogError("Kernel: terminated with error: %v", err)
		m.status = StatusError
		m.lastError = err.Error()
	default:
		common.LogWarn("Kernel: exited")
		m.status = StatusStopped
		m.lastError = "exited with status 0"
	}
	if m.cmd == cmd {
		m.cmd = nil
	}
	m.mu.Unlock()

	if st, err := m.readState(); err == nil && st.PID == cmd.Process.Pid {
		m.removeState()
	}
	close(done)
}

// Stop terminates the running kernel, whether this process started it or
// an earlier invocation did.
func (m *Manager) Stop(ctx context.Context) error {
	st, err := m.readState()
	if err != nil || !processAlive(st.PID) {
		m.removeState()
		return common.ErrKernelNotRunning
	}

	m.mu.Lock()
	m.status = StatusStopping
	done := m.done
	owned := m.cmd != nil && m.cmd.Process.Pid == st.PID
	m.mu.Unlock()

	process, err := os.FindProcess(st.PID)
	if err != nil {
		return fmt.Errorf("finding kernel process: %w", err)
	}

	common.LogInfo("Kernel: stopping PID %d", st.PID)
	if err := process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("signalling kernel: %w", err)
	}

	exited := func() bool { return !processAlive(st.PID) }
	if owned {
		exited = func() bool {
			select {
			case <-done:
				return true
			default:
				return false
			}
		}
	}

	if !waitFor(ctx, exited, m.opts.StopTimeout) {
		common.LogWarn("Kernel: PID %d ignored SIGTERM, killing", st.PID)
		_ = process.Kill()
		if owned {
			<-done
		}
	}

	m.mu.Lock()
	m.status = StatusStopped
	m.mu.Unlock()
	m.removeState()
	return nil
}

// Restart stops the kernel if it runs, waits delay, and starts it with p.
func (m *Manager) Restart(ctx context.Context, p *profile.Profile, delay time.Duration) error {
	if err := m.Stop(ctx); err != nil && !errors.Is(err, common.ErrKernelNotRunning) {
		return fmt.Errorf("stopping kernel: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
	}

	return m.Start(ctx, p)
}

// monitorOutput forwards kernel output to the logger.
func (m *Manager) monitorOutput(pipes *sync.WaitGroup, pipe io.Reader) {
	defer pipes.Done()

	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()
		common.LogDebug("Kernel: %s", line)

		m.mu.RLock()
		handler := m.logHandler
		m.mu.RUnlock()
		if handler != nil {
			handler(line)
		}
	}
}

func (m *Manager) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = StatusError
	m.lastError = err.Error()
}

func (m *Manager) expandArgs(configPath string) []string {
	args := make([]string, len(m.opts.Args))
	for i, arg := range m.opts.Args {
		if arg == config.ConfigPlaceholder {
			arg = configPath
		}
		args[i] = arg
	}
	return args
}

// LogPath returns the output log of a detached kernel.
func (m *Manager) LogPath() string {
	return filepath.Join(m.opts.RunDir, logFileName)
}

// RuntimeConfigPath returns where the config for profileID is written.
func (m *Manager) RuntimeConfigPath(profileID string) string {
	return filepath.Join(m.opts.RunDir, profileID+".json")
}

func (m *Manager) writeRuntimeConfig(p *profile.Profile) (string, error) {
	if err := common.EnsureDir(m.opts.RunDir); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}
	path := m.RuntimeConfigPath(p.ID)
	if err := os.WriteFile(path, []byte(p.Mixin.Config), 0600); err != nil {
		return "", fmt.Errorf("writing runtime config: %w", err)
	}
	return path, nil
}

func (m *Manager) statePath() string {
	return filepath.Join(m.opts.RunDir, stateFileName)
}

func (m *Manager) readState() (state, error) {
	var st state
	data, err := os.ReadFile(m.statePath())
	if err != nil {
		return st, err
	}
	if err := yaml.Unmarshal(data, &st); err != nil {
		return st, err
	}
	if st.PID <= 0 {
		return st, errors.New("state file has no pid")
	}
	return st, nil
}

func (m *Manager) writeState(st state) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return err
	}
	return os.WriteFile(m.statePath(), data, 0600)
}

func (m *Manager) removeState() {
	if err := os.Remove(m.statePath()); err != nil && !os.IsNotExist(err) {
		common.LogWarn("Kernel: could not remove state file: %v", err)
	}
}

// processAlive probes pid with signal 0.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// waitFor polls cond until it holds, ctx ends, or timeout elapses.
func waitFor(ctx context.Context, cond func() bool, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if cond() {
			return true
		}
		select {
		case <-ctx.Done():
			return cond()
		case <-deadline.C:
			return cond()
		case <-ticker.C:
		}
	}
}
