package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yllada/wgconv/common"
)

// Manager keeps profiles in a single YAML file.
type Manager struct {
	mu         sync.RWMutex
	profiles   []*Profile
	configFile string
}

// NewManager creates a Manager backed by configFile and loads existing
// profiles. A missing file means no profiles yet.
func NewManager(configFile string) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(configFile), 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	pm := &Manager{
		profiles:   make([]*Profile, 0),
		configFile: configFile,
	}

	if err := pm.Load(); err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	return pm, nil
}

// Load loads profiles from the configuration file.
// Returns nil if the file doesn't exist (no profiles yet).
func (pm *Manager) Load() error {
	data, err := os.ReadFile(pm.configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read profiles file: %w", err)
	}

	var profiles []*Profile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return fmt.Errorf("failed to parse profiles file: %w", err)
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.profiles = profiles
	return nil
}

// saveLocked persists profiles to the configuration file.
func (pm *Manager) saveLocked() error {
	data, err := yaml.Marshal(&pm.profiles)
	if err != nil {
		return fmt.Errorf("failed to serialize profiles: %w", err)
	}

	// Replaced atomically via rename.
	tmp := pm.configFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write profiles file: %w", err)
	}
	if err := os.Rename(tmp, pm.configFile); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write profiles file: %w", err)
	}

	return nil
}

// Add adds a new profile. Names must be unique, ignoring case.
func (pm *Manager) Add(profile *Profile) error {
	if err := prepareNew(profile); err != nil {
		return err
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	for _, p := range pm.profiles {
		if strings.EqualFold(p.Name, profile.Name) {
			return fmt.Errorf("%w: %s", common.ErrDuplicateName, profile.Name)
		}
		if p.ID == profile.ID {
			return fmt.Errorf("%w: duplicate id %s", common.ErrInvalidProfile, profile.ID)
		}
	}

	pm.profiles = append(pm.profiles, profile.Clone())
	return pm.saveLocked()
}

// Remove removes a profile by ID.
func (pm *Manager) Remove(id string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	for i, profile := range pm.profiles {
		if profile.ID == id {
			pm.profiles = append(pm.profiles[:i], pm.profiles[i+1:]...)
			return pm.saveLocked()
		}
	}
	return common.ErrProfileNotFound
}

// Get retrieves a copy of the profile with the given ID.
func (pm *Manager) Get(id string) (*Profile, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	for _, profile := range pm.profiles {
		if profile.ID == id {
			return profile.Clone(), nil
		}
	}
	return nil, common.ErrProfileNotFound
}

// Find retrieves a profile by name, ID or unambiguous ID prefix.
func (pm *Manager) Find(nameOrID string) (*Profile, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	p, err := findIn(pm.profiles, nameOrID)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// List returns copies of all profiles.
func (pm *Manager) List() ([]*Profile, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make([]*Profile, 0, len(pm.profiles))
	for _, p := range pm.profiles {
		out = append(out, p.Clone())
	}
	return out, nil
}

// Update updates an existing profile.
func (pm *Manager) Update(profile *Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	index := -1
	for i, p := range pm.profiles {
		if p.ID == profile.ID {
			index = i
		} else if strings.EqualFold(p.Name, profile.Name) {
			return fmt.Errorf("%w: %s", common.ErrDuplicateName, profile.Name)
		}
	}
	if index < 0 {
		return common.ErrProfileNotFound
	}

	updated := profile.Clone()
	if updated.Updated.IsZero() {
		updated.Updated = time.Now()
	}
	pm.profiles[index] = updated
	return pm.saveLocked()
}

// Close is a no-op; every change is already on disk.
func (pm *Manager) Close() error {
	return nil
}
