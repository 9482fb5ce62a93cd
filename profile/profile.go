// Package profile stores named proxy-core profiles whose mixin section
// receives converted endpoint documents.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yllada/wgconv/common"
)

// Mixin priorities understood by the proxy-core host.
const (
	PriorityMixin = "mixin"
	PriorityGUI   = "gui"

	FormatJSON = "json"
)

// Mixin is the profile fragment merged over the generated core config.
type Mixin struct {
	// Priority decides which side wins on conflicts: "mixin" or "gui".
	Priority string `json:"priority" yaml:"priority"`
	// Format of Config; converted endpoints are always "json".
	Format string `json:"format" yaml:"format"`
	// Config is the raw mixin document.
	Config string `json:"config" yaml:"config"`
}

// Profile is one named proxy-core configuration.
type Profile struct {
	// ID is a unique identifier for the profile (UUID format).
	ID string `json:"id" yaml:"id"`
	// Name is a human-readable name for the profile.
	Name string `json:"name" yaml:"name"`
	// Mixin holds the converted endpoints, if any.
	Mixin Mixin `json:"mixin" yaml:"mixin"`
	// Created is the timestamp when the profile was created.
	Created time.Time `json:"created" yaml:"created"`
	// Updated is the timestamp of the last change.
	Updated time.Time `json:"updated,omitempty" yaml:"updated,omitempty"`
}

// Store is implemented by every profile backend.
type Store interface {
	// List returns all profiles ordered by creation time.
	List() ([]*Profile, error)
	// Get retrieves a profile by ID.
	Get(id string) (*Profile, error)
	// Find retrieves a profile by name, ID, or ID prefix.
	Find(nameOrID string) (*Profile, error)
	// Add stores a new profile, assigning an ID when empty.
	Add(p *Profile) error
	// Update replaces an existing profile.
	Update(p *Profile) error
	// Remove deletes a profile by ID.
	Remove(id string) error
	// Close releases backend resources.
	Close() error
}

// New returns a profile with a fresh ID and default mixin settings.
func New(name string) *Profile {
	return &Profile{
		ID:   uuid.NewString(),
		Name: strings.TrimSpace(name),
		Mixin: Mixin{
			Priority: PriorityMixin,
			Format:   FormatJSON,
		},
		Created: time.Now(),
	}
}

// Validate checks if the profile has all required fields.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: profile name is required", common.ErrInvalidProfile)
	}
	if p.ID != "" {
		if _, err := uuid.Parse(p.ID); err != nil {
			return fmt.Errorf("%w: malformed id %q", common.ErrInvalidProfile, p.ID)
		}
	}
	return nil
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	c := *p
	return &c
}

// WithMixinConfig returns a copy of p whose mixin config is text.
// Every other field, including the mixin priority, is preserved.
func (p *Profile) WithMixinConfig(text string) *Profile {
	c := p.Clone()
	c.Mixin.Config = text
	if c.Mixin.Format == "" {
		c.Mixin.Format = FormatJSON
	}
	c.Updated = time.Now()
	return c
}

// ToJSON converts the profile to a JSON string.
// Useful for debugging and logging.
func (p *Profile) ToJSON() string {
	data, _ := json.MarshalIndent(p, "", "  ")
	return string(data)
}

// prepareNew fills defaults for a profile about to be added.
func prepareNew(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Created.IsZero() {
		p.Created = time.Now()
	}
	if p.Mixin.Priority == "" {
		p.Mixin.Priority = PriorityMixin
	}
	if p.Mixin.Format == "" {
		p.Mixin.Format = FormatJSON
	}
	return nil
}

// findIn resolves nameOrID against profiles. An exact match wins over an
// ID prefix; an ambiguous prefix is not found.
func findIn(profiles []*Profile, nameOrID string) (*Profile, error) {
	query := strings.ToLower(strings.TrimSpace(nameOrID))
	var prefixed []*Profile

	for _, p := range profiles {
		if strings.ToLower(p.Name) == query || strings.ToLower(p.ID) == query {
			return p, nil
		}
		if common.MatchesNameOrID(query, p.Name, p.ID) {
			prefixed = append(prefixed, p)
		}
	}

	if len(prefixed) == 1 {
		return prefixed[0], nil
	}
	return nil, common.ErrProfileNotFound
}

// Open returns the store selected by kind, rooted at the default
// configuration and data directories.
func Open(kind string) (Store, error) {
	switch kind {
	case common.StoreSQLite:
		dataDir, err := common.GetDataDir()
		if err != nil {
			return nil, err
		}
		return OpenSQL(filepath.Join(dataDir, common.ProfilesDBName))
	case common.StoreYAML, "":
		configDir, err := common.GetConfigDir()
		if err != nil {
			return nil, err
		}
		return NewManager(filepath.Join(configDir, common.ProfilesFileName))
	default:
		return nil, errors.New("unknown profile store: " + kind)
	}
}
