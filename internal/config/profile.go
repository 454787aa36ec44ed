package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

var profileNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ErrProfileNotFound is returned when a named profile has no file on disk.
var ErrProfileNotFound = errors.New("profile not found")

// Profile is a named, reusable set of validation settings.
type Profile struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Validation  Validation `json:"validation"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProfileManager stores validation profiles as JSON files.
type ProfileManager struct {
	profilesDir string
}

// NewProfileManager creates a profile manager under ~/.shuttergate/profiles.
func NewProfileManager() (*ProfileManager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewProfileManagerAt(filepath.Join(homeDir, ".shuttergate", "profiles"))
}

// NewProfileManagerAt creates a profile manager rooted at dir.
func NewProfileManagerAt(dir string) (*ProfileManager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profiles directory: %w", err)
	}
	return &ProfileManager{profilesDir: dir}, nil
}

// ProfileFromConfig captures the validation settings of cfg as a profile.
func ProfileFromConfig(cfg *Config, name, description string) *Profile {
	return &Profile{
		Name:        name,
		Description: description,
		Validation:  cfg.Validation,
		CreatedAt:   time.Now(),
	}
}

// Apply copies the profile's validation settings into cfg.
func (p *Profile) Apply(cfg *Config) {
	cfg.Validation = p.Validation
}

func (pm *ProfileManager) SaveProfile(profile *Profile) error {
	if err := checkProfileName(profile.Name); err != nil {
		return err
	}
	if err := profile.Validation.Validate(); err != nil {
		return fmt.Errorf("invalid profile %q: %w", profile.Name, err)
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := os.WriteFile(pm.path(profile.Name), data, 0644); err != nil {
		return fmt.Errorf("failed to write profile file: %w", err)
	}
	return nil
}

func (pm *ProfileManager) LoadProfile(name string) (*Profile, error) {
	if err := checkProfileName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(pm.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	profile := Profile{Validation: DefaultValidation()}
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &profile, nil
}

func (pm *ProfileManager) DeleteProfile(name string) error {
	if err := checkProfileName(name); err != nil {
		return err
	}
	err := os.Remove(pm.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to delete profile file: %w", err)
	}
	return nil
}

// ListProfiles returns every readable profile sorted by name.
func (pm *ProfileManager) ListProfiles() ([]Profile, error) {
	entries, err := os.ReadDir(pm.profilesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles directory: %w", err)
	}

	profiles := []Profile{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		profile, err := pm.LoadProfile(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue // Skip invalid profiles
		}
		profiles = append(profiles, *profile)
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}

func (pm *ProfileManager) path(name string) string {
	return filepath.Join(pm.profilesDir, name+".json")
}

func checkProfileName(name string) error {
	if name == "" {
		return &ValidationError{Field: "name", Message: "profile name cannot be empty"}
	}
	if !profileNamePattern.MatchString(name) {
		return &ValidationError{Field: "name", Message: "profile name may only contain letters, digits, '-' and '_'"}
	}
	return nil
}
