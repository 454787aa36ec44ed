package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/On-Jun9/ShutterGate/pkg/types"
	"gopkg.in/yaml.v3"
)

const (
	// MiB is the unit used by the size settings' defaults.
	MiB = 1024 * 1024

	// OctetStream is the generic MIME type that falls back to extension checks.
	OctetStream = "application/octet-stream"
)

// Validation holds the settings for one validation run. It is passed by value and
// never modified by the pipeline.
type Validation struct {
	MaxFileSizeBytes  int64   `yaml:"max_file_size_bytes" json:"max_file_size_bytes"`
	MinImageWidth     int     `yaml:"min_image_width" json:"min_image_width"`
	MinImageHeight    int     `yaml:"min_image_height" json:"min_image_height"`
	TimeBufferMinutes int     `yaml:"time_buffer_minutes" json:"time_buffer_minutes"`
	MinQualityScore   float64 `yaml:"min_quality_score" json:"min_quality_score"`

	AllowedMimeTypes  []string `yaml:"allowed_mime_types" json:"allowed_mime_types"`
	AllowedExtensions []string `yaml:"allowed_extensions" json:"allowed_extensions"`

	RequireOriginalPhoto bool `yaml:"require_original_photo" json:"require_original_photo"`

	TargetFileSizeBytes    int64 `yaml:"target_file_size_bytes" json:"target_file_size_bytes"`
	MaxCompressionAttempts int   `yaml:"max_compression_attempts" json:"max_compression_attempts"`
	InitialQuality         int   `yaml:"initial_quality" json:"initial_quality"`
	MinimumQuality         int   `yaml:"minimum_quality" json:"minimum_quality"`

	AllowedSources            []types.SourceKind `yaml:"allowed_sources" json:"allowed_sources"`
	KnownCameraSoftwareTokens []string           `yaml:"known_camera_software_tokens" json:"known_camera_software_tokens"`
}

// Event describes the event whose uploads are being validated.
type Event struct {
	Name     string              `yaml:"name" json:"name"`
	Schedule types.EventSchedule `yaml:"schedule" json:"schedule"`
	// Timezone is an IANA zone name used for schedule strings and zone-less EXIF dates.
	Timezone string `yaml:"timezone" json:"timezone"`
}

// Web holds the HTTP server settings.
type Web struct {
	Addr           string  `yaml:"addr" json:"addr"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst" json:"rate_limit_burst"`
	MaxUploadBytes int64   `yaml:"max_upload_bytes" json:"max_upload_bytes"`
}

type Config struct {
	Validation Validation `yaml:"validation" json:"validation"`
	Event      Event      `yaml:"event" json:"event"`
	Web        Web        `yaml:"web" json:"web"`

	Jobs           int                  `yaml:"jobs" json:"jobs"`
	Dest           string               `yaml:"dest" json:"dest"`
	DedupMethod    types.DedupMethod    `yaml:"dedup_method" json:"dedup_method"`
	ConflictPolicy types.ConflictPolicy `yaml:"conflict_policy" json:"conflict_policy"`
	HashVerify     bool                 `yaml:"hash_verify" json:"hash_verify"`
	DryRun         bool                 `yaml:"dry_run" json:"dry_run"`
	UploaderLabel  string               `yaml:"uploader_label" json:"uploader_label"`

	CacheSize int           `yaml:"cache_size" json:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl" json:"cache_ttl"`

	LogFile  string `yaml:"log_file" json:"log_file"`
	LogJSON  bool   `yaml:"log_json" json:"log_json"`
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultValidation returns the stock validation settings.
func DefaultValidation() Validation {
	return Validation{
		MaxFileSizeBytes:  10 * MiB,
		MinImageWidth:     800,
		MinImageHeight:    600,
		TimeBufferMinutes: 60,
		MinQualityScore:   0.5,
		AllowedMimeTypes: []string{
			"image/jpeg", "image/png", "image/jpg", "image/heic", "image/heif",
		},
		AllowedExtensions:      []string{".jpeg", ".jpg", ".png", ".heic", ".heif"},
		RequireOriginalPhoto:   true,
		TargetFileSizeBytes:    5 * MiB,
		MaxCompressionAttempts: 5,
		InitialQuality:         90,
		MinimumQuality:         60,
		AllowedSources:         []types.SourceKind{types.SourcePhoneCamera, types.SourceSnapchat},
		KnownCameraSoftwareTokens: []string{
			"snapchat",
			"camera",
			"iphone",
			"samsung camera",
			"google camera",
			"huawei camera",
			"oneplus camera",
			"xiaomi camera",
			"oppo camera",
			"vivo camera",
		},
	}
}

func DefaultConfig() *Config {
	jobs := runtime.NumCPU()
	if jobs < 1 {
		jobs = 4
	}

	stateDir := stateDir()

	return &Config{
		Validation: DefaultValidation(),
		Event: Event{
			Timezone: "Local",
		},
		Web: Web{
			Addr:           "localhost:8080",
			RateLimitRPS:   5,
			RateLimitBurst: 10,
			MaxUploadBytes: 100 * MiB,
		},
		Jobs:           jobs,
		DedupMethod:    types.DedupMethodNameSize,
		ConflictPolicy: types.ConflictPolicyRename,
		UploaderLabel:  "Anonymous",
		CacheSize:      256,
		CacheTTL:       10 * time.Minute,
		LogFile:        filepath.Join(stateDir, "shuttergate.log"),
		LogLevel:       "info",
	}
}

func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location resolves the configured event timezone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Event.Timezone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Event.Timezone)
	}
}

func (c *Config) Validate() error {
	if err := c.Validation.Validate(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return &ValidationError{Field: "event.timezone", Message: err.Error()}
	}
	switch c.DedupMethod {
	case "":
		c.DedupMethod = types.DedupMethodNameSize
	case types.DedupMethodNameSize, types.DedupMethodHash:
	default:
		return &ValidationError{Field: "dedup_method", Message: "must be name-size or hash"}
	}
	switch c.ConflictPolicy {
	case "":
		c.ConflictPolicy = types.ConflictPolicyRename
	case types.ConflictPolicySkip, types.ConflictPolicyRename, types.ConflictPolicyOverwrite:
	default:
		return &ValidationError{Field: "conflict_policy", Message: "must be skip, rename or overwrite"}
	}

	if c.Jobs == 0 {
		c.Jobs = runtime.NumCPU()
		if c.Jobs < 1 {
			c.Jobs = 4
		}
	}
	if c.Jobs < 0 {
		c.Jobs = 1
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(stateDir(), "shuttergate.log")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.UploaderLabel == "" {
		c.UploaderLabel = "Anonymous"
	}
	if c.CacheSize < 1 {
		c.CacheSize = 256
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 10 * time.Minute
	}
	if c.Web.Addr == "" {
		c.Web.Addr = "localhost:8080"
	}
	if c.Web.RateLimitRPS <= 0 {
		c.Web.RateLimitRPS = 5
	}
	if c.Web.RateLimitBurst < 1 {
		c.Web.RateLimitBurst = 10
	}
	if c.Web.MaxUploadBytes <= 0 {
		c.Web.MaxUploadBytes = 100 * MiB
	}

	return nil
}

// Validate checks the validation settings for values the pipeline cannot work with.
func (v Validation) Validate() error {
	if v.MaxFileSizeBytes <= 0 {
		return &ValidationError{Field: "validation.max_file_size_bytes", Message: "must be positive"}
	}
	if v.TargetFileSizeBytes <= 0 {
		return &ValidationError{Field: "validation.target_file_size_bytes", Message: "must be positive"}
	}
	if v.TimeBufferMinutes < 0 {
		return &ValidationError{Field: "validation.time_buffer_minutes", Message: "must not be negative"}
	}
	if v.InitialQuality < 1 || v.InitialQuality > 100 {
		return &ValidationError{Field: "validation.initial_quality", Message: "must be between 1 and 100"}
	}
	if v.MinimumQuality < 1 || v.MinimumQuality > 100 {
		return &ValidationError{Field: "validation.minimum_quality", Message: "must be between 1 and 100"}
	}
	if v.MaxCompressionAttempts < 1 {
		return &ValidationError{Field: "validation.max_compression_attempts", Message: "must be at least 1"}
	}
	if len(v.AllowedMimeTypes) == 0 {
		return &ValidationError{Field: "validation.allowed_mime_types", Message: "at least one MIME type is required"}
	}
	return nil
}

// AllowsMimeType reports whether mimeType is in the allow-list.
func (v Validation) AllowsMimeType(mimeType string) bool {
	for _, m := range v.AllowedMimeTypes {
		if strings.EqualFold(m, mimeType) {
			return true
		}
	}
	return false
}

// AllowsExtension reports whether the extension of name is in the allow-list.
func (v Validation) AllowsExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, e := range v.AllowedExtensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func stateDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".shuttergate")
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
