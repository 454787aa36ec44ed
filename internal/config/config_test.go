package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/On-Jun9/ShutterGate/pkg/types"
)

// TestDefaultValidation_MatchesStockSettings는 기본 검증 설정 값을 검증합니다.
func TestDefaultValidation_MatchesStockSettings(t *testing.T) {
	// 기본 설정은 10MB 상한, 5MB 목표, 품질 90/60, 60분 버퍼여야 한다.
	v := DefaultValidation()

	if v.MaxFileSizeBytes != 10*MiB || v.TargetFileSizeBytes != 5*MiB {
		t.Fatalf("unexpected size limits: %+v", v)
	}
	if v.InitialQuality != 90 || v.MinimumQuality != 60 || v.MaxCompressionAttempts != 5 {
		t.Fatalf("unexpected compression settings: %+v", v)
	}
	if v.TimeBufferMinutes != 60 || !v.RequireOriginalPhoto {
		t.Fatalf("unexpected buffer/original settings: %+v", v)
	}
	if len(v.AllowedSources) != 2 || v.AllowedSources[0] != types.SourcePhoneCamera {
		t.Fatalf("unexpected allowed sources: %v", v.AllowedSources)
	}
	if err := v.Validate(); err != nil {
		t.Fatalf("default validation settings must be valid: %v", err)
	}
}

// TestValidation_Validate_RejectsBadQuality는 품질 범위 검사를 검증합니다.
func TestValidation_Validate_RejectsBadQuality(t *testing.T) {
	v := DefaultValidation()
	v.MinimumQuality = 0

	err := v.Validate()
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if validationErr.Field != "validation.minimum_quality" {
		t.Fatalf("unexpected field: %s", validationErr.Field)
	}
}

// TestValidation_AllowLists는 MIME/확장자 허용 목록 검사를 검증합니다.
func TestValidation_AllowLists(t *testing.T) {
	// 대소문자와 무관하게 허용 목록과 비교해야 한다.
	v := DefaultValidation()

	if !v.AllowsMimeType("IMAGE/JPEG") {
		t.Fatal("expected image/jpeg to be allowed")
	}
	if v.AllowsMimeType("image/gif") {
		t.Fatal("expected image/gif to be rejected")
	}
	if !v.AllowsExtension("IMG_0001.HEIC") {
		t.Fatal("expected .heic to be allowed")
	}
	if v.AllowsExtension("noext") || v.AllowsExtension("doc.pdf") {
		t.Fatal("expected missing or unknown extension to be rejected")
	}
}

// TestConfigValidate_FillsDefaults는 기본값 자동 보정을 검증합니다.
func TestConfigValidate_FillsDefaults(t *testing.T) {
	// 기본값 자동 보정(jobs/log/dedup/conflict/uploader/cache)이 적용되어야 한다.
	cfg := &Config{Validation: DefaultValidation()}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	expectedJobs := runtime.NumCPU()
	if expectedJobs < 1 {
		expectedJobs = 4
	}
	if cfg.Jobs != expectedJobs {
		t.Fatalf("expected jobs=%d, got %d", expectedJobs, cfg.Jobs)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get home dir: %v", err)
	}
	if cfg.LogFile != filepath.Join(homeDir, ".shuttergate", "shuttergate.log") {
		t.Fatalf("unexpected log file: %s", cfg.LogFile)
	}
	if cfg.DedupMethod != types.DedupMethodNameSize || cfg.ConflictPolicy != types.ConflictPolicyRename {
		t.Fatalf("unexpected policy defaults: %s %s", cfg.DedupMethod, cfg.ConflictPolicy)
	}
	if cfg.UploaderLabel != "Anonymous" {
		t.Fatalf("unexpected uploader label: %s", cfg.UploaderLabel)
	}
	if cfg.CacheSize != 256 || cfg.CacheTTL != 10*time.Minute {
		t.Fatalf("unexpected cache defaults: %d %s", cfg.CacheSize, cfg.CacheTTL)
	}
}

// TestConfigValidate_NormalizesNegativeJobs는 음수 jobs 정규화를 검증합니다.
func TestConfigValidate_NormalizesNegativeJobs(t *testing.T) {
	// 음수 jobs 값은 안전한 최소값(1)으로 정규화되어야 한다.
	cfg := DefaultConfig()
	cfg.Jobs = -2

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if cfg.Jobs != 1 {
		t.Fatalf("expected jobs=1, got %d", cfg.Jobs)
	}
}

// TestConfigValidate_RejectsUnknownPolicies는 잘못된 정책 값 처리를 검증합니다.
func TestConfigValidate_RejectsUnknownPolicies(t *testing.T) {
	cases := []struct {
		name  string
		apply func(*Config)
		field string
	}{
		{"dedup", func(c *Config) { c.DedupMethod = "checksum" }, "dedup_method"},
		{"conflict", func(c *Config) { c.ConflictPolicy = "merge" }, "conflict_policy"},
		{"timezone", func(c *Config) { c.Event.Timezone = "Mars/Olympus" }, "event.timezone"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.apply(cfg)

			var validationErr *ValidationError
			if err := cfg.Validate(); !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if validationErr.Field != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, validationErr.Field)
			}
		})
	}
}

// TestLoadFromFile_ReadsYAMLIntoConfig는 YAML 로드를 검증합니다.
func TestLoadFromFile_ReadsYAMLIntoConfig(t *testing.T) {
	// YAML 파일의 명시 필드는 반영되고 나머지는 기본값을 유지해야 한다.
	yamlContent := strings.Join([]string{
		"dest: /data/accepted",
		"jobs: 8",
		"event:",
		"  name: wedding",
		"  schedule:",
		"    start_date: \"2030-05-01\"",
		"    start_time: \"10:00\"",
		"validation:",
		"  time_buffer_minutes: 30",
		"  allowed_sources: [snapchat]",
	}, "\n")

	filePath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(filePath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(filePath)
	if err != nil {
		t.Fatalf("load from file failed: %v", err)
	}
	if cfg.Dest != "/data/accepted" || cfg.Jobs != 8 || cfg.Event.Name != "wedding" {
		t.Fatalf("unexpected top-level fields: %+v", cfg)
	}
	if cfg.Event.Schedule.StartDate != "2030-05-01" || cfg.Event.Schedule.StartTime != "10:00" {
		t.Fatalf("unexpected schedule: %+v", cfg.Event.Schedule)
	}
	if cfg.Validation.TimeBufferMinutes != 30 {
		t.Fatalf("expected buffer override, got %d", cfg.Validation.TimeBufferMinutes)
	}
	if len(cfg.Validation.AllowedSources) != 1 || cfg.Validation.AllowedSources[0] != types.SourceSnapchat {
		t.Fatalf("unexpected allowed sources: %v", cfg.Validation.AllowedSources)
	}
	if cfg.Validation.InitialQuality != 90 {
		t.Fatalf("expected untouched defaults, got quality %d", cfg.Validation.InitialQuality)
	}
}

// TestLoadFromFile_ReturnsReadError는 누락 파일 처리를 검증합니다.
func TestLoadFromFile_ReturnsReadError(t *testing.T) {
	// 존재하지 않는 설정 파일은 read 에러를 반환해야 한다.
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected read error for missing config file")
	}
}

// TestLoadFromFile_ReturnsYAMLParseError는 YAML 파싱 에러 처리를 검증합니다.
func TestLoadFromFile_ReturnsYAMLParseError(t *testing.T) {
	// 잘못된 YAML 문법은 unmarshal 에러를 반환해야 한다.
	filePath := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(filePath, []byte("dest: ["), 0644); err != nil {
		t.Fatalf("failed to write broken yaml: %v", err)
	}

	if _, err := LoadFromFile(filePath); err == nil {
		t.Fatal("expected yaml parse error")
	}
}

// TestValidationError_ErrorFormat는 에러 문자열 형식을 검증합니다.
func TestValidationError_ErrorFormat(t *testing.T) {
	// ValidationError.Error()는 "field: message" 형식을 반환해야 한다.
	err := (&ValidationError{Field: "dest", Message: "is required"}).Error()
	if err != "dest: is required" {
		t.Fatalf("unexpected validation error format: %s", err)
	}
}
