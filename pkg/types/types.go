// Package types defines core data structures used across ShutterGate modules.
package types

import (
	"time"
)

// RawFile is a submitted file as received from the caller.
type RawFile struct {
	// Name is the client-side filename.
	Name string
	// DeclaredMimeType is the MIME type reported by the client.
	DeclaredMimeType string
	// DeclaredSizeBytes is the size reported by the client.
	DeclaredSizeBytes int64
	// Bytes is the file content. The pipeline never writes to it.
	Bytes []byte
	// LastModified is the client-reported modification time. Nil if unknown.
	LastModified *time.Time
}

// SourceKind is a resolved capture source.
type SourceKind string

const (
	SourcePhoneCamera SourceKind = "phone_camera"
	SourceSnapchat    SourceKind = "snapchat"
)

// CreationSource records where a file's creation time (or capture source) came from.
type CreationSource string

const (
	CreationSourceEXIF         CreationSource = "EXIF"
	CreationSourceLastModified CreationSource = "lastModifiedDate"
	CreationSourceCurrent      CreationSource = "current"
)

// Dimensions is an image size in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// MediaKind is the coarse media category of an accepted file.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// FileMetadata is the derived record for one submitted file.
// It is built once per file and must not be modified after the pipeline finalizes it.
type FileMetadata struct {
	OriginalName       string      `json:"original_name"`
	Mimetype           string      `json:"mimetype"`
	SizeBytes          int64       `json:"size_bytes"`
	OriginalSizeBytes  int64       `json:"original_size_bytes"`
	WasCompressed      bool        `json:"was_compressed"`
	CompressionRatio   float64     `json:"compression_ratio"`
	CompressionQuality int         `json:"compression_quality,omitempty"`
	Dimensions         *Dimensions `json:"dimensions,omitempty"`

	// PossibleCreationSources lists, in order, every source and fallback tier used.
	PossibleCreationSources []CreationSource `json:"possible_creation_sources"`
	CreatedAt               *time.Time       `json:"created_at,omitempty"`

	CameraMake        string            `json:"camera_make,omitempty"`
	CameraModel       string            `json:"camera_model,omitempty"`
	ISO               string            `json:"iso,omitempty"`
	SourceApplication string            `json:"source_application,omitempty"`
	QualityScore      *float64          `json:"quality_score,omitempty"`
	IsOriginalPhoto   bool              `json:"is_original_photo"`
	SHA256            string            `json:"sha256,omitempty"`
	Provenance        *ProvenanceResult `json:"provenance,omitempty"`

	ValidationErrors   []string `json:"validation_errors"`
	ValidationWarnings []string `json:"validation_warnings"`
	// ErrorKinds holds the category of each entry in ValidationErrors, index-aligned.
	ErrorKinds []ErrorKind `json:"error_kinds,omitempty"`
}

// SizeMB returns SizeBytes in mebibytes.
func (m *FileMetadata) SizeMB() float64 {
	return float64(m.SizeBytes) / (1024 * 1024)
}

// CreationSource returns the first recorded creation source, or "" if none.
func (m *FileMetadata) CreationSource() CreationSource {
	if len(m.PossibleCreationSources) == 0 {
		return ""
	}
	return m.PossibleCreationSources[0]
}

// ImageSource is the provenance classification of a file.
type ImageSource string

const (
	ImageSourceScreenshot  ImageSource = "Screenshot"
	ImageSourceProcessed   ImageSource = "Processed/Edited Image"
	ImageSourceTransferred ImageSource = "Transferred File"
	ImageSourceOriginal    ImageSource = "Original Camera Photo"
	ImageSourceUnknown     ImageSource = "Unknown"
)

// Confidence is a coarse strength label attached to a classification.
type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

// ExifCompleteness summarizes how much camera metadata a file carries.
type ExifCompleteness struct {
	HasRichCameraData     bool   `json:"has_rich_camera_data"`
	IsMissingCriticalData bool   `json:"is_missing_critical_data"`
	HasOnlyBasicData      bool   `json:"has_only_basic_data"`
	HasGPSData            bool   `json:"has_gps_data"`
	DataRichness          string `json:"data_richness"`
	TotalFields           int    `json:"total_fields"`
}

// ProvenanceResult is the outcome of filename/EXIF provenance classification.
type ProvenanceResult struct {
	ImageSource          ImageSource      `json:"image_source"`
	Confidence           Confidence       `json:"confidence"`
	LikelyTransferred    bool             `json:"likely_transferred"`
	LikelyProcessed      bool             `json:"likely_processed"`
	TransferIndicators   []string         `json:"transfer_indicators"`
	ProcessingIndicators []string         `json:"processing_indicators"`
	ExifCompleteness     ExifCompleteness `json:"exif_completeness"`
	FileAgeDays          int              `json:"file_age_days"`
}

// OffsetDirection tells on which side of the window a file was created.
type OffsetDirection string

const (
	OffsetBefore OffsetDirection = "before"
	OffsetAfter  OffsetDirection = "after"
)

// TimeOffset is the distance from the nearer window boundary.
type TimeOffset struct {
	Days      int             `json:"days"`
	Hours     int             `json:"hours"`
	Minutes   int             `json:"minutes"`
	Direction OffsetDirection `json:"direction"`
}

// TimeValidationResult is the outcome of checking a creation time against an event window.
type TimeValidationResult struct {
	IsValid             bool           `json:"is_valid"`
	CreatedAt           time.Time      `json:"created_at"`
	BufferedWindowStart time.Time      `json:"buffered_window_start"`
	BufferedWindowEnd   time.Time      `json:"buffered_window_end"`
	Offset              *TimeOffset    `json:"offset,omitempty"`
	CreationSource      CreationSource `json:"creation_source,omitempty"`
	Message             string         `json:"message"`
}

// CompressionResult is what the compressor produced.
type CompressionResult struct {
	Buffer          []byte
	FinalQuality    int
	FinalDimensions Dimensions
	FinalSizeBytes  int64
	Attempts        int
	Format          string
}

// EventWindow is an event's scheduled start and end.
type EventWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// EventSchedule is an event schedule as entered at event-creation time.
// Dates are YYYY-MM-DD and times are HH:mm.
type EventSchedule struct {
	StartDate string `yaml:"start_date" json:"start_date"`
	StartTime string `yaml:"start_time" json:"start_time"`
	EndDate   string `yaml:"end_date" json:"end_date"`
	EndTime   string `yaml:"end_time" json:"end_time"`
}

// ScheduleValidation is the outcome of validating an EventSchedule.
type ScheduleValidation struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// AcceptedFile is a file that passed validation, ready for the storage collaborator.
type AcceptedFile struct {
	OriginalName   string         `json:"originalname"`
	Mimetype       string         `json:"mimetype"`
	SizeBytes      int64          `json:"size_bytes"`
	SizeMB         float64        `json:"size"`
	Dimensions     *Dimensions    `json:"dimensions"`
	MediaKind      MediaKind      `json:"type"`
	UploaderLabel  string         `json:"name"`
	CreatedAt      time.Time      `json:"createdAt"`
	CreationSource CreationSource `json:"creationSource"`
	CameraMake     string         `json:"cameraMake,omitempty"`
	CameraModel    string         `json:"cameraModel,omitempty"`
	Warnings       []string       `json:"warnings"`
	Metadata       *FileMetadata  `json:"-"`
	// Data is the final (possibly compressed) content.
	Data []byte `json:"-"`
}

// RejectedFile is a file that failed validation.
type RejectedFile struct {
	Name   string   `json:"name"`
	Reason string   `json:"reason"`
	Errors []string `json:"errors"`
}

// RunSummary contains statistics for a completed batch.
type RunSummary struct {
	TotalFiles int           `json:"total_files"`
	Accepted   int           `json:"accepted"`
	Rejected   int           `json:"rejected"`
	Compressed int           `json:"compressed"`
	BytesIn    int64         `json:"bytes_in"`
	BytesOut   int64         `json:"bytes_out"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`
}

// BatchResult is the outcome of validating one batch.
type BatchResult struct {
	ID       string         `json:"id"`
	Accepted []AcceptedFile `json:"accepted"`
	Rejected []RejectedFile `json:"rejected"`
	Summary  RunSummary     `json:"summary"`
}

// DedupMethod defines how the storage sink detects files it already holds.
type DedupMethod string

const (
	DedupMethodNameSize DedupMethod = "name-size"
	DedupMethodHash     DedupMethod = "hash"
)

// StoreAction is what the storage sink did with an accepted file.
type StoreAction string

const (
	StoreActionWritten     StoreAction = "written"
	StoreActionSkipped     StoreAction = "skipped"
	StoreActionRenamed     StoreAction = "renamed"
	StoreActionOverwritten StoreAction = "overwritten"
	StoreActionDryRun      StoreAction = "dry-run"
	StoreActionFailed      StoreAction = "failed"
)

// ConflictPolicy defines how the storage sink handles an existing, different file.
type ConflictPolicy string

const (
	ConflictPolicySkip      ConflictPolicy = "skip"
	ConflictPolicyRename    ConflictPolicy = "rename"
	ConflictPolicyOverwrite ConflictPolicy = "overwrite"
)

// StoreResult is the outcome of handing one accepted file to the storage sink.
type StoreResult struct {
	Name     string      `json:"name"`
	DestPath string      `json:"dest_path,omitempty"`
	Action   StoreAction `json:"action"`
	Error    string      `json:"error,omitempty"`
}
