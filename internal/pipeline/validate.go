package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/On-Jun9/ShutterGate/internal/config"
	"github.com/On-Jun9/ShutterGate/internal/metadata"
	"github.com/On-Jun9/ShutterGate/internal/policy"
	"github.com/On-Jun9/ShutterGate/internal/provenance"
	"github.com/On-Jun9/ShutterGate/internal/timewindow"
	"github.com/On-Jun9/ShutterGate/pkg/types"
	"go.uber.org/zap"
)

const (
	msgSourceNotOriginal = "Image must be taken directly from Snapchat or a phone camera. Screenshots, downloaded, or edited images are not allowed."
	msgSourceUnverified  = "Unable to verify image source. Please ensure you are uploading an original photo from Snapchat or phone camera."
	msgNoEXIF            = "No EXIF data found"
	msgTimeUnverified    = "Could not verify original photo creation time. Please upload original photos directly from your camera/phone."
	msgCurrentTimeUsed   = "Using current time as creation time - this may not reflect when the photo was actually taken"
)

// fileOutcome is the result of validating one file. data is the final buffer.
type fileOutcome struct {
	meta *types.FileMetadata
	data []byte
}

func (o fileOutcome) rejected() bool {
	return len(o.meta.ValidationErrors) > 0
}

func addError(meta *types.FileMetadata, kind types.ErrorKind, msg string) {
	meta.ValidationErrors = append(meta.ValidationErrors, msg)
	meta.ErrorKinds = append(meta.ErrorKinds, kind)
}

func addWarning(meta *types.FileMetadata, msg string) {
	meta.ValidationWarnings = append(meta.ValidationWarnings, msg)
}

// validateFile runs every per-file check in order. Errors and warnings are recorded
// on the returned metadata and never returned.
func (p *Pipeline) validateFile(ctx context.Context, raw types.RawFile, window types.EventWindow) fileOutcome {
	cfg := p.cfg
	data := raw.Bytes
	size := int64(len(data))

	meta := &types.FileMetadata{
		OriginalName:            raw.Name,
		Mimetype:                raw.DeclaredMimeType,
		SizeBytes:               size,
		OriginalSizeBytes:       size,
		CompressionRatio:        1,
		PossibleCreationSources: []types.CreationSource{},
		ValidationErrors:        []string{},
		ValidationWarnings:      []string{},
	}

	checkFormat(meta, cfg)

	// Tags come from the uploaded bytes; re-encoding drops the EXIF segment.
	isImage := strings.HasPrefix(meta.Mimetype, "image/")
	var tags types.ExtractedTags
	if isImage {
		tags = p.extractor.Extract(raw.Bytes)
	}

	if raw.DeclaredSizeBytes > cfg.MaxFileSizeBytes {
		data = p.compress(ctx, meta, data)
	}
	if meta.Dimensions == nil {
		if info, err := p.compressor.Probe(data); err == nil {
			meta.Dimensions = &types.Dimensions{Width: info.Width, Height: info.Height}
		}
	}

	if isImage {
		p.resolveSource(meta, tags)
	}

	now := p.now()
	p.resolveCreationTime(meta, tags, raw.LastModified, now)

	if isImage {
		result := provenance.Classify(raw.Name, raw.LastModified, tags, now)
		meta.Provenance = &result
	}

	if meta.WasCompressed {
		addWarning(meta, fmt.Sprintf("Image was automatically compressed from %.2fMB to %.2fMB",
			float64(meta.OriginalSizeBytes)/config.MiB, meta.SizeMB()))
	}

	timeResult := timewindow.ValidateFileCreationTime(meta, window, cfg.TimeBufferMinutes)
	if !timeResult.IsValid {
		addError(meta, types.ErrorKindTimeWindowRejected, timeResult.Message)
	}

	meta.SHA256 = policy.HexDigest(data)
	return fileOutcome{meta: meta, data: data}
}

// compress replaces data with a re-encoded buffer when that makes it smaller.
// Compression failures only produce a log entry.
func (p *Pipeline) compress(ctx context.Context, meta *types.FileMetadata, data []byte) []byte {
	result, err := p.compressor.Compress(ctx, data, p.cfg.TargetFileSizeBytes)
	if err != nil {
		p.logger.Warn("compression failed, keeping original bytes",
			zap.String("file", meta.OriginalName), zap.Error(err))
		return data
	}
	if result.FinalSizeBytes >= int64(len(data)) {
		return data
	}

	meta.WasCompressed = true
	meta.SizeBytes = result.FinalSizeBytes
	meta.CompressionRatio = float64(result.FinalSizeBytes) / float64(meta.OriginalSizeBytes)
	meta.CompressionQuality = result.FinalQuality
	if result.FinalDimensions.Width > 0 {
		dims := result.FinalDimensions
		meta.Dimensions = &dims
	}
	if result.Format != "" {
		meta.Mimetype = "image/" + result.Format
	}
	return result.Buffer
}

// checkFormat gates on the declared MIME type. The generic octet-stream type falls
// back to the extension allow-list.
func checkFormat(meta *types.FileMetadata, cfg config.Validation) {
	allowed := cfg.AllowsMimeType(meta.Mimetype)
	if meta.Mimetype == config.OctetStream {
		allowed = cfg.AllowsExtension(meta.OriginalName)
	}
	if !allowed {
		addError(meta, types.ErrorKindUnsupportedFormat, fmt.Sprintf("File type %s is not allowed. Allowed types: %s",
			meta.Mimetype, strings.Join(cfg.AllowedMimeTypes, ", ")))
	}
}

func (p *Pipeline) resolveSource(meta *types.FileMetadata, tags types.ExtractedTags) {
	if tags.Error != "" {
		if p.cfg.RequireOriginalPhoto {
			addError(meta, types.ErrorKindExtractionFailure, msgSourceUnverified)
		} else {
			addWarning(meta, msgNoEXIF)
		}
		return
	}

	match, ok := provenance.SourceFromSoftwareTags(tags, p.cfg)
	meta.SourceApplication = match.Application
	if ok {
		meta.PossibleCreationSources = append(meta.PossibleCreationSources, types.CreationSource(match.Source))
		meta.IsOriginalPhoto = true
	} else if p.cfg.RequireOriginalPhoto {
		addError(meta, types.ErrorKindProvenanceRejected, msgSourceNotOriginal)
	}

	meta.CameraMake, _ = tags.Value(types.TagMake)
	meta.CameraModel, _ = tags.Value(types.TagModel)
	meta.ISO, _ = tags.Value(types.TagISO)
}

// resolveCreationTime walks the fallback tiers in order: embedded date, client
// last-modified time, then now. Every tier used is recorded.
func (p *Pipeline) resolveCreationTime(meta *types.FileMetadata, tags types.ExtractedTags, lastModified *time.Time, now time.Time) {
	type tier struct {
		at     time.Time
		source types.CreationSource
	}

	chosen, _, _ := policy.First(
		policy.Rule[tier]{Name: "exif", Apply: func() (tier, bool) {
			at, _, ok := metadata.CreationDate(tags)
			return tier{at, types.CreationSourceEXIF}, ok
		}},
		policy.Rule[tier]{Name: "last-modified", Apply: func() (tier, bool) {
			if lastModified == nil {
				return tier{}, false
			}
			return tier{*lastModified, types.CreationSourceLastModified}, true
		}},
		policy.Always("current", tier{now, types.CreationSourceCurrent}),
	)

	createdAt := chosen.at
	meta.CreatedAt = &createdAt
	meta.PossibleCreationSources = append(meta.PossibleCreationSources, chosen.source)

	switch chosen.source {
	case types.CreationSourceEXIF:
		if q, ok := tags.Value(types.TagQuality); ok {
			if n, err := strconv.Atoi(q); err == nil {
				score := float64(n) / 100
				meta.QualityScore = &score
			}
		}
	case types.CreationSourceCurrent:
		if p.cfg.RequireOriginalPhoto {
			addError(meta, types.ErrorKindCreationTimeUnverifiable, msgTimeUnverified)
		} else {
			addWarning(meta, msgCurrentTimeUsed)
		}
	}
}

func cancelledOutcome(raw types.RawFile, err error) fileOutcome {
	meta := &types.FileMetadata{
		OriginalName:            raw.Name,
		Mimetype:                raw.DeclaredMimeType,
		SizeBytes:               int64(len(raw.Bytes)),
		OriginalSizeBytes:       int64(len(raw.Bytes)),
		PossibleCreationSources: []types.CreationSource{},
		ValidationWarnings:      []string{},
	}
	addError(meta, types.ErrorKindCancelled, fmt.Sprintf("%s: %v", types.ErrValidationCancelled, err))
	return fileOutcome{meta: meta}
}
