package provenance

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/On-Jun9/ShutterGate/internal/config"
	"github.com/On-Jun9/ShutterGate/internal/policy"
	"github.com/On-Jun9/ShutterGate/pkg/types"
)

// staleAfterDays is the file age beyond which a file is treated as stored or transferred.
const staleAfterDays = 30

// SourceMatch describes how a capture source was resolved from tags.
type SourceMatch struct {
	Source types.SourceKind
	// Application is the lower-cased software tag value that matched, or the last
	// one seen when nothing matched.
	Application string
	// Rule names the rule that resolved the source.
	Rule string
}

// SourceFromSoftwareTags resolves the capture source from software tags, falling
// back to camera make/model plus an original capture date. A resolved source that
// is not in cfg.AllowedSources is reported as unresolved.
func SourceFromSoftwareTags(tags types.ExtractedTags, cfg config.Validation) (SourceMatch, bool) {
	var lastApplication string
	var rules []policy.Rule[SourceMatch]

	for _, name := range types.SoftwareTags {
		name := name
		rules = append(rules, policy.Rule[SourceMatch]{
			Name: string(name),
			Apply: func() (SourceMatch, bool) {
				raw, ok := tags.Value(name)
				if !ok {
					return SourceMatch{}, false
				}
				software := strings.ToLower(raw)
				lastApplication = software
				if strings.Contains(software, "snapchat") {
					return SourceMatch{Source: types.SourceSnapchat, Application: software}, true
				}
				for _, token := range cfg.KnownCameraSoftwareTokens {
					if token != "" && strings.Contains(software, strings.ToLower(token)) {
						return SourceMatch{Source: types.SourcePhoneCamera, Application: software}, true
					}
				}
				return SourceMatch{}, false
			},
		})
	}

	rules = append(rules, policy.When("camera-info", func() bool {
		_, hasMake := tags.Value(types.TagMake)
		_, hasModel := tags.Value(types.TagModel)
		_, hasOriginalDate := tags.Value(types.TagDateTimeOriginal)
		return (hasMake || hasModel) && hasOriginalDate
	}, SourceMatch{Source: types.SourcePhoneCamera}))

	match, ruleName, ok := policy.First(rules...)
	if !ok {
		return SourceMatch{Application: lastApplication}, false
	}
	match.Rule = ruleName
	if match.Application == "" {
		match.Application = lastApplication
	}

	if !slices.Contains(cfg.AllowedSources, match.Source) {
		return SourceMatch{Application: match.Application}, false
	}
	return match, true
}

type verdict struct {
	source     types.ImageSource
	confidence types.Confidence
}

// Classify combines filename heuristics, EXIF completeness, and file age into a
// provenance verdict. Every matching heuristic is recorded; the verdict itself
// follows a fixed precedence: screenshot, processed, transferred, original camera.
func Classify(filename string, lastModified *time.Time, tags types.ExtractedTags, now time.Time) types.ProvenanceResult {
	transfer := MatchAll(filename, TransferRules)
	processing := MatchAll(filename, ProcessingRules)

	completeness := AnalyzeCompleteness(tags)
	if completeness.IsMissingCriticalData {
		processing = append(processing, "Missing critical camera EXIF data")
	}
	if completeness.HasOnlyBasicData {
		processing = append(processing, "Only basic JFIF data present")
	}

	ageDays := 0
	if lastModified != nil {
		ageDays = int(math.Floor(now.Sub(*lastModified).Hours() / 24))
		if ageDays > staleAfterDays {
			transfer = append(transfer, fmt.Sprintf("File modified %d days ago (likely stored/transferred)", ageDays))
		}
	}

	transferConfidence := types.ConfidenceMedium
	if len(transfer) > 1 {
		transferConfidence = types.ConfidenceHigh
	}

	v, _, _ := policy.First(
		policy.When("screenshot", func() bool { return anyContains(processing, "Screenshot") },
			verdict{types.ImageSourceScreenshot, types.ConfidenceHigh}),
		policy.When("processed", func() bool { return anyContains(processing, "processing") },
			verdict{types.ImageSourceProcessed, types.ConfidenceMedium}),
		policy.When("transferred", func() bool { return len(transfer) > 0 },
			verdict{types.ImageSourceTransferred, transferConfidence}),
		policy.When("original", func() bool { return completeness.HasRichCameraData },
			verdict{types.ImageSourceOriginal, types.ConfidenceHigh}),
		policy.Always("unknown", verdict{types.ImageSourceUnknown, types.ConfidenceLow}),
	)

	return types.ProvenanceResult{
		ImageSource:          v.source,
		Confidence:           v.confidence,
		LikelyTransferred:    len(transfer) > 0,
		LikelyProcessed:      len(processing) > 0,
		TransferIndicators:   nonNil(transfer),
		ProcessingIndicators: nonNil(processing),
		ExifCompleteness:     completeness,
		FileAgeDays:          ageDays,
	}
}

func anyContains(labels []string, substr string) bool {
	for _, l := range labels {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
