package provenance

import (
	"testing"
	"time"

	"github.com/On-Jun9/ShutterGate/internal/config"
	"github.com/On-Jun9/ShutterGate/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func tagsOf(kv map[types.TagName]string) types.ExtractedTags {
	return types.ExtractedTags{Tags: kv}
}

func richCameraTags() types.ExtractedTags {
	return tagsOf(map[types.TagName]string{
		types.TagMake:             "Apple",
		types.TagModel:            "iPhone 15",
		types.TagDateTimeOriginal: "2024:06:01 10:00:00",
		types.TagExposureTime:     "1/120",
		types.TagFNumber:          "1.8",
		types.TagISO:              "64",
		types.TagSoftware:         "17.5",
	})
}

// TestClassify_ScreenshotWithoutTags는 메타데이터 없는 스크린샷 판정을 검증합니다.
func TestClassify_ScreenshotWithoutTags(t *testing.T) {
	// 파일명 규칙과 EXIF 누락 지표가 모두 기록되고 Screenshot/high로 판정되어야 한다.
	result := Classify("Screenshot_2024-01-01.png", nil, types.ExtractedTags{}, now)

	assert.Equal(t, types.ImageSourceScreenshot, result.ImageSource)
	assert.Equal(t, types.ConfidenceHigh, result.Confidence)
	assert.True(t, result.LikelyProcessed)
	assert.False(t, result.LikelyTransferred)
	assert.Equal(t, []string{"Screenshot", "Missing critical camera EXIF data"}, result.ProcessingIndicators)
	assert.Empty(t, result.TransferIndicators)
	assert.Equal(t, "No EXIF data", result.ExifCompleteness.DataRichness)
}

// TestClassify_ScreenshotBeatsRichEXIF는 판정 우선순위를 검증합니다.
func TestClassify_ScreenshotBeatsRichEXIF(t *testing.T) {
	// 풍부한 카메라 EXIF가 있어도 스크린샷 파일명이 우선해야 한다.
	result := Classify("Screen Shot 2024-06-01 at 10.00.00.png", nil, richCameraTags(), now)

	assert.Equal(t, types.ImageSourceScreenshot, result.ImageSource)
	assert.True(t, result.ExifCompleteness.HasRichCameraData)
}

// TestClassify_ProcessingBeatsTransfer는 편집 지표 우선순위를 검증합니다.
func TestClassify_ProcessingBeatsTransfer(t *testing.T) {
	result := Classify("Untitled.jpg", nil, richCameraTags(), now)

	assert.Equal(t, types.ImageSourceProcessed, result.ImageSource)
	assert.Equal(t, types.ConfidenceMedium, result.Confidence)
}

// TestClassify_TransferConfidence는 전송 지표 개수별 신뢰도를 검증합니다.
func TestClassify_TransferConfidence(t *testing.T) {
	// 지표 1개는 medium, 2개 이상은 high여야 한다.
	single := Classify("IMG-20240601-WA0001.jpg", nil, richCameraTags(), now)
	assert.Equal(t, types.ImageSourceTransferred, single.ImageSource)
	assert.Equal(t, types.ConfidenceMedium, single.Confidence)

	old := now.AddDate(0, 0, -45)
	multiple := Classify("IMG-20240601-WA0001.jpg", &old, richCameraTags(), now)
	assert.Equal(t, types.ImageSourceTransferred, multiple.ImageSource)
	assert.Equal(t, types.ConfidenceHigh, multiple.Confidence)
	assert.Equal(t, 45, multiple.FileAgeDays)
	assert.Contains(t, multiple.TransferIndicators, "File modified 45 days ago (likely stored/transferred)")
}

// TestClassify_AgeBoundary는 30일 경계 처리를 검증합니다.
func TestClassify_AgeBoundary(t *testing.T) {
	// 정확히 30일은 전송 지표가 아니어야 한다.
	thirty := now.AddDate(0, 0, -30)
	result := Classify("IMG_1234.jpg", &thirty, richCameraTags(), now)

	assert.Equal(t, 30, result.FileAgeDays)
	assert.False(t, result.LikelyTransferred)
	assert.Equal(t, types.ImageSourceOriginal, result.ImageSource)
}

// TestClassify_OriginalAndUnknown는 원본/미상 판정을 검증합니다.
func TestClassify_OriginalAndUnknown(t *testing.T) {
	original := Classify("IMG_1234.jpg", nil, richCameraTags(), now)
	assert.Equal(t, types.ImageSourceOriginal, original.ImageSource)
	assert.Equal(t, types.ConfidenceHigh, original.Confidence)
	assert.False(t, original.LikelyProcessed)

	// 카메라 필드가 없고 파일명 규칙도 없으면 processing 지표만 남고 Unknown이어야 한다.
	limited := Classify("IMG_1234.jpg", nil, tagsOf(map[types.TagName]string{
		types.TagSoftware:    "Snapseed",
		types.TagOrientation: "1",
		types.TagColorSpace:  "1",
	}), now)
	assert.Equal(t, types.ImageSourceUnknown, limited.ImageSource)
	assert.Equal(t, types.ConfidenceLow, limited.Confidence)
	assert.Equal(t, "Limited", limited.ExifCompleteness.DataRichness)
}

// TestClassify_IsPure는 동일 입력 동일 결과를 검증합니다.
func TestClassify_IsPure(t *testing.T) {
	old := now.AddDate(0, 0, -90)
	first := Classify("Copy of image_12.jpg", &old, types.ExtractedTags{}, now)
	second := Classify("Copy of image_12.jpg", &old, types.ExtractedTags{}, now)

	assert.Equal(t, first, second)
}

// TestAnalyzeCompleteness_Levels는 EXIF 풍부도 등급을 검증합니다.
func TestAnalyzeCompleteness_Levels(t *testing.T) {
	cases := []struct {
		name     string
		tags     types.ExtractedTags
		richness string
		basic    bool
		gps      bool
	}{
		{"none", types.ExtractedTags{}, "No EXIF data", false, false},
		{"basic", tagsOf(map[types.TagName]string{
			types.TagJFIFVersion:     "1.01",
			types.TagXResolution:     "72",
			types.TagThumbnailOffset: "100",
		}), "Basic (JFIF only)", true, false},
		{"rich", richCameraTags(), "Rich", false, false},
		{"gps", func() types.ExtractedTags {
			tags := richCameraTags()
			tags.Tags[types.TagGPSLatitude] = "37.5"
			return tags
		}(), "Very Rich (with GPS)", false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := AnalyzeCompleteness(tc.tags)
			assert.Equal(t, tc.richness, c.DataRichness)
			assert.Equal(t, tc.basic, c.HasOnlyBasicData)
			assert.Equal(t, tc.gps, c.HasGPSData)
			assert.Equal(t, len(tc.tags.Tags), c.TotalFields)
		})
	}
}

// TestSourceFromSoftwareTags_Resolves는 소프트웨어 태그 기반 출처 판정을 검증합니다.
func TestSourceFromSoftwareTags_Resolves(t *testing.T) {
	cfg := config.DefaultValidation()

	cases := []struct {
		name   string
		tags   types.ExtractedTags
		source types.SourceKind
		rule   string
	}{
		{"iphone", tagsOf(map[types.TagName]string{types.TagSoftware: "Apple iPhone Camera"}),
			types.SourcePhoneCamera, string(types.TagSoftware)},
		{"snapchat app", tagsOf(map[types.TagName]string{types.TagApplicationName: "Snapchat 12.0"}),
			types.SourceSnapchat, string(types.TagApplicationName)},
		{"camera info fallback", tagsOf(map[types.TagName]string{
			types.TagMake:             "samsung",
			types.TagDateTimeOriginal: "2024:06:01 10:00:00",
		}), types.SourcePhoneCamera, "camera-info"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			match, ok := SourceFromSoftwareTags(tc.tags, cfg)
			require.True(t, ok)
			assert.Equal(t, tc.source, match.Source)
			assert.Equal(t, tc.rule, match.Rule)
		})
	}
}

// TestSourceFromSoftwareTags_FirstMatchWins는 태그 순서 우선순위를 검증합니다.
func TestSourceFromSoftwareTags_FirstMatchWins(t *testing.T) {
	// Software 태그가 먼저 검사되므로 뒤의 CreatorTool은 평가되지 않아야 한다.
	tags := tagsOf(map[types.TagName]string{
		types.TagSoftware:    "Google Camera",
		types.TagCreatorTool: "Snapchat",
	})

	match, ok := SourceFromSoftwareTags(tags, config.DefaultValidation())
	require.True(t, ok)
	assert.Equal(t, types.SourcePhoneCamera, match.Source)
	assert.Equal(t, "google camera", match.Application)
}

// TestSourceFromSoftwareTags_Unresolved는 미해결 출처를 검증합니다.
func TestSourceFromSoftwareTags_Unresolved(t *testing.T) {
	cfg := config.DefaultValidation()

	// 편집 소프트웨어만 있으면 해결되지 않고 마지막 값이 기록되어야 한다.
	match, ok := SourceFromSoftwareTags(tagsOf(map[types.TagName]string{
		types.TagSoftware: "Adobe Photoshop 25.0",
	}), cfg)
	assert.False(t, ok)
	assert.Equal(t, "adobe photoshop 25.0", match.Application)

	// Make만 있고 촬영 시각이 없으면 카메라 정보 규칙도 맞지 않아야 한다.
	_, ok = SourceFromSoftwareTags(tagsOf(map[types.TagName]string{types.TagMake: "Apple"}), cfg)
	assert.False(t, ok)

	_, ok = SourceFromSoftwareTags(types.ExtractedTags{}, cfg)
	assert.False(t, ok)
}

// TestSourceFromSoftwareTags_DisallowedSource는 허용되지 않은 출처 처리를 검증합니다.
func TestSourceFromSoftwareTags_DisallowedSource(t *testing.T) {
	// 허용 목록에 없는 출처는 미해결로 취급되어야 한다.
	cfg := config.DefaultValidation()
	cfg.AllowedSources = []types.SourceKind{types.SourcePhoneCamera}

	_, ok := SourceFromSoftwareTags(tagsOf(map[types.TagName]string{
		types.TagSoftware: "Snapchat",
	}), cfg)
	assert.False(t, ok)
}

// TestMatchAll_TableOrder는 규칙 표 순서 보존을 검증합니다.
func TestMatchAll_TableOrder(t *testing.T) {
	labels := MatchAll("Copy of photo_123 (1).jpg", ProcessingRules)
	assert.Equal(t, []string{"Duplicate file naming"}, labels)

	labels = MatchAll("20240601_101500.jpg", TransferRules)
	assert.Equal(t, []string{"Generic timestamp pattern"}, labels)

	assert.Nil(t, MatchAll("DSC01234.JPG", TransferRules))
}
