package provenance

import (
	"strings"

	"github.com/On-Jun9/ShutterGate/pkg/types"
)

var criticalCameraFields = []types.TagName{
	types.TagMake,
	types.TagModel,
	types.TagDateTimeOriginal,
	types.TagExposureTime,
	types.TagFNumber,
	types.TagISO,
	types.TagFocalLength,
}

var gpsFields = []types.TagName{
	types.TagGPSLatitude,
	types.TagGPSLongitude,
}

var basicFields = map[types.TagName]bool{
	types.TagJFIFVersion:    true,
	types.TagResolutionUnit: true,
	types.TagXResolution:    true,
	types.TagYResolution:    true,
}

// maxBasicFields is the largest tag count still treated as basic-only.
const maxBasicFields = 6

const (
	richnessNone    = "No EXIF data"
	richnessBasic   = "Basic (JFIF only)"
	richnessLimited = "Limited"
	richnessGPS     = "Very Rich (with GPS)"
	richnessRich    = "Rich"
)

// AnalyzeCompleteness scores how much camera metadata tags carries.
func AnalyzeCompleteness(tags types.ExtractedTags) types.ExifCompleteness {
	if !tags.HasExifData() {
		return types.ExifCompleteness{
			IsMissingCriticalData: true,
			DataRichness:          richnessNone,
		}
	}

	hasCritical := anyValue(tags, criticalCameraFields)
	hasGPS := anyValue(tags, gpsFields) || tags.GPS != nil

	onlyBasic := len(tags.Tags) <= maxBasicFields
	if onlyBasic {
		for name := range tags.Tags {
			if !basicFields[name] && !strings.Contains(string(name), "Thumbnail") {
				onlyBasic = false
				break
			}
		}
	}

	richness := richnessRich
	switch {
	case onlyBasic:
		richness = richnessBasic
	case !hasCritical:
		richness = richnessLimited
	case hasGPS:
		richness = richnessGPS
	}

	return types.ExifCompleteness{
		HasRichCameraData:     hasCritical,
		IsMissingCriticalData: !hasCritical,
		HasOnlyBasicData:      onlyBasic,
		HasGPSData:            hasGPS,
		DataRichness:          richness,
		TotalFields:           len(tags.Tags),
	}
}

func anyValue(tags types.ExtractedTags, names []types.TagName) bool {
	for _, name := range names {
		if _, ok := tags.Value(name); ok {
			return true
		}
	}
	return false
}
