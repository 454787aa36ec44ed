package types

import (
	"sort"
	"time"
)

// TagName is a recognized embedded-metadata tag. Tags outside this set are dropped
// during extraction.
type TagName string

const (
	TagSoftware                 TagName = "Software"
	TagApplicationRecordVersion TagName = "ApplicationRecordVersion"
	TagApplicationName          TagName = "ApplicationName"
	TagCreatorTool              TagName = "CreatorTool"

	TagMake  TagName = "Make"
	TagModel TagName = "Model"

	TagDateTimeOriginal TagName = "DateTimeOriginal"
	TagCreateDate       TagName = "CreateDate"
	TagModifyDate       TagName = "ModifyDate"
	TagDateTime         TagName = "DateTime"

	TagExposureTime TagName = "ExposureTime"
	TagFNumber      TagName = "FNumber"
	TagISO          TagName = "ISO"
	TagFocalLength  TagName = "FocalLength"
	TagFlash        TagName = "Flash"
	TagWhiteBalance TagName = "WhiteBalance"
	TagExposureMode TagName = "ExposureMode"

	TagOrientation    TagName = "Orientation"
	TagXResolution    TagName = "XResolution"
	TagYResolution    TagName = "YResolution"
	TagResolutionUnit TagName = "ResolutionUnit"
	TagColorSpace     TagName = "ColorSpace"
	TagJFIFVersion    TagName = "JFIFVersion"
	TagQuality        TagName = "Quality"

	TagThumbnailOffset TagName = "ThumbnailOffset"
	TagThumbnailLength TagName = "ThumbnailLength"
	TagPixelXDimension TagName = "PixelXDimension"
	TagPixelYDimension TagName = "PixelYDimension"

	TagGPSLatitude  TagName = "GPSLatitude"
	TagGPSLongitude TagName = "GPSLongitude"
	TagGPSAltitude  TagName = "GPSAltitude"
	TagGPSDateStamp TagName = "GPSDateStamp"
)

// SoftwareTags are the tags that may name the producing application, in lookup order.
var SoftwareTags = []TagName{
	TagSoftware,
	TagApplicationRecordVersion,
	TagApplicationName,
	TagCreatorTool,
}

// DateTags are the tags that may carry a creation time, in priority order.
var DateTags = []TagName{
	TagDateTimeOriginal,
	TagCreateDate,
	TagModifyDate,
	TagDateTime,
}

// GPSPosition is a decoded GPS fix.
type GPSPosition struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
}

// ExtractedTags is the normalized result of metadata extraction.
type ExtractedTags struct {
	// Tags maps each present tag to its description. An empty description means the
	// tag was present without a usable value.
	Tags map[TagName]string `json:"tags"`
	// Dates holds the date tags that parsed to a valid instant.
	Dates map[TagName]time.Time `json:"dates,omitempty"`
	// GPS is set when latitude and longitude both decoded.
	GPS *GPSPosition `json:"gps,omitempty"`
	// Error is set when the parser failed entirely. Tags is empty in that case.
	Error string `json:"error,omitempty"`
}

// HasExifData reports whether any tag was extracted.
func (t ExtractedTags) HasExifData() bool {
	return len(t.Tags) > 0
}

// Has reports whether the tag is present, with or without a value.
func (t ExtractedTags) Has(name TagName) bool {
	_, ok := t.Tags[name]
	return ok
}

// Value returns the tag description if the tag is present with a non-empty value.
func (t ExtractedTags) Value(name TagName) (string, bool) {
	v, ok := t.Tags[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Date returns the parsed instant of a date tag.
func (t ExtractedTags) Date(name TagName) (time.Time, bool) {
	d, ok := t.Dates[name]
	return d, ok
}

// Keys returns the present tag names in sorted order.
func (t ExtractedTags) Keys() []TagName {
	keys := make([]TagName, 0, len(t.Tags))
	for k := range t.Tags {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
