// Package metadata extracts embedded capture metadata from in-memory media buffers.
package metadata

import (
	"errors"
	"time"

	"github.com/On-Jun9/ShutterGate/internal/policy"
	"github.com/On-Jun9/ShutterGate/pkg/types"
)

// exifDateLayout is the EXIF 2.x date format. Values carry no zone.
const exifDateLayout = "2006:01:02 15:04:05"

// xmpDateLayouts are the XMP/ISO 8601 forms seen in the wild, tried in order.
var xmpDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006:01:02 15:04:05Z07:00",
	"2006-01-02",
}

type Extractor struct {
	exif *EXIFExtractor
	xmp  *XMPExtractor
	loc  *time.Location
}

func New() *Extractor {
	return NewWithLocation(time.Local)
}

// NewWithLocation returns an extractor that interprets zone-less EXIF dates in loc.
func NewWithLocation(loc *time.Location) *Extractor {
	if loc == nil {
		loc = time.Local
	}
	return &Extractor{
		exif: NewEXIFExtractor(),
		xmp:  NewXMPExtractor(),
		loc:  loc,
	}
}

// Extract parses every recognized tag out of data. It never fails: missing metadata
// yields an empty result, and a decoder failure is reported through Error.
func (e *Extractor) Extract(data []byte) types.ExtractedTags {
	ts := newTagSet()

	exifErr := e.exif.Extract(data, ts)
	if exifErr != nil && !errors.Is(exifErr, errNoEXIF) {
		return types.ExtractedTags{
			Tags:  map[types.TagName]string{},
			Error: "failed to decode EXIF: " + exifErr.Error(),
		}
	}

	// XMP problems never invalidate EXIF data already read.
	_ = e.xmp.Extract(data, ts)

	if v, ok := jfifVersion(data); ok {
		ts.setIfAbsent(types.TagJFIFVersion, v)
	}

	for _, name := range types.DateTags {
		raw, ok := ts.tags[name]
		if !ok || raw == "" {
			continue
		}
		if t, ok := e.parseDate(raw); ok {
			ts.dates[name] = t
		}
	}

	return ts.result()
}

func (e *Extractor) parseDate(raw string) (time.Time, bool) {
	if t, err := time.ParseInLocation(exifDateLayout, raw, e.loc); err == nil {
		return t, true
	}
	for _, layout := range xmpDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, e.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CreationDate returns the first parseable date tag in priority order
// DateTimeOriginal, CreateDate, ModifyDate, DateTime.
func CreationDate(tags types.ExtractedTags) (time.Time, types.TagName, bool) {
	rules := make([]policy.Rule[time.Time], 0, len(types.DateTags))
	for _, name := range types.DateTags {
		name := name
		rules = append(rules, policy.Rule[time.Time]{
			Name:  string(name),
			Apply: func() (time.Time, bool) { return tags.Date(name) },
		})
	}
	t, name, ok := policy.First(rules...)
	return t, types.TagName(name), ok
}

// tagSet accumulates tags while the individual decoders run.
type tagSet struct {
	tags  map[types.TagName]string
	dates map[types.TagName]time.Time
	gps   *types.GPSPosition
}

func newTagSet() *tagSet {
	return &tagSet{
		tags:  make(map[types.TagName]string),
		dates: make(map[types.TagName]time.Time),
	}
}

func (ts *tagSet) set(name types.TagName, value string) {
	ts.tags[name] = value
}

func (ts *tagSet) setIfAbsent(name types.TagName, value string) {
	if _, ok := ts.tags[name]; !ok {
		ts.tags[name] = value
	}
}

func (ts *tagSet) result() types.ExtractedTags {
	out := types.ExtractedTags{Tags: ts.tags, GPS: ts.gps}
	if len(ts.dates) > 0 {
		out.Dates = ts.dates
	}
	return out
}
