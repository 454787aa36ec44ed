package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/On-Jun9/ShutterGate/pkg/types"
)

// exifFieldTags maps goexif field names onto recognized tag names.
var exifFieldTags = map[exif.FieldName]types.TagName{
	exif.Software:                         types.TagSoftware,
	exif.Make:                             types.TagMake,
	exif.Model:                            types.TagModel,
	exif.DateTimeOriginal:                 types.TagDateTimeOriginal,
	exif.DateTimeDigitized:                types.TagCreateDate,
	exif.DateTime:                         types.TagDateTime,
	exif.ExposureTime:                     types.TagExposureTime,
	exif.FNumber:                          types.TagFNumber,
	exif.ISOSpeedRatings:                  types.TagISO,
	exif.FocalLength:                      types.TagFocalLength,
	exif.Flash:                            types.TagFlash,
	exif.WhiteBalance:                     types.TagWhiteBalance,
	exif.ExposureMode:                     types.TagExposureMode,
	exif.Orientation:                      types.TagOrientation,
	exif.XResolution:                      types.TagXResolution,
	exif.YResolution:                      types.TagYResolution,
	exif.ResolutionUnit:                   types.TagResolutionUnit,
	exif.ColorSpace:                       types.TagColorSpace,
	exif.PixelXDimension:                  types.TagPixelXDimension,
	exif.PixelYDimension:                  types.TagPixelYDimension,
	exif.ThumbJPEGInterchangeFormat:       types.TagThumbnailOffset,
	exif.ThumbJPEGInterchangeFormatLength: types.TagThumbnailLength,
	exif.GPSLatitude:                      types.TagGPSLatitude,
	exif.GPSLongitude:                     types.TagGPSLongitude,
	exif.GPSAltitude:                      types.TagGPSAltitude,
	exif.GPSDateStamp:                     types.TagGPSDateStamp,
}

var (
	exifHeader = []byte("Exif\x00\x00")
	pngMagic   = []byte("\x89PNG\r\n\x1a\n")
	jpegMagic  = []byte{0xFF, 0xD8}

	errNoEXIF = errors.New("no EXIF data")
)

type EXIFExtractor struct{}

func NewEXIFExtractor() *EXIFExtractor {
	return &EXIFExtractor{}
}

// Extract decodes the EXIF block of data into ts. It returns errNoEXIF when data
// carries no EXIF block at all, and a decode error when the block is unreadable.
func (e *EXIFExtractor) Extract(data []byte, ts *tagSet) (err error) {
	payload, ok := locateEXIF(data)
	if !ok {
		return errNoEXIF
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("exif decoder panic: %v", r)
		}
	}()

	x, err := exif.Decode(bytes.NewReader(payload))
	if x == nil {
		if err == nil {
			err = errNoEXIF
		}
		return err
	}
	if err != nil && exif.IsCriticalError(err) {
		return err
	}

	if walkErr := x.Walk(walkFunc(func(name exif.FieldName, tag *tiff.Tag) error {
		if tagName, ok := exifFieldTags[name]; ok {
			ts.set(tagName, describeTag(tag))
		}
		return nil
	})); walkErr != nil {
		return walkErr
	}

	if lat, long, err := x.LatLong(); err == nil {
		pos := &types.GPSPosition{Latitude: lat, Longitude: long}
		if tag, err := x.Get(exif.GPSAltitude); err == nil {
			if r, err := tag.Rat(0); err == nil {
				alt, _ := r.Float64()
				pos.Altitude = &alt
			}
		}
		ts.gps = pos
	}

	return nil
}

type walkFunc func(name exif.FieldName, tag *tiff.Tag) error

func (f walkFunc) Walk(name exif.FieldName, tag *tiff.Tag) error {
	return f(name, tag)
}

// describeTag renders a tag value as display text.
func describeTag(tag *tiff.Tag) string {
	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(s, "\x00"))
	case tiff.RatVal:
		if tag.Count == 1 {
			if r, err := tag.Rat(0); err == nil {
				return r.RatString()
			}
		}
	case tiff.IntVal:
		if tag.Count == 1 {
			if v, err := tag.Int(0); err == nil {
				return strconv.Itoa(v)
			}
		}
	}
	return strings.Trim(tag.String(), `"`)
}

// locateEXIF finds the EXIF payload in a JPEG, TIFF, PNG, or ISO-BMFF buffer.
func locateEXIF(data []byte) ([]byte, bool) {
	if len(data) < 8 {
		return nil, false
	}

	header := string(data[:4])
	if header == "II*\x00" || header == "MM\x00*" {
		return data, true
	}

	if bytes.HasPrefix(data, pngMagic) {
		if chunk, ok := pngChunk(data, "eXIf"); ok {
			return append(append([]byte{}, exifHeader...), chunk...), true
		}
		// Some encoders put the EXIF block in a text chunk; fall through to the scan.
	}

	idx := bytes.Index(data, exifHeader)
	if idx < 0 {
		return nil, false
	}
	if bytes.HasPrefix(data, jpegMagic) {
		return data, true
	}
	return data[idx:], true
}

// pngChunk returns the payload of the first PNG chunk of the given type.
func pngChunk(data []byte, chunkType string) ([]byte, bool) {
	pos := len(pngMagic)
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		typ := string(data[pos+4 : pos+8])
		start := pos + 8
		end := start + length
		if length < 0 || end > len(data) {
			return nil, false
		}
		if typ == chunkType {
			return data[start:end], true
		}
		if typ == "IEND" {
			return nil, false
		}
		pos = end + 4 // skip CRC
	}
	return nil, false
}

// jfifVersion returns the JFIF version of a JPEG APP0 segment, e.g. "1.01".
func jfifVersion(data []byte) (string, bool) {
	if len(data) < 13 || !bytes.HasPrefix(data, jpegMagic) {
		return "", false
	}
	if data[2] != 0xFF || data[3] != 0xE0 || string(data[6:11]) != "JFIF\x00" {
		return "", false
	}
	return fmt.Sprintf("%d.%02d", data[11], data[12]), true
}
