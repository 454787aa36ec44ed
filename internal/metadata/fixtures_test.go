package metadata

import (
	"encoding/binary"
	"sort"
)

// asciiTag is one IFD0 ASCII entry of a test TIFF.
type asciiTag struct {
	id    uint16
	value string
}

// buildTIFF는 주어진 ASCII 태그들을 IFD0에 담은 little-endian TIFF를 만듭니다.
func buildTIFF(tags ...asciiTag) []byte {
	sort.Slice(tags, func(i, j int) bool { return tags[i].id < tags[j].id })

	ifdSize := 2 + 12*len(tags) + 4
	dataOffset := 8 + ifdSize

	var ifd, values []byte
	ifd = binary.LittleEndian.AppendUint16(ifd, uint16(len(tags)))
	for _, tag := range tags {
		ascii := append([]byte(tag.value), 0x00)
		ifd = binary.LittleEndian.AppendUint16(ifd, tag.id)
		ifd = binary.LittleEndian.AppendUint16(ifd, 2) // ASCII
		ifd = binary.LittleEndian.AppendUint32(ifd, uint32(len(ascii)))
		if len(ascii) <= 4 {
			inline := make([]byte, 4)
			copy(inline, ascii)
			ifd = append(ifd, inline...)
			continue
		}
		ifd = binary.LittleEndian.AppendUint32(ifd, uint32(dataOffset+len(values)))
		values = append(values, ascii...)
	}
	ifd = binary.LittleEndian.AppendUint32(ifd, 0) // next IFD

	data := []byte{0x49, 0x49, 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00}
	data = append(data, ifd...)
	return append(data, values...)
}

// buildPNGWithEXIF는 eXIf 청크에 TIFF를 담은 PNG 바이트를 만듭니다. CRC는 검사 대상이 아니다.
func buildPNGWithEXIF(tiffData []byte) []byte {
	data := append([]byte{}, pngMagic...)
	data = appendPNGChunk(data, "IHDR", make([]byte, 13))
	data = appendPNGChunk(data, "eXIf", tiffData)
	return appendPNGChunk(data, "IEND", nil)
}

func appendPNGChunk(data []byte, typ string, payload []byte) []byte {
	data = binary.BigEndian.AppendUint32(data, uint32(len(payload)))
	data = append(data, typ...)
	data = append(data, payload...)
	return append(data, 0, 0, 0, 0)
}

// buildJFIFHeader는 APP0(JFIF 1.01) 세그먼트만 있는 JPEG 앞부분을 만듭니다.
func buildJFIFHeader() []byte {
	return []byte{
		0xFF, 0xD8, // SOI
		0xFF, 0xE0, 0x00, 0x10, // APP0, length 16
		'J', 'F', 'I', 'F', 0x00,
		0x01, 0x01, // version 1.01
		0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
		0xFF, 0xD9, // EOI
	}
}

const (
	tagMake             = 0x010F
	tagModel            = 0x0110
	tagSoftware         = 0x0131
	tagDateTime         = 0x0132
	tagDateTimeOriginal = 0x9003
	tagDateTimeDigitize = 0x9004
)
