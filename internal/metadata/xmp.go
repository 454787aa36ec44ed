package metadata

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/On-Jun9/ShutterGate/pkg/types"
)

// xmpLocalTags maps XMP property local names onto recognized tag names.
var xmpLocalTags = map[string]types.TagName{
	"CreatorTool":              types.TagCreatorTool,
	"ModifyDate":               types.TagModifyDate,
	"CreateDate":               types.TagCreateDate,
	"ApplicationName":          types.TagApplicationName,
	"ApplicationRecordVersion": types.TagApplicationRecordVersion,
}

var (
	xmpStart = []byte("<x:xmpmeta")
	xmpEnd   = []byte("</x:xmpmeta>")

	errNoXMP = errors.New("XMP packet not found")
)

type XMPExtractor struct{}

func NewXMPExtractor() *XMPExtractor {
	return &XMPExtractor{}
}

// Extract reads the embedded XMP packet of data into ts. Properties may appear
// either as attributes of rdf:Description or as child elements.
func (e *XMPExtractor) Extract(data []byte, ts *tagSet) error {
	packet, ok := findXMPPacket(data)
	if !ok {
		return errNoXMP
	}

	dec := xml.NewDecoder(bytes.NewReader(packet))
	dec.Strict = false

	var current types.TagName
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.New("failed to parse XMP: " + err.Error())
		}

		switch t := tok.(type) {
		case xml.StartElement:
			for _, attr := range t.Attr {
				if name, ok := xmpLocalTags[attr.Name.Local]; ok {
					ts.setIfAbsent(name, strings.TrimSpace(attr.Value))
				}
			}
			current = xmpLocalTags[t.Name.Local]
		case xml.CharData:
			if current != "" {
				if v := strings.TrimSpace(string(t)); v != "" {
					ts.setIfAbsent(current, v)
				}
			}
		case xml.EndElement:
			current = ""
		}
	}
}

func findXMPPacket(data []byte) ([]byte, bool) {
	start := bytes.Index(data, xmpStart)
	if start < 0 {
		return nil, false
	}
	end := bytes.Index(data[start:], xmpEnd)
	if end < 0 {
		return nil, false
	}
	return data[start : start+end+len(xmpEnd)], true
}
