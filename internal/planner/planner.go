package planner

import (
	"path/filepath"
	"strings"

	"github.com/On-Jun9/ShutterGate/pkg/types"
)

// unnamed replaces filenames that reduce to nothing after sanitizing.
const unnamed = "upload"

// formatExtensions maps re-encoded content types to the extension they are stored under.
var formatExtensions = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
}

type Planner struct {
	destRoot  string
	eventName string
}

func New(destRoot, eventName string) *Planner {
	return &Planner{
		destRoot:  destRoot,
		eventName: SanitizeName(eventName),
	}
}

// Plan returns the destination path for an accepted file:
// <dest>/<event>/YYYY/MM/DD/<name>, dated by the file's creation time.
// The event segment is omitted when no event name is set.
func (p *Planner) Plan(file types.AcceptedFile) string {
	t := file.CreatedAt

	parts := []string{p.destRoot}
	if p.eventName != "" {
		parts = append(parts, p.eventName)
	}
	parts = append(parts,
		t.Format("2006"),
		t.Format("01"),
		t.Format("02"),
		storedName(file),
	)
	return filepath.Join(parts...)
}

// SanitizeName reduces a client-supplied name to a single safe path element.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.Clean("/" + name))

	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == ':', r == '*', r == '?', r == '"', r == '<', r == '>', r == '|':
			return '_'
		}
		return r
	}, name)

	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

// FileName is SanitizeName with a fallback for names that sanitize to nothing.
func FileName(name string) string {
	if s := SanitizeName(name); s != "" {
		return s
	}
	return unnamed
}

// storedName is FileName with the extension swapped when the content was
// re-encoded into a different format than the client name says.
func storedName(file types.AcceptedFile) string {
	name := FileName(file.OriginalName)
	if file.Metadata == nil || !file.Metadata.WasCompressed {
		return name
	}
	exts, ok := formatExtensions[file.Mimetype]
	if !ok {
		return name
	}

	ext := filepath.Ext(name)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return name
		}
	}
	return strings.TrimSuffix(name, ext) + exts[0]
}
