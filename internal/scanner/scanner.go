package scanner

import (
	"context"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/On-Jun9/ShutterGate/pkg/types"
)

type Scanner struct {
	includeExt map[string]bool
}

// New accepts extensions with or without the leading dot.
func New(extensions []string) *Scanner {
	extMap := make(map[string]bool)
	for _, ext := range extensions {
		extMap[strings.TrimPrefix(strings.ToLower(ext), ".")] = true
	}
	return &Scanner{includeExt: extMap}
}

// Scan loads every matching file under root into memory, in lexical path order.
func (s *Scanner) Scan(ctx context.Context, root string) ([]types.RawFile, error) {
	var files []types.RawFile

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		if !s.includeExt[ext] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() == 0 {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		modTime := info.ModTime()
		files = append(files, types.RawFile{
			Name:              d.Name(),
			DeclaredMimeType:  DetectMimeType(d.Name(), data),
			DeclaredSizeBytes: info.Size(),
			Bytes:             data,
			LastModified:      &modTime,
		})

		return nil
	})

	return files, err
}

// DetectMimeType prefers the extension mapping and falls back to content sniffing.
func DetectMimeType(name string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return http.DetectContentType(data)
}
