package policy

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"github.com/On-Jun9/ShutterGate/pkg/types"
)

type DedupChecker struct {
	method types.DedupMethod
}

func NewDedupChecker(method types.DedupMethod) *DedupChecker {
	return &DedupChecker{method: method}
}

// IsDuplicate reports whether destPath already holds data.
func (d *DedupChecker) IsDuplicate(data []byte, destPath string) (bool, error) {
	destInfo, err := os.Stat(destPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if int64(len(data)) != destInfo.Size() {
		return false, nil
	}
	if d.method == types.DedupMethodNameSize {
		return true, nil
	}

	destHash, err := HashFile(destPath)
	if err != nil {
		return false, err
	}

	return bytes.Equal(destHash, HashBytes(data)), nil
}

func HashBytes(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

func HashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}

// HexDigest returns the lowercase hex SHA-256 of data.
func HexDigest(data []byte) string {
	return fmt.Sprintf("%x", HashBytes(data))
}
