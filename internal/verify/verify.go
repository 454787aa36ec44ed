package verify

import (
	"bytes"
	"fmt"
	"os"

	"github.com/On-Jun9/ShutterGate/internal/policy"
)

type Verifier struct {
	hashVerify bool
}

func New(hashVerify bool) *Verifier {
	return &Verifier{hashVerify: hashVerify}
}

// Verify checks that destPath holds exactly data. Without hash verification only
// the size is compared.
func (v *Verifier) Verify(data []byte, destPath string) error {
	destInfo, err := os.Stat(destPath)
	if err != nil {
		return fmt.Errorf("destination file not found: %w", err)
	}

	expectedSize := int64(len(data))
	if destInfo.Size() != expectedSize {
		return fmt.Errorf("size mismatch: expected %d, got %d", expectedSize, destInfo.Size())
	}

	if !v.hashVerify {
		return nil
	}

	destHash, err := policy.HashFile(destPath)
	if err != nil {
		return fmt.Errorf("failed to hash destination: %w", err)
	}

	srcHash := policy.HashBytes(data)
	if !bytes.Equal(srcHash, destHash) {
		return fmt.Errorf("hash mismatch: src=%x, dest=%x", srcHash, destHash)
	}

	return nil
}
