package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/On-Jun9/ShutterGate/pkg/types"
)

type ConflictResolver struct {
	policy types.ConflictPolicy
}

func NewConflictResolver(policy types.ConflictPolicy) *ConflictResolver {
	return &ConflictResolver{policy: policy}
}

type Resolution struct {
	Action   types.StoreAction
	DestPath string
	Skip     bool
}

// Resolve decides where an accepted file goes when destPath may already exist.
func (c *ConflictResolver) Resolve(destPath string) Resolution {
	if _, err := os.Stat(destPath); os.IsNotExist(err) {
		return Resolution{Action: types.StoreActionWritten, DestPath: destPath}
	}

	switch c.policy {
	case types.ConflictPolicyOverwrite:
		return Resolution{Action: types.StoreActionOverwritten, DestPath: destPath}

	case types.ConflictPolicyRename:
		return Resolution{Action: types.StoreActionRenamed, DestPath: c.generateUniqueName(destPath)}

	default:
		return Resolution{Action: types.StoreActionSkipped, Skip: true}
	}
}

func (c *ConflictResolver) generateUniqueName(path string) string {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)

	for i := 1; i < 10000; i++ {
		newPath := filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
		if _, err := os.Stat(newPath); os.IsNotExist(err) {
			return newPath
		}
	}

	return path
}
