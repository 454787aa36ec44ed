// Package sink writes accepted files to a local destination directory.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/On-Jun9/ShutterGate/internal/log"
	"github.com/On-Jun9/ShutterGate/internal/planner"
	"github.com/On-Jun9/ShutterGate/internal/policy"
	"github.com/On-Jun9/ShutterGate/internal/state"
	"github.com/On-Jun9/ShutterGate/internal/verify"
	"github.com/On-Jun9/ShutterGate/pkg/types"
)

var storedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shuttergate_sink_files_total",
	Help: "Accepted files handed to the local sink, by action.",
}, []string{"action"})

type Options struct {
	EventName      string
	DryRun         bool
	HashVerify     bool
	DedupMethod    types.DedupMethod
	ConflictPolicy types.ConflictPolicy
}

// LocalSink stores accepted files under a destination root. Content already
// recorded in the destination's state file is never written twice.
type LocalSink struct {
	mu       sync.Mutex
	planner  *planner.Planner
	dedup    *policy.DedupChecker
	conflict *policy.ConflictResolver
	verifier *verify.Verifier
	state    *state.State
	logger   *log.Logger
	dryRun   bool
	results  []types.StoreResult
}

func New(destRoot string, opts Options, logger *log.Logger) (*LocalSink, error) {
	if destRoot == "" {
		return nil, fmt.Errorf("destination directory is required")
	}
	st, err := state.Load(filepath.Join(destRoot, state.FileName))
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	if logger == nil {
		logger = log.Nop()
	}
	if opts.DedupMethod == "" {
		opts.DedupMethod = types.DedupMethodNameSize
	}
	if opts.ConflictPolicy == "" {
		opts.ConflictPolicy = types.ConflictPolicyRename
	}

	return &LocalSink{
		planner:  planner.New(destRoot, opts.EventName),
		dedup:    policy.NewDedupChecker(opts.DedupMethod),
		conflict: policy.NewConflictResolver(opts.ConflictPolicy),
		verifier: verify.New(opts.HashVerify),
		state:    st,
		logger:   logger,
		dryRun:   opts.DryRun,
	}, nil
}

// Store writes file to its planned path. Duplicates and conflicts resolved by the
// skip policy are recorded but are not errors.
func (s *LocalSink) Store(ctx context.Context, file types.AcceptedFile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.storeOne(file)
	s.results = append(s.results, result)
	storedTotal.WithLabelValues(string(result.Action)).Inc()

	if result.Action == types.StoreActionFailed {
		return fmt.Errorf("%s: %s", file.OriginalName, result.Error)
	}
	s.logger.Info("stored file",
		zap.String("file", file.OriginalName),
		zap.String("dest", result.DestPath),
		zap.String("action", string(result.Action)),
	)
	return nil
}

func (s *LocalSink) storeOne(file types.AcceptedFile) types.StoreResult {
	result := types.StoreResult{Name: file.OriginalName}
	size := int64(len(file.Data))
	hash := policy.HexDigest(file.Data)

	if prev, ok := s.state.Lookup(hash, size); ok {
		result.Action = types.StoreActionSkipped
		result.DestPath = prev.DestPath
		return result
	}

	destPath := s.planner.Plan(file)
	result.DestPath = destPath

	dup, err := s.dedup.IsDuplicate(file.Data, destPath)
	if err != nil {
		return failed(result, err)
	}
	if dup {
		result.Action = types.StoreActionSkipped
		s.record(file, hash, destPath)
		return result
	}

	res := s.conflict.Resolve(destPath)
	if res.Skip {
		result.Action = res.Action
		return result
	}
	result.DestPath = res.DestPath

	if s.dryRun {
		result.Action = types.StoreActionDryRun
		return result
	}

	if err := writeAtomic(file, res.DestPath); err != nil {
		return failed(result, err)
	}
	if err := s.verifier.Verify(file.Data, res.DestPath); err != nil {
		os.Remove(res.DestPath)
		return failed(result, fmt.Errorf("verification failed: %w", err))
	}

	result.Action = res.Action
	s.record(file, hash, res.DestPath)
	return result
}

func (s *LocalSink) record(file types.AcceptedFile, hash, destPath string) {
	s.state.MarkStored(state.StoredFile{
		Name:     file.OriginalName,
		Size:     int64(len(file.Data)),
		Hash:     hash,
		DestPath: destPath,
	})
}

func failed(result types.StoreResult, err error) types.StoreResult {
	result.Action = types.StoreActionFailed
	result.Error = err.Error()
	return result
}

// writeAtomic writes to a .part file and renames it into place. The file's
// modification time is set to its creation time.
func writeAtomic(file types.AcceptedFile, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return err
	}

	partPath := destPath + ".part"
	if err := os.WriteFile(partPath, file.Data, 0644); err != nil {
		os.Remove(partPath)
		return err
	}

	if !file.CreatedAt.IsZero() {
		os.Chtimes(partPath, file.CreatedAt, file.CreatedAt)
	}

	if err := os.Rename(partPath, destPath); err != nil {
		os.Remove(partPath)
		return err
	}
	return nil
}

// Results returns what happened to every file stored so far, in call order.
func (s *LocalSink) Results() []types.StoreResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.StoreResult, len(s.results))
	copy(out, s.results)
	return out
}

// Close persists the state file. Dry runs leave it untouched.
func (s *LocalSink) Close() error {
	if s.dryRun {
		return nil
	}
	return s.state.Save()
}
