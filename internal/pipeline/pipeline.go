// Package pipeline validates batches of uploaded photos against an event window.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/On-Jun9/ShutterGate/internal/compress"
	"github.com/On-Jun9/ShutterGate/internal/config"
	"github.com/On-Jun9/ShutterGate/internal/log"
	"github.com/On-Jun9/ShutterGate/internal/metadata"
	"github.com/On-Jun9/ShutterGate/pkg/types"
)

// TagExtractor reads embedded metadata from an image buffer.
type TagExtractor interface {
	Extract(data []byte) types.ExtractedTags
}

// Store receives files that passed validation.
type Store interface {
	Store(ctx context.Context, file types.AcceptedFile) error
}

type Pipeline struct {
	cfg              config.Validation
	jobs             int
	extractor        TagExtractor
	compressor       *compress.Compressor
	store            Store
	logger           *log.Logger
	now              func() time.Time
	progressCallback ProgressCallback
}

// New builds a pipeline from cfg. Extraction results are cached per cfg.CacheSize
// and cfg.CacheTTL, and event-less EXIF dates are read in the event timezone.
func New(cfg *config.Config, logger *log.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Nop()
	}

	v := cfg.Validation
	return &Pipeline{
		cfg:       v,
		jobs:      cfg.Jobs,
		extractor: metadata.NewCachedExtractor(metadata.NewWithLocation(loc), cfg.CacheSize, cfg.CacheTTL),
		compressor: compress.New(compress.StdCodec{}, compress.Options{
			InitialQuality: v.InitialQuality,
			MinimumQuality: v.MinimumQuality,
			MaxAttempts:    v.MaxCompressionAttempts,
		}),
		logger: logger,
		now:    time.Now,
	}, nil
}

func (p *Pipeline) SetProgressCallback(cb ProgressCallback) {
	p.progressCallback = cb
}

// SetStore sets the collaborator that receives accepted files.
func (p *Pipeline) SetStore(s Store) {
	p.store = s
}

func (p *Pipeline) SetCodec(codec compress.Codec) {
	p.compressor = compress.New(codec, compress.Options{
		InitialQuality: p.cfg.InitialQuality,
		MinimumQuality: p.cfg.MinimumQuality,
		MaxAttempts:    p.cfg.MaxCompressionAttempts,
	})
}

func (p *Pipeline) SetExtractor(e TagExtractor) {
	p.extractor = e
}

// SetClock overrides the source of the current instant.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

func (p *Pipeline) emit(update ProgressUpdate) {
	if p.progressCallback != nil {
		p.progressCallback(update)
	}
}

// ValidateBatch validates files concurrently and returns accepted and rejected
// files in submission order. A batch with no accepted file returns the result
// together with a *types.BatchRejectedError.
func (p *Pipeline) ValidateBatch(ctx context.Context, files []types.RawFile, window types.EventWindow, uploaderLabel string) (*types.BatchResult, error) {
	if len(files) == 0 {
		return nil, types.ErrNoFiles
	}
	if err := checkInputs(files); err != nil {
		return nil, err
	}
	if uploaderLabel == "" {
		uploaderLabel = "Anonymous"
	}

	startTime := time.Now()
	batchID := uuid.NewString()
	p.logger.Info("Starting batch", zap.String("batch_id", batchID), zap.Int("files", len(files)))
	p.emit(ProgressUpdate{Type: "status", BatchID: batchID, Message: "validating files", Total: len(files)})

	outcomes := p.runWorkers(ctx, batchID, files, window)

	result := &types.BatchResult{
		ID:       batchID,
		Accepted: []types.AcceptedFile{},
		Rejected: []types.RejectedFile{},
		Summary:  types.RunSummary{TotalFiles: len(files), StartTime: startTime},
	}

	for i, outcome := range outcomes {
		meta := outcome.meta
		result.Summary.BytesIn += meta.OriginalSizeBytes

		if !outcome.rejected() {
			accepted := acceptedFile(meta, outcome.data, uploaderLabel)
			if err := p.storeFile(ctx, accepted); err != nil {
				addError(meta, types.ErrorKindStoreFailure, err.Error())
			} else {
				result.Accepted = append(result.Accepted, accepted)
				result.Summary.Accepted++
				result.Summary.BytesOut += meta.SizeBytes
				if meta.WasCompressed {
					result.Summary.Compressed++
					compressedTotal.Inc()
				}
				filesTotal.WithLabelValues(outcomeAccepted).Inc()
				continue
			}
		}

		result.Rejected = append(result.Rejected, types.RejectedFile{
			Name:   files[i].Name,
			Reason: meta.ValidationErrors[0],
			Errors: meta.ValidationErrors,
		})
		result.Summary.Rejected++
		filesTotal.WithLabelValues(outcomeRejected).Inc()
		for _, kind := range meta.ErrorKinds {
			rejectionsTotal.WithLabelValues(string(kind)).Inc()
		}
	}

	result.Summary.EndTime = time.Now()
	result.Summary.Duration = result.Summary.EndTime.Sub(startTime)
	p.logger.Summary(result.Summary)

	p.emit(ProgressUpdate{Type: "complete", BatchID: batchID, Summary: &result.Summary})

	if result.Summary.Accepted == 0 {
		batchesTotal.WithLabelValues("rejected").Inc()
		return result, &types.BatchRejectedError{
			Reason:   result.Rejected[0].Errors[0],
			Rejected: result.Rejected,
		}
	}
	batchesTotal.WithLabelValues("accepted").Inc()
	return result, nil
}

// runWorkers validates files on a bounded pool and returns outcomes indexed by
// submission order.
func (p *Pipeline) runWorkers(ctx context.Context, batchID string, files []types.RawFile, window types.EventWindow) []fileOutcome {
	outcomes := make([]fileOutcome, len(files))
	indexChan := make(chan int, len(files))

	var (
		mu        sync.Mutex
		processed int
	)

	workers := p.jobs
	if workers < 1 {
		workers = 1
	}
	if workers > len(files) {
		workers = len(files)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexChan {
				outcome := p.validateOne(ctx, files[idx], window)
				outcomes[idx] = outcome

				mu.Lock()
				processed++
				current := processed
				mu.Unlock()

				p.logger.Progress(current, len(files), files[idx].Name)
				update := ProgressUpdate{
					Type:     "progress",
					BatchID:  batchID,
					Current:  current,
					Total:    len(files),
					Filename: files[idx].Name,
					Outcome:  outcomeAccepted,
				}
				if outcome.rejected() {
					update.Outcome = outcomeRejected
					update.Error = outcome.meta.ValidationErrors[0]
				}
				p.emit(update)
			}
		}()
	}

	for i := range files {
		indexChan <- i
	}
	close(indexChan)

	wg.Wait()
	return outcomes
}

func (p *Pipeline) validateOne(ctx context.Context, raw types.RawFile, window types.EventWindow) fileOutcome {
	if err := ctx.Err(); err != nil {
		return cancelledOutcome(raw, err)
	}

	start := time.Now()
	outcome := p.validateFile(ctx, raw, window)
	if err := ctx.Err(); err != nil {
		return cancelledOutcome(raw, err)
	}

	elapsed := time.Since(start)
	fileDuration.Observe(elapsed.Seconds())
	p.logger.LogFile(outcome.meta, elapsed)
	return outcome
}

func (p *Pipeline) storeFile(ctx context.Context, file types.AcceptedFile) error {
	if p.store == nil {
		return nil
	}
	if err := p.store.Store(ctx, file); err != nil {
		p.logger.Error("Failed to store file", err, zap.String("file", file.OriginalName))
		return fmt.Errorf("%w: %v", types.ErrStoreFailure, err)
	}
	return nil
}

func checkInputs(files []types.RawFile) error {
	for i, f := range files {
		switch {
		case f.Name == "":
			return &types.MissingInputError{Index: i, Field: "name"}
		case f.DeclaredMimeType == "":
			return &types.MissingInputError{Index: i, Field: "mimetype"}
		case f.DeclaredSizeBytes <= 0:
			return &types.MissingInputError{Index: i, Field: "size"}
		case f.Bytes == nil:
			return &types.MissingInputError{Index: i, Field: "data"}
		}
	}
	return nil
}

func acceptedFile(meta *types.FileMetadata, data []byte, uploaderLabel string) types.AcceptedFile {
	kind := types.MediaKindVideo
	if strings.HasPrefix(meta.Mimetype, "image/") {
		kind = types.MediaKindImage
	}
	return types.AcceptedFile{
		OriginalName:   meta.OriginalName,
		Mimetype:       meta.Mimetype,
		SizeBytes:      meta.SizeBytes,
		SizeMB:         meta.SizeMB(),
		Dimensions:     meta.Dimensions,
		MediaKind:      kind,
		UploaderLabel:  uploaderLabel,
		CreatedAt:      *meta.CreatedAt,
		CreationSource: meta.CreationSource(),
		CameraMake:     meta.CameraMake,
		CameraModel:    meta.CameraModel,
		Warnings:       meta.ValidationWarnings,
		Metadata:       meta,
		Data:           data,
	}
}

// IsBatchRejected reports whether err means no file in the batch was accepted.
func IsBatchRejected(err error) bool {
	return errors.Is(err, types.ErrNoFilesAccepted)
}
