package compress

import (
	"context"
	"fmt"

	"github.com/On-Jun9/ShutterGate/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// noopQuality is reported when the input is already within budget.
const noopQuality = 100

var attemptsHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "shuttergate_compression_attempts",
	Help:    "Number of encode attempts per compressed image.",
	Buckets: prometheus.LinearBuckets(1, 1, 10),
})

// Options bounds the compression loop.
type Options struct {
	InitialQuality int
	MinimumQuality int
	MaxAttempts    int
}

type Compressor struct {
	codec Codec
	opts  Options
}

func New(codec Codec, opts Options) *Compressor {
	if codec == nil {
		codec = StdCodec{}
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Compressor{codec: codec, opts: opts}
}

// Compress re-encodes data until it fits targetSizeBytes, the quality floor is
// reached, or the attempt ceiling is hit. Data already within budget is returned
// unchanged. The returned buffer is never larger than data.
func (c *Compressor) Compress(ctx context.Context, data []byte, targetSizeBytes int64) (types.CompressionResult, error) {
	if int64(len(data)) <= targetSizeBytes {
		return c.result(data, noopQuality, 0, false)
	}

	quality := c.opts.InitialQuality
	var best []byte
	bestQuality := quality
	attempts := 0

	for attempts < c.opts.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return types.CompressionResult{}, err
		}

		encoded, err := c.codec.Encode(data, quality)
		if err != nil {
			return types.CompressionResult{}, fmt.Errorf("%w: %v", types.ErrCompressionFailure, err)
		}
		attempts++

		if best == nil || len(encoded) < len(best) {
			best = encoded
			bestQuality = quality
		}

		size := int64(len(encoded))
		if size <= targetSizeBytes || quality <= c.opts.MinimumQuality {
			break
		}
		quality = max(int(int64(quality)*targetSizeBytes/size), c.opts.MinimumQuality)
	}
	attemptsHistogram.Observe(float64(attempts))

	if len(best) >= len(data) {
		return c.result(data, noopQuality, attempts, false)
	}
	return c.result(best, bestQuality, attempts, true)
}

func (c *Compressor) result(buf []byte, quality, attempts int, encoded bool) (types.CompressionResult, error) {
	res := types.CompressionResult{
		Buffer:         buf,
		FinalQuality:   quality,
		FinalSizeBytes: int64(len(buf)),
		Attempts:       attempts,
	}

	info, err := c.codec.Probe(buf)
	if err == nil {
		res.FinalDimensions = types.Dimensions{Width: info.Width, Height: info.Height}
		res.Format = info.Format
	} else if encoded {
		return types.CompressionResult{}, fmt.Errorf("%w: %v", types.ErrCompressionFailure, err)
	}
	return res, nil
}

// Probe reports the dimensions and format of data using the configured codec.
func (c *Compressor) Probe(data []byte) (ImageInfo, error) {
	return c.codec.Probe(data)
}
