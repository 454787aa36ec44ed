package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/On-Jun9/ShutterGate/pkg/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	mu      sync.Mutex
	zap     *zap.Logger
	console io.Writer
	file    *os.File
}

// New writes structured entries to logFilePath and run summaries to stdout.
func New(logFilePath string, logJSON bool, level string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	l := NewWithWriter(file, os.Stdout, logJSON, level)
	l.file = file
	return l, nil
}

// NewWithWriter writes structured entries to w and run summaries to console.
func NewWithWriter(w, console io.Writer, logJSON bool, level string) *Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	if logJSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.NewAtomicLevelAt(lvl))
	return &Logger{zap: zap.New(core), console: console}
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop(), console: io.Discard}
}

func (l *Logger) Close() error {
	_ = l.zap.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Zap exposes the underlying zap logger for components that log with fields.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, fields...)
}

func (l *Logger) Error(msg string, err error, fields ...zap.Field) {
	l.zap.Error(msg, append(fields, zap.Error(err))...)
}

// LogFile records the validation outcome of one file.
func (l *Logger) LogFile(meta *types.FileMetadata, duration time.Duration) {
	fields := []zap.Field{
		zap.String("file", meta.OriginalName),
		zap.String("mimetype", meta.Mimetype),
		zap.Int64("size_bytes", meta.SizeBytes),
		zap.Bool("compressed", meta.WasCompressed),
		zap.String("creation_source", string(meta.CreationSource())),
		zap.Duration("duration", duration),
	}
	if meta.CreatedAt != nil {
		fields = append(fields, zap.Time("created_at", *meta.CreatedAt))
	}
	if meta.Provenance != nil {
		fields = append(fields,
			zap.String("image_source", string(meta.Provenance.ImageSource)),
			zap.String("confidence", string(meta.Provenance.Confidence)),
		)
	}
	if len(meta.ValidationWarnings) > 0 {
		fields = append(fields, zap.Strings("warnings", meta.ValidationWarnings))
	}

	if len(meta.ValidationErrors) > 0 {
		l.zap.Warn("rejected: "+meta.OriginalName, append(fields, zap.Strings("errors", meta.ValidationErrors))...)
		return
	}
	l.zap.Info("accepted: "+meta.OriginalName, fields...)
}

func (l *Logger) Summary(summary types.RunSummary) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.console, "\n=== ShutterGate Summary ===")
	fmt.Fprintf(l.console, "Total files:    %d\n", summary.TotalFiles)
	fmt.Fprintf(l.console, "Accepted:       %d\n", summary.Accepted)
	fmt.Fprintf(l.console, "Rejected:       %d\n", summary.Rejected)
	fmt.Fprintf(l.console, "Compressed:     %d\n", summary.Compressed)
	fmt.Fprintf(l.console, "Duration:       %s\n", summary.Duration.Round(time.Millisecond))
	if summary.BytesIn > 0 {
		fmt.Fprintf(l.console, "Bytes in:       %.2f MB\n", float64(summary.BytesIn)/1024/1024)
		fmt.Fprintf(l.console, "Bytes out:      %.2f MB\n", float64(summary.BytesOut)/1024/1024)
	}
	fmt.Fprintln(l.console, "===========================")

	l.zap.Info("batch complete",
		zap.Int("total", summary.TotalFiles),
		zap.Int("accepted", summary.Accepted),
		zap.Int("rejected", summary.Rejected),
		zap.Int("compressed", summary.Compressed),
		zap.Duration("duration", summary.Duration),
	)
}

func (l *Logger) Progress(current, total int, filename string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "\r[%d/%d] %s", current, total, filename)
}
