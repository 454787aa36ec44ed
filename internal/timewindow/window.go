package timewindow

import (
	"fmt"
	"strings"
	"time"

	"github.com/On-Jun9/ShutterGate/pkg/types"
)

const minutesPerDay = 24 * 60

// Buffered widens the event window by bufferMinutes on both sides.
func Buffered(window types.EventWindow, bufferMinutes int) (time.Time, time.Time) {
	buffer := time.Duration(bufferMinutes) * time.Minute
	return window.Start.Add(-buffer), window.End.Add(buffer)
}

// ValidateCreationTime checks createdAt against the buffered window. Both
// boundaries are inclusive.
func ValidateCreationTime(createdAt time.Time, window types.EventWindow, bufferMinutes int) types.TimeValidationResult {
	start, end := Buffered(window, bufferMinutes)

	result := types.TimeValidationResult{
		IsValid:             !createdAt.Before(start) && !createdAt.After(end),
		CreatedAt:           createdAt,
		BufferedWindowStart: start,
		BufferedWindowEnd:   end,
	}
	if result.IsValid {
		result.Message = "File creation time is valid"
		return result
	}

	var offset time.Duration
	direction := types.OffsetAfter
	if createdAt.Before(start) {
		offset = start.Sub(createdAt)
		direction = types.OffsetBefore
	} else {
		offset = createdAt.Sub(end)
	}

	minutes := int(offset / time.Minute)
	result.Offset = &types.TimeOffset{
		Days:      minutes / minutesPerDay,
		Hours:     (minutes % minutesPerDay) / 60,
		Minutes:   minutes % 60,
		Direction: direction,
	}
	result.Message = offsetMessage(*result.Offset)
	return result
}

// ValidateFileCreationTime checks a file's resolved creation time and names the
// source it was detected from in the result.
func ValidateFileCreationTime(meta *types.FileMetadata, window types.EventWindow, bufferMinutes int) types.TimeValidationResult {
	var createdAt time.Time
	if meta.CreatedAt != nil {
		createdAt = *meta.CreatedAt
	}

	result := ValidateCreationTime(createdAt, window, bufferMinutes)
	result.CreationSource = meta.CreationSource()
	if result.IsValid {
		result.Message = fmt.Sprintf("File creation time is valid (detected via %s)", result.CreationSource)
	}
	return result
}

func offsetMessage(o types.TimeOffset) string {
	var b strings.Builder
	b.WriteString("File was created ")
	if o.Days > 0 {
		fmt.Fprintf(&b, "%d day(s) ", o.Days)
	}
	if o.Hours > 0 {
		fmt.Fprintf(&b, "%d hour(s) ", o.Hours)
	}
	fmt.Fprintf(&b, "%d minute(s) %s the allowed time window", o.Minutes, o.Direction)
	return b.String()
}
