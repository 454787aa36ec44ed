package pipeline

import "github.com/On-Jun9/ShutterGate/pkg/types"

type ProgressCallback func(update ProgressUpdate)

type ProgressUpdate struct {
	Type     string            `json:"type"`
	BatchID  string            `json:"batch_id,omitempty"`
	Message  string            `json:"message,omitempty"`
	Current  int               `json:"current,omitempty"`
	Total    int               `json:"total,omitempty"`
	Filename string            `json:"filename,omitempty"`
	Outcome  string            `json:"outcome,omitempty"`
	Summary  *types.RunSummary `json:"summary,omitempty"`
	Error    string            `json:"error,omitempty"`
}

const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
)
