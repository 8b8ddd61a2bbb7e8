package agent

import (
	"context"
	"time"

	"github.com/dyluth/kudos/internal/workflow"
)

// Workflow type names. Handlers are registered under these names by the
// gatherer and screenshot packages; the agent only ever launches and
// signals them.
const (
	// WorkflowYouTubeGather ingests new comments for one video.
	WorkflowYouTubeGather = "youtube-gather"

	// WorkflowScreenshotParse classifies an uploaded screenshot and waits
	// for human approval.
	WorkflowScreenshotParse = "screenshot-parse"
)

// SignalApproval is the signal name a screenshot-parse instance parks on.
const SignalApproval = "approval"

// YouTubeGatherParams are the launch parameters for a youtube-gather run.
type YouTubeGatherParams struct {
	Board   string    `json:"board"`
	VideoID string    `json:"videoId"`
	Since   time.Time `json:"since"`
}

// ScreenshotParseParams are the launch parameters for a screenshot-parse run.
type ScreenshotParseParams struct {
	Board    string `json:"board"`
	FileName string `json:"fileName"`
}

// ApprovalSignal is the payload of a human approve/reject decision.
type ApprovalSignal struct {
	Approved bool `json:"approved"`
}

// Launcher starts and signals durable workflow instances. Implemented by
// workflow.Engine.
type Launcher interface {
	Launch(ctx context.Context, workflowType string, params any) (string, error)
	Signal(ctx context.Context, workflowID, signal string, payload any) error
}

// BlobStore persists screenshot bytes under caller-chosen names.
// Implemented by blob.Store.
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte) error
}

// isWorkflowNotFound reports whether an error from the Launcher means the
// target instance does not exist.
func isWorkflowNotFound(err error) bool {
	return workflow.IsNotFound(err)
}
