// Package screenshot implements the verification workflow for uploaded
// screenshots: classify the image, surface the result as a pending
// verification on the board, park until a human approves or rejects it,
// and append the kudo only on approval.
//
// The pending entry is recorded through a direct idempotent callback rather
// than a recorded step, so a resumed instance re-surfaces its verification
// instead of replaying past it, and it is removed on every terminal outcome.
package screenshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dyluth/kudos/internal/agent"
	"github.com/dyluth/kudos/internal/blob"
	"github.com/dyluth/kudos/internal/classifier"
	"github.com/dyluth/kudos/internal/workflow"
	"github.com/dyluth/kudos/pkg/board"
)

// DefaultApprovalTimeout bounds how long an instance parks waiting for the
// human decision before it gives up without creating a kudo.
const DefaultApprovalTimeout = time.Minute

// Parser holds the collaborators a verification run needs.
type Parser struct {
	boards          *agent.Registry
	blobs           *blob.Store
	classifier      classifier.Classifier
	approvalTimeout time.Duration
}

// New creates a Parser. A non-positive approvalTimeout falls back to
// DefaultApprovalTimeout.
func New(boards *agent.Registry, blobs *blob.Store, cls classifier.Classifier, approvalTimeout time.Duration) *Parser {
	if approvalTimeout <= 0 {
		approvalTimeout = DefaultApprovalTimeout
	}
	return &Parser{
		boards:          boards,
		blobs:           blobs,
		classifier:      cls,
		approvalTimeout: approvalTimeout,
	}
}

// Register installs the verification handler on the workflow engine.
func (p *Parser) Register(engine *workflow.Engine) {
	engine.RegisterHandler(agent.WorkflowScreenshotParse, p.run)
}

func (p *Parser) run(ctx context.Context, run *workflow.Run, rawParams json.RawMessage) error {
	var params agent.ScreenshotParseParams
	if err := json.Unmarshal(rawParams, &params); err != nil {
		return fmt.Errorf("decode verification params: %w", err)
	}

	a, err := p.boards.Get(params.Board)
	if err != nil {
		return fmt.Errorf("resolve board %s: %w", params.Board, err)
	}

	var image []byte
	err = run.Step(ctx, "load-screenshot", &image, func() (any, error) {
		return p.blobs.Get(ctx, params.FileName)
	})
	if err != nil {
		if blob.IsNotFound(err) {
			log.Printf("[Screenshot] Blob %s is gone, abandoning verification %s", params.FileName, run.ID())
			return nil
		}
		return err
	}

	// The classifier is advisory: the human sees its extraction alongside
	// the image and makes the real call, so a failed or unparseable
	// classification still goes to verification with empty fields.
	var verdict classifier.ScreenshotVerdict
	err = run.Step(ctx, "classify", &verdict, func() (any, error) {
		v, err := p.classifier.ClassifyScreenshot(ctx, image, "image/png")
		if err != nil {
			log.Printf("[Screenshot] Failed to classify %s: %v", params.FileName, err)
			return classifier.ScreenshotVerdict{}, nil
		}
		return v, nil
	})
	if err != nil {
		return err
	}

	pending := board.PendingVerification{
		WorkflowID:   run.ID(),
		Compliment:   verdict.Compliment,
		Complimenter: verdict.Complimenter,
		Screenshot:   params.FileName,
	}
	if err := a.RecordPendingVerification(pending); err != nil {
		return fmt.Errorf("record pending verification: %w", err)
	}
	// Every terminal outcome clears the pending entry: approved, rejected,
	// timed out, or failed.
	defer a.RemovePendingVerification(run.ID())

	var decision agent.ApprovalSignal
	if err := run.WaitForSignal(ctx, agent.SignalApproval, p.approvalTimeout, &decision); err != nil {
		if errors.Is(err, workflow.ErrSignalTimeout) {
			log.Printf("[Screenshot] Verification %s timed out without a decision", run.ID())
		} else {
			log.Printf("[Screenshot] Verification %s failed waiting for decision: %v", run.ID(), err)
		}
		return nil
	}

	if !decision.Approved {
		log.Printf("[Screenshot] Verification %s rejected", run.ID())
		return nil
	}

	return run.Step(ctx, "create-kudo", nil, func() (any, error) {
		_, err := a.AddKudo(board.Kudo{
			Text:     verdict.Compliment,
			Author:   verdict.Complimenter,
			URL:      "/screenshots/" + params.FileName,
			URLTitle: "Screenshot",
		})
		if err != nil {
			return nil, err
		}
		return true, nil
	})
}
