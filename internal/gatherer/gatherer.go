// Package gatherer implements the YouTube ingestion workflow: fetch the
// comments published since a video's watermark, classify each top-level
// comment, append the qualifying ones to the board as kudos, and advance
// the watermark exactly once per run.
//
// Every step is recorded in the workflow step log, so a run that is
// interrupted and resumed never classifies a comment twice or appends the
// same kudo twice.
package gatherer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/dyluth/kudos/internal/agent"
	"github.com/dyluth/kudos/internal/classifier"
	"github.com/dyluth/kudos/internal/workflow"
	"github.com/dyluth/kudos/internal/youtube"
	"github.com/dyluth/kudos/pkg/board"
)

// fallbackTitle is used when the video title cannot be fetched. A title
// failure degrades the link label, never the run.
const fallbackTitle = "YouTube Vid"

// Gatherer holds the collaborators an ingestion run needs.
type Gatherer struct {
	boards     *agent.Registry
	youtube    *youtube.Client
	classifier classifier.Classifier
}

// New creates a Gatherer.
func New(boards *agent.Registry, yt *youtube.Client, cls classifier.Classifier) *Gatherer {
	return &Gatherer{boards: boards, youtube: yt, classifier: cls}
}

// Register installs the ingestion handler on the workflow engine.
func (g *Gatherer) Register(engine *workflow.Engine) {
	engine.RegisterHandler(agent.WorkflowYouTubeGather, g.run)
}

func (g *Gatherer) run(ctx context.Context, run *workflow.Run, rawParams json.RawMessage) error {
	var params agent.YouTubeGatherParams
	if err := json.Unmarshal(rawParams, &params); err != nil {
		return fmt.Errorf("decode ingestion params: %w", err)
	}

	a, err := g.boards.Get(params.Board)
	if err != nil {
		return fmt.Errorf("resolve board %s: %w", params.Board, err)
	}

	// Best effort, once per run. A missing title must not abort ingestion.
	var title string
	err = run.Step(ctx, "video-title", &title, func() (any, error) {
		t, err := g.youtube.VideoTitle(ctx, params.VideoID)
		if err != nil {
			log.Printf("[Gatherer] Failed to fetch title for %s: %v", params.VideoID, err)
			return fallbackTitle, nil
		}
		return t, nil
	})
	if err != nil {
		return err
	}

	// A page failure inside CommentsSince truncates to what was already
	// collected, so this step still records a usable result.
	var comments []youtube.Comment
	err = run.Step(ctx, "fetch-comments", &comments, func() (any, error) {
		return g.youtube.CommentsSince(ctx, params.VideoID, params.Since)
	})
	if err != nil {
		return err
	}

	for _, comment := range comments {
		var verdict classifier.CommentVerdict
		err := run.Step(ctx, "classify:"+comment.ID, &verdict, func() (any, error) {
			v, err := g.classifier.ClassifyComment(ctx, a.Name(), comment.Text)
			if err != nil {
				// Skip-and-continue: one bad classification must not stall
				// the rest of the run or the watermark.
				log.Printf("[Gatherer] Failed to classify comment %s: %v", comment.ID, err)
				return classifier.CommentVerdict{}, nil
			}
			return v, nil
		})
		if err != nil {
			log.Printf("[Gatherer] Skipping comment %s: %v", comment.ID, err)
			continue
		}
		if !verdict.IsCompliment {
			continue
		}

		err = run.Step(ctx, "append:"+comment.ID, nil, func() (any, error) {
			_, err := a.AddKudo(board.Kudo{
				Text:     verdict.Compliment,
				Author:   comment.Author,
				URL:      "https://youtu.be/" + params.VideoID,
				URLTitle: title,
			})
			if err != nil {
				return nil, err
			}
			return true, nil
		})
		if err != nil {
			log.Printf("[Gatherer] Failed to append kudo for comment %s: %v", comment.ID, err)
			continue
		}
	}

	// Exactly once per run, whether or not anything qualified, so the next
	// run starts from "now".
	return run.Step(ctx, "touch-watch", nil, func() (any, error) {
		if err := a.TrackYouTubeChecked(params.VideoID); err != nil {
			return nil, err
		}
		return true, nil
	})
}
