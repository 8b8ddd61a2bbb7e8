// Package classifier wraps the external AI capability that decides whether
// a piece of text or a screenshot is a compliment, and that synthesizes new
// compliments from existing kudos. The model is advisory: callers treat a
// malformed or unparseable response as "not a compliment" rather than an
// error, because a human reviews screenshot verdicts anyway.
package classifier

import "context"

// CommentVerdict is the structured result for a YouTube comment.
type CommentVerdict struct {
	IsCompliment bool   `json:"isCompliment"`
	Compliment   string `json:"compliment"`
}

// ScreenshotVerdict is the structured result for a screenshot image.
type ScreenshotVerdict struct {
	IsCompliment bool   `json:"isCompliment"`
	Compliment   string `json:"compliment"`
	Complimenter string `json:"complimenter"`
}

// Classifier is the compliment classification capability.
type Classifier interface {
	// ClassifyComment decides whether a YouTube comment is a compliment to
	// the board owner and, when it is, rewrites it in the second person.
	ClassifyComment(ctx context.Context, owner, comment string) (CommentVerdict, error)

	// ClassifyScreenshot extracts a compliment and its author from an
	// uploaded screenshot.
	ClassifyScreenshot(ctx context.Context, image []byte, mimeType string) (ScreenshotVerdict, error)

	// GenerateCompliment synthesizes one second-person compliment sentence
	// from a sample of existing kudo texts.
	GenerateCompliment(ctx context.Context, kudoTexts []string) (string, error)
}
