package agent

import (
	"fmt"
	"regexp"
)

// videoURLPattern matches the standard YouTube URL shapes (watch, embed,
// /v/, shorts, youtu.be) and captures the 11-character video identifier.
var videoURLPattern = regexp.MustCompile(
	`(?:https?://)?(?:www\.)?(?:youtube\.com/(?:watch\?v=|embed/|v/|shorts/)|youtu\.be/)([a-zA-Z0-9_-]{11})`)

// ExtractVideoID pulls the video identifier out of a YouTube URL. Returns
// ErrInvalidInput when no recognized shape matches.
func ExtractVideoID(url string) (string, error) {
	match := videoURLPattern.FindStringSubmatch(url)
	if match == nil {
		return "", fmt.Errorf("%w: unknown YouTube URL format: %s", ErrInvalidInput, url)
	}
	return match[1], nil
}
