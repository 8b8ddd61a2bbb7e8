package board

import (
	"fmt"
	"strings"
	"time"
)

// LatestLimit is the maximum number of kudos carried in a State snapshot.
// The store keeps the full history; the snapshot is a bounded prefix of it.
const LatestLimit = 30

// Kudo is a single compliment on a board.
type Kudo struct {
	ID       int64  `json:"id"`                 // assigned by the store on insert
	Text     string `json:"text"`               // the compliment itself, never empty
	Author   string `json:"author"`             // display name, may be classifier-chosen
	Hearted  int    `json:"hearted"`            // heart counter, only ever incremented
	URL      string `json:"url,omitempty"`      // optional link (video or screenshot)
	URLTitle string `json:"urlTitle,omitempty"` // label for URL, required when URL is set
}

// Validate checks that a kudo is acceptable for insertion.
// The ID is assigned by the store, so zero is fine here.
func (k *Kudo) Validate() error {
	if strings.TrimSpace(k.Text) == "" {
		return fmt.Errorf("kudo text cannot be empty")
	}
	if strings.TrimSpace(k.Author) == "" {
		return fmt.Errorf("kudo author cannot be empty")
	}
	if k.Hearted < 0 {
		return fmt.Errorf("hearted count cannot be negative, got %d", k.Hearted)
	}
	if k.URL != "" && k.URLTitle == "" {
		return fmt.Errorf("urlTitle is required when url is set")
	}
	return nil
}

// YouTubeWatch is one monitored video. LastCheckedAt is the ingestion
// watermark and only ever advances.
type YouTubeWatch struct {
	VideoID       string    `json:"videoId"`
	LastCheckedAt time.Time `json:"lastCheckedAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PendingVerification is a classified screenshot waiting for a human
// decision. It exists only between classification and the decision (or the
// wait timing out); WorkflowID identifies the suspended workflow instance
// that the decision must be signalled to.
type PendingVerification struct {
	WorkflowID   string `json:"workflowId"`
	Compliment   string `json:"compliment"`
	Complimenter string `json:"complimenter"`
	Screenshot   string `json:"screenshot"` // stored blob name, served at /screenshots/{name}
}

// Validate checks that a pending verification can be recorded on a board.
func (v *PendingVerification) Validate() error {
	if v.WorkflowID == "" {
		return fmt.Errorf("workflow ID cannot be empty")
	}
	if v.Screenshot == "" {
		return fmt.Errorf("screenshot reference cannot be empty")
	}
	return nil
}

// State is the whole-board snapshot pushed to observers. It is a read
// cache of the store, never the source of truth. Latest is capped at
// LatestLimit entries, newest first.
type State struct {
	Latest            []Kudo                `json:"latest"`
	YouTubeWatchCount int                   `json:"youtubeVideoWatchCount"`
	Verifications     []PendingVerification `json:"verifications"`
}

// Clone returns a deep copy of the state so a snapshot handed to an
// observer can never alias the board's own slices.
func (s *State) Clone() State {
	out := State{
		YouTubeWatchCount: s.YouTubeWatchCount,
	}
	if s.Latest != nil {
		out.Latest = make([]Kudo, len(s.Latest))
		copy(out.Latest, s.Latest)
	}
	if s.Verifications != nil {
		out.Verifications = make([]PendingVerification, len(s.Verifications))
		copy(out.Verifications, s.Verifications)
	}
	return out
}
