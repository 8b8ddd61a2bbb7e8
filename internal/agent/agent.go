// Package agent implements the per-board orchestrator. One Agent owns one
// board: its SQLite store, the in-memory State projection pushed to
// observers, and the hooks the background workflows call back into.
//
// Every mutating operation on a board is serialized behind the agent's
// mutex, so a board behaves as a single-threaded actor: store write,
// projection update and broadcast happen as one unit, or not at all.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dyluth/kudos/internal/classifier"
	"github.com/dyluth/kudos/internal/speech"
	"github.com/dyluth/kudos/internal/store"
	"github.com/dyluth/kudos/pkg/board"
)

var (
	// ErrInvalidInput marks malformed caller input (empty kudo text,
	// unrecognized video URL). Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks references to kudos or workflow instances that do
	// not exist.
	ErrNotFound = errors.New("not found")
)

// Agent is the stateful orchestrator for one board.
type Agent struct {
	name  string
	store *store.Store
	deps  Deps

	mu        sync.Mutex
	state     board.State
	observers map[chan board.State]struct{}
}

// Deps are the external collaborators an agent needs. All background work
// goes through Launcher; the agent never runs a workflow body itself.
type Deps struct {
	Launcher   Launcher
	Classifier classifier.Classifier
	Speech     speech.Synthesizer
	Blobs      BlobStore

	// BackfillSince is the watermark used for a first-time video
	// registration, so history is ingested once.
	BackfillSince time.Time
}

// newAgent opens an agent over an already-open store and primes the
// projection from it.
func newAgent(name string, st *store.Store, deps Deps) (*Agent, error) {
	a := &Agent{
		name:      name,
		store:     st,
		deps:      deps,
		observers: make(map[chan board.State]struct{}),
	}

	latest, err := st.LatestKudos(board.LatestLimit)
	if err != nil {
		return nil, fmt.Errorf("prime latest kudos: %w", err)
	}
	watchCount, err := st.WatchCount()
	if err != nil {
		return nil, fmt.Errorf("prime watch count: %w", err)
	}

	a.state = board.State{
		Latest:            latest,
		YouTubeWatchCount: watchCount,
		Verifications:     []board.PendingVerification{},
	}
	return a, nil
}

// Name returns the board identity this agent owns.
func (a *Agent) Name() string {
	return a.name
}

// State returns a snapshot of the current projection.
func (a *Agent) State() board.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Clone()
}

// AddKudo validates and stores a kudo, prepends it to the projection and
// broadcasts. Returns the stored kudo with its assigned ID. Repeated
// identical submissions create independent kudos.
func (a *Agent) AddKudo(k board.Kudo) (board.Kudo, error) {
	if err := k.Validate(); err != nil {
		return board.Kudo{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	stored, err := a.store.InsertKudo(k)
	if err != nil {
		return board.Kudo{}, err
	}

	latest := append([]board.Kudo{stored}, a.state.Latest...)
	if len(latest) > board.LatestLimit {
		latest = latest[:board.LatestLimit]
	}
	a.state.Latest = latest
	a.broadcastLocked()
	return stored, nil
}

// HeartKudo increments the heart counter of a kudo and returns the new
// count. The projection entry is updated only if the kudo is still in
// Latest; the store always reflects the increment.
func (a *Agent) HeartKudo(id int64) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	count, err := a.store.IncrementHeart(id)
	if store.IsNotFound(err) {
		return 0, fmt.Errorf("%w: kudo %d", ErrNotFound, id)
	}
	if err != nil {
		return 0, err
	}

	for i := range a.state.Latest {
		if a.state.Latest[i].ID == id {
			a.state.Latest[i].Hearted = count
			break
		}
	}
	a.broadcastLocked()
	return count, nil
}

// AddYouTubeVideo extracts the video identifier from a YouTube URL and
// registers it for monitoring.
func (a *Agent) AddYouTubeVideo(ctx context.Context, url string) error {
	videoID, err := ExtractVideoID(url)
	if err != nil {
		return err
	}
	return a.RegisterWatch(ctx, videoID)
}

// RegisterWatch idempotently registers a video for monitoring and refreshes
// the watch count. First-time registrations kick off a backfill ingestion
// run; re-registrations do not.
func (a *Agent) RegisterWatch(ctx context.Context, videoID string) error {
	a.mu.Lock()
	created, err := a.store.UpsertWatch(videoID)
	if err != nil {
		a.mu.Unlock()
		return err
	}

	count, err := a.store.WatchCount()
	if err != nil {
		a.mu.Unlock()
		return err
	}
	a.state.YouTubeWatchCount = count
	a.broadcastLocked()
	a.mu.Unlock()

	if !created {
		return nil
	}

	_, err = a.deps.Launcher.Launch(ctx, WorkflowYouTubeGather, YouTubeGatherParams{
		Board:   a.name,
		VideoID: videoID,
		Since:   a.deps.BackfillSince,
	})
	if err != nil {
		return fmt.Errorf("launch backfill ingestion for %s: %w", videoID, err)
	}
	return nil
}

// Watches lists the monitored videos with their watermarks.
func (a *Agent) Watches() ([]board.YouTubeWatch, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.ListWatches()
}

// CheckAllWatches launches one ingestion run per monitored video, each
// starting from that video's current watermark. Called by the hourly
// scheduler.
func (a *Agent) CheckAllWatches(ctx context.Context) error {
	watches, err := a.Watches()
	if err != nil {
		return err
	}

	for _, w := range watches {
		since := w.LastCheckedAt
		if since.IsZero() {
			since = a.deps.BackfillSince
		}
		_, err := a.deps.Launcher.Launch(ctx, WorkflowYouTubeGather, YouTubeGatherParams{
			Board:   a.name,
			VideoID: w.VideoID,
			Since:   since,
		})
		if err != nil {
			log.Printf("[Agent %s] Failed to launch ingestion for %s: %v", a.name, w.VideoID, err)
		}
	}
	return nil
}

// TrackYouTubeChecked advances the watermark for a video. Called back by
// the ingestion workflow exactly once at the end of every run.
func (a *Agent) TrackYouTubeChecked(videoID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.TouchWatch(videoID)
}

// GenerateCompliment samples up to three kudo texts at random and asks the
// classifier to synthesize one fresh compliment. A board with no kudos
// forwards whatever the model makes of an empty list.
func (a *Agent) GenerateCompliment(ctx context.Context) (string, error) {
	a.mu.Lock()
	texts, err := a.store.RandomKudoTexts(3)
	a.mu.Unlock()
	if err != nil {
		return "", err
	}
	return a.deps.Classifier.GenerateCompliment(ctx, texts)
}

// Speak converts text to audio. No caching.
func (a *Agent) Speak(ctx context.Context, text string) ([]byte, error) {
	return a.deps.Speech.Synthesize(ctx, text)
}

// SpokenCompliment generates a compliment and speaks it.
func (a *Agent) SpokenCompliment(ctx context.Context) ([]byte, error) {
	compliment, err := a.GenerateCompliment(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("[Agent %s] Generated compliment: %s", a.name, compliment)
	return a.Speak(ctx, compliment)
}

// AddScreenshot persists an uploaded image and starts the verification
// workflow. The blob name is generated before the write so a retried
// persist reuses the same object instead of creating another. Returns the
// stored name; verification completes asynchronously.
func (a *Agent) AddScreenshot(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: screenshot is empty", ErrInvalidInput)
	}

	fileName := uuid.New().String() + ".png"
	if err := a.deps.Blobs.Put(ctx, fileName, data); err != nil {
		return "", fmt.Errorf("store screenshot: %w", err)
	}

	_, err := a.deps.Launcher.Launch(ctx, WorkflowScreenshotParse, ScreenshotParseParams{
		Board:    a.name,
		FileName: fileName,
	})
	if err != nil {
		return "", fmt.Errorf("launch screenshot verification: %w", err)
	}
	return fileName, nil
}

// RecordPendingVerification appends a verification to the projection's
// pending list and broadcasts. Idempotent by workflow ID, so a resumed
// workflow re-recording its verification is a no-op.
func (a *Agent) RecordPendingVerification(v board.PendingVerification) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Verifications == nil {
		a.state.Verifications = []board.PendingVerification{}
	}
	for _, existing := range a.state.Verifications {
		if existing.WorkflowID == v.WorkflowID {
			return nil
		}
	}
	a.state.Verifications = append(a.state.Verifications, v)
	a.broadcastLocked()
	return nil
}

// RemovePendingVerification drops a verification from the pending list.
// Called on every terminal outcome of the verification workflow (approved,
// rejected, timed out). No-op when the entry is already gone.
func (a *Agent) RemovePendingVerification(workflowID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Verifications == nil {
		return
	}
	kept := a.state.Verifications[:0]
	removed := false
	for _, v := range a.state.Verifications {
		if v.WorkflowID == workflowID {
			removed = true
			continue
		}
		kept = append(kept, v)
	}
	if !removed {
		return
	}
	a.state.Verifications = kept
	a.broadcastLocked()
}

// ResolveVerification delivers the human approve/reject decision to the
// suspended workflow instance. The pending entry is removed later, by the
// workflow itself, once it has consumed the signal.
func (a *Agent) ResolveVerification(ctx context.Context, workflowID string, approved bool) error {
	err := a.deps.Launcher.Signal(ctx, workflowID, SignalApproval, ApprovalSignal{Approved: approved})
	if err != nil {
		if isWorkflowNotFound(err) {
			return fmt.Errorf("%w: verification %s", ErrNotFound, workflowID)
		}
		return fmt.Errorf("signal verification %s: %w", workflowID, err)
	}
	return nil
}

// Subscription is one observer's view of the board. C delivers whole-state
// snapshots; a slow observer only ever misses intermediate snapshots, never
// the latest one.
type Subscription struct {
	C     <-chan board.State
	agent *Agent
	ch    chan board.State
	once  sync.Once
}

// Close unregisters the observer. Implements io.Closer.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.agent.mu.Lock()
		delete(s.agent.observers, s.ch)
		s.agent.mu.Unlock()
	})
	return nil
}

// Subscribe registers an observer. The current state is delivered
// immediately so a new observer never starts blank.
func (a *Agent) Subscribe() *Subscription {
	ch := make(chan board.State, 1)

	a.mu.Lock()
	a.observers[ch] = struct{}{}
	ch <- a.state.Clone()
	a.mu.Unlock()

	return &Subscription{C: ch, agent: a, ch: ch}
}

// broadcastLocked pushes the current snapshot to every observer. Callers
// must hold a.mu. Delivery is last-write-wins: a stale undelivered snapshot
// is replaced rather than queued behind.
func (a *Agent) broadcastLocked() {
	snap := a.state.Clone()
	for ch := range a.observers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
