package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/kudos/internal/agent"
	"github.com/dyluth/kudos/internal/blob"
	"github.com/dyluth/kudos/internal/classifier"
	"github.com/dyluth/kudos/internal/workflow"
	"github.com/dyluth/kudos/pkg/board"
)

type fakeLauncher struct{}

func (fakeLauncher) Launch(ctx context.Context, workflowType string, params any) (string, error) {
	return "wf-1", nil
}

func (fakeLauncher) Signal(ctx context.Context, workflowID, signal string, payload any) error {
	return workflow.ErrNotFound
}

type stubClassifier struct{}

func (stubClassifier) ClassifyComment(ctx context.Context, boardOwner, comment string) (classifier.CommentVerdict, error) {
	return classifier.CommentVerdict{}, nil
}

func (stubClassifier) ClassifyScreenshot(ctx context.Context, image []byte, mimeType string) (classifier.ScreenshotVerdict, error) {
	return classifier.ScreenshotVerdict{}, nil
}

func (stubClassifier) GenerateCompliment(ctx context.Context, kudoTexts []string) (string, error) {
	return "you rock", nil
}

type stubSpeech struct{}

func (stubSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return []byte("AUDIO:" + text), nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mr := miniredis.RunT(t)
	blobs, err := blob.NewStore(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { blobs.Close() })

	registry, err := agent.NewRegistry(t.TempDir(), agent.Deps{
		Launcher:   fakeLauncher{},
		Classifier: stubClassifier{},
		Speech:     stubSpeech{},
		Blobs:      blobs,
	})
	require.NoError(t, err)
	t.Cleanup(func() { registry.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(":0", registry, blobs, logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeJSON(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestAddKudoAndState(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/boards/myboard/kudos", map[string]string{
		"text":   "great demo",
		"author": "alice",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var kudo board.Kudo
	decodeJSON(t, resp, &kudo)
	assert.Equal(t, int64(1), kudo.ID)
	assert.Equal(t, "great demo", kudo.Text)

	stateResp, err := http.Get(ts.URL + "/api/boards/myboard/state")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, stateResp.StatusCode)

	var state board.State
	decodeJSON(t, stateResp, &state)
	require.Len(t, state.Latest, 1)
	assert.Equal(t, "great demo", state.Latest[0].Text)
}

func TestAddKudoInvalid(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/boards/myboard/kudos", map[string]string{
		"text": "no author",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBoardNamesAreCaseInsensitive(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/boards/MyBoard/kudos", map[string]string{
		"text":   "mixed case path",
		"author": "bob",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	stateResp, err := http.Get(ts.URL + "/api/boards/myboard/state")
	require.NoError(t, err)
	var state board.State
	decodeJSON(t, stateResp, &state)
	require.Len(t, state.Latest, 1)
	assert.Equal(t, "mixed case path", state.Latest[0].Text)
}

func TestInvalidBoardName(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/boards/bad.name/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHeartKudo(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/boards/myboard/kudos", map[string]string{
		"text":   "heart me",
		"author": "carol",
	})
	var kudo board.Kudo
	decodeJSON(t, resp, &kudo)

	heartResp, err := http.Post(fmt.Sprintf("%s/api/kudos/myboard/%d/heart", ts.URL, kudo.ID), "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, heartResp.StatusCode)

	var body map[string]int
	decodeJSON(t, heartResp, &body)
	assert.Equal(t, 1, body["hearted"])
}

func TestHeartKudoErrors(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/kudos/myboard/999/heart", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/kudos/myboard/abc/heart", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddVideo(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/boards/myboard/videos", map[string]string{
		"url": "https://youtu.be/dQw4w9WgXcQ",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	stateResp, err := http.Get(ts.URL + "/api/boards/myboard/state")
	require.NoError(t, err)
	var state board.State
	decodeJSON(t, stateResp, &state)
	assert.Equal(t, 1, state.YouTubeWatchCount)
}

func TestAddVideoBadURL(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/boards/myboard/videos", map[string]string{
		"url": "https://example.com/not-a-video",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCompliment(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/boards/myboard/compliment")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeJSON(t, resp, &body)
	assert.Equal(t, "you rock", body["compliment"])
}

func TestComplimentAudio(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/boards/myboard/compliment/audio")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))

	audio, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "AUDIO:you rock", string(audio))
}

func TestScreenshotUploadAndServe(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/boards/myboard/screenshots", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body map[string]string
	decodeJSON(t, resp, &body)
	fileName := body["fileName"]
	require.NotEmpty(t, fileName)

	imgResp, err := http.Get(ts.URL + "/screenshots/" + fileName)
	require.NoError(t, err)
	defer imgResp.Body.Close()
	require.Equal(t, http.StatusOK, imgResp.StatusCode)
	assert.Equal(t, "image/png", imgResp.Header.Get("Content-Type"))

	img, err := io.ReadAll(imgResp.Body)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(img))
}

func TestScreenshotNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/screenshots/missing.png")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEmptyScreenshotRejected(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/boards/myboard/screenshots", "image/png", strings.NewReader(""))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResolveUnknownVerification(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/boards/myboard/verifications/no-such-id", map[string]bool{
		"approved": true,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBoardSocketPushesSnapshots(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/myboard"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// The current snapshot arrives immediately on connect.
	var initial board.State
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Empty(t, initial.Latest)

	resp := postJSON(t, ts.URL+"/api/boards/myboard/kudos", map[string]string{
		"text":   "seen over the socket",
		"author": "dave",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var updated board.State
	require.NoError(t, conn.ReadJSON(&updated))
	require.Len(t, updated.Latest, 1)
	assert.Equal(t, "seen over the socket", updated.Latest[0].Text)
}
