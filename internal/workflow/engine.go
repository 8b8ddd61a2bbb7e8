// Package workflow implements a small durable-execution engine on Redis.
//
// A workflow is a named handler that runs as a sequence of steps. Every
// step records its output in a per-instance Redis hash; if the host crashes
// and the instance is resumed, completed steps replay their recorded output
// instead of re-executing, so side effects are applied at most once even
// under at-least-once execution of the handler body.
//
// A workflow may also park on an external signal (WaitForSignal). The wait
// is a blocking BLPOP with a deadline, not a polling loop, and the received
// payload is recorded in the step log like any other step output, so a
// resumed instance sails past a wait it has already completed.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned by Signal when no in-flight instance has the
	// given ID.
	ErrNotFound = errors.New("workflow instance not found")

	// ErrSignalTimeout is returned by WaitForSignal when the deadline
	// passes without a signal arriving.
	ErrSignalTimeout = errors.New("timed out waiting for signal")
)

// IsNotFound reports whether err means an unknown workflow instance.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// completedTTL is how long a finished instance's step log lingers before
// Redis expires it.
const completedTTL = 24 * time.Hour

// Descriptor records what an in-flight workflow instance is, so it can be
// relaunched after a restart.
type Descriptor struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Params      json.RawMessage `json:"params"`
	CreatedAtMs int64           `json:"created_at_ms"`
}

// Handler executes one workflow type. It receives the run handle for step
// recording and the launch parameters as raw JSON.
type Handler func(ctx context.Context, run *Run, params json.RawMessage) error

// Engine launches, resumes and signals workflow instances. It is safe for
// concurrent use.
type Engine struct {
	rdb          *redis.Client
	instanceName string

	mu       sync.Mutex
	handlers map[string]Handler
	wg       sync.WaitGroup
}

// NewEngine creates a workflow engine for the given instance namespace.
func NewEngine(redisOpts *redis.Options, instanceName string) (*Engine, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	return &Engine{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
		handlers:     make(map[string]Handler),
	}, nil
}

// Ping verifies Redis connectivity.
func (e *Engine) Ping(ctx context.Context) error {
	return e.rdb.Ping(ctx).Err()
}

// Close waits for in-flight instances to finish their current step and
// closes the Redis connection. Implements io.Closer.
func (e *Engine) Close() error {
	e.wg.Wait()
	return e.rdb.Close()
}

// Wait blocks until every instance launched by this engine has returned.
// Intended for tests and graceful shutdown.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// RegisterHandler registers the handler for a workflow type. Must be called
// before Launch or Resume sees an instance of that type.
func (e *Engine) RegisterHandler(workflowType string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[workflowType] = h
}

// Launch persists a descriptor for a new instance and starts its handler in
// the background. Returns the instance ID.
func (e *Engine) Launch(ctx context.Context, workflowType string, params any) (string, error) {
	e.mu.Lock()
	handler, ok := e.handlers[workflowType]
	e.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("no handler registered for workflow type %q", workflowType)
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal workflow params: %w", err)
	}

	desc := Descriptor{
		ID:          uuid.New().String(),
		Type:        workflowType,
		Params:      paramsJSON,
		CreatedAtMs: time.Now().UnixMilli(),
	}
	descJSON, err := json.Marshal(desc)
	if err != nil {
		return "", fmt.Errorf("marshal workflow descriptor: %w", err)
	}

	// The descriptor must be durable before the handler starts, otherwise a
	// crash between the two would lose the instance.
	if err := e.rdb.HSet(ctx, runningKey(e.instanceName), desc.ID, descJSON).Err(); err != nil {
		return "", fmt.Errorf("persist workflow descriptor: %w", err)
	}

	e.start(desc, handler)
	return desc.ID, nil
}

// Resume relaunches every instance that was still running when the host
// last stopped. Completed steps replay from the step log. Call once on
// startup, after all handlers are registered.
func (e *Engine) Resume(ctx context.Context) error {
	entries, err := e.rdb.HGetAll(ctx, runningKey(e.instanceName)).Result()
	if err != nil {
		return fmt.Errorf("list running workflows: %w", err)
	}

	for id, descJSON := range entries {
		var desc Descriptor
		if err := json.Unmarshal([]byte(descJSON), &desc); err != nil {
			log.Printf("[Workflow] Skipping undecodable descriptor %s: %v", id, err)
			continue
		}

		e.mu.Lock()
		handler, ok := e.handlers[desc.Type]
		e.mu.Unlock()
		if !ok {
			log.Printf("[Workflow] No handler for resumed instance %s (type %s)", desc.ID, desc.Type)
			continue
		}

		log.Printf("[Workflow] Resuming instance %s (type %s)", desc.ID, desc.Type)
		e.start(desc, handler)
	}
	return nil
}

// Signal delivers a named signal payload to an in-flight instance. Returns
// ErrNotFound if the instance is unknown or already complete.
func (e *Engine) Signal(ctx context.Context, workflowID, signal string, payload any) error {
	exists, err := e.rdb.HExists(ctx, runningKey(e.instanceName), workflowID).Result()
	if err != nil {
		return fmt.Errorf("check workflow %s: %w", workflowID, err)
	}
	if !exists {
		return ErrNotFound
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal signal payload: %w", err)
	}

	if err := e.rdb.LPush(ctx, signalKey(e.instanceName, workflowID, signal), payloadJSON).Err(); err != nil {
		return fmt.Errorf("deliver signal %q to workflow %s: %w", signal, workflowID, err)
	}
	return nil
}

// start runs a handler in the background and finalizes the instance when it
// returns. Handler errors are logged, never re-raised: a failed run is
// still a finished run from the scheduler's point of view.
func (e *Engine) start(desc Descriptor, handler Handler) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx := context.Background()

		run := &Run{engine: e, id: desc.ID}
		if err := handler(ctx, run, desc.Params); err != nil {
			log.Printf("[Workflow] Instance %s (type %s) finished with error: %v", desc.ID, desc.Type, err)
		}

		e.finalize(ctx, desc.ID)
	}()
}

// finalize removes the instance from the running set and lets its step log
// age out.
func (e *Engine) finalize(ctx context.Context, workflowID string) {
	if err := e.rdb.HDel(ctx, runningKey(e.instanceName), workflowID).Err(); err != nil {
		log.Printf("[Workflow] Failed to retire instance %s: %v", workflowID, err)
	}
	if err := e.rdb.Expire(ctx, stepsKey(e.instanceName, workflowID), completedTTL).Err(); err != nil {
		log.Printf("[Workflow] Failed to expire step log for %s: %v", workflowID, err)
	}
}

// Run is the handle a handler uses to record steps and wait for signals.
type Run struct {
	engine *Engine
	id     string
}

// ID returns the workflow instance ID.
func (r *Run) ID() string {
	return r.id
}

// Step executes fn once per instance lifetime. If a previous execution of
// this instance already recorded an output for name, fn is skipped and the
// recorded output is unmarshalled into out instead. out may be nil when the
// step has no output worth keeping.
func (r *Run) Step(ctx context.Context, name string, out any, fn func() (any, error)) error {
	key := stepsKey(r.engine.instanceName, r.id)

	recorded, err := r.engine.rdb.HGet(ctx, key, name).Result()
	if err == nil {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal([]byte(recorded), out); err != nil {
			return fmt.Errorf("step %q: decode recorded output: %w", name, err)
		}
		return nil
	}
	if err != redis.Nil {
		return fmt.Errorf("step %q: read step log: %w", name, err)
	}

	result, err := fn()
	if err != nil {
		return err
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("step %q: encode output: %w", name, err)
	}
	if err := r.engine.rdb.HSet(ctx, key, name, resultJSON).Err(); err != nil {
		return fmt.Errorf("step %q: record output: %w", name, err)
	}

	if out != nil {
		if err := json.Unmarshal(resultJSON, out); err != nil {
			return fmt.Errorf("step %q: decode output: %w", name, err)
		}
	}
	return nil
}

// WaitForSignal parks the instance until a signal named name arrives or the
// timeout passes. The wait is a blocking pop, so it consumes no CPU while
// parked, and the received payload is recorded in the step log so a resumed
// instance replays it instead of waiting again. Returns ErrSignalTimeout
// when the deadline passes.
func (r *Run) WaitForSignal(ctx context.Context, name string, timeout time.Duration, out any) error {
	key := stepsKey(r.engine.instanceName, r.id)
	stepName := "signal:" + name

	recorded, err := r.engine.rdb.HGet(ctx, key, stepName).Result()
	if err == nil {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal([]byte(recorded), out); err != nil {
			return fmt.Errorf("signal %q: decode recorded payload: %w", name, err)
		}
		return nil
	}
	if err != redis.Nil {
		return fmt.Errorf("signal %q: read step log: %w", name, err)
	}

	values, err := r.engine.rdb.BLPop(ctx, timeout, signalKey(r.engine.instanceName, r.id, name)).Result()
	if err == redis.Nil {
		return ErrSignalTimeout
	}
	if err != nil {
		return fmt.Errorf("signal %q: wait: %w", name, err)
	}
	// BLPop returns [key, value].
	payload := values[1]

	if err := r.engine.rdb.HSet(ctx, key, stepName, payload).Err(); err != nil {
		return fmt.Errorf("signal %q: record payload: %w", name, err)
	}

	if out != nil {
		if err := json.Unmarshal([]byte(payload), out); err != nil {
			return fmt.Errorf("signal %q: decode payload: %w", name, err)
		}
	}
	return nil
}
