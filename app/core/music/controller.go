package music

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pandatales/pandatales/app/core/settings"
	"golang.org/x/sync/singleflight"
)

// State is the initialization state of the backend
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

const setupKey = "setup"

// Controller starts and stops the background music. The backend is set up at
// most once; concurrent callers share a single in-flight setup, and a failed
// setup leaves the controller uninitialized so the next Start retries.
type Controller struct {
	player Player
	track  Track
	group  singleflight.Group

	mu    sync.Mutex
	state State

	// opMu serializes queue and transport calls
	opMu sync.Mutex
}

// NewController wraps player with BackgroundTrack as the looped track
func NewController(player Player) *Controller {
	return &Controller{
		player: player,
		track:  BackgroundTrack,
	}
}

// State returns the current initialization state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) setupOnce(ctx context.Context) error {
	if c.State() == StateReady {
		return nil
	}

	_, err, shared := c.group.Do(setupKey, func() (any, error) {
		if c.State() == StateReady {
			return nil, nil
		}
		c.setState(StateInitializing)
		if err := c.player.Setup(ctx); err != nil {
			c.setState(StateUninitialized)
			return nil, fmt.Errorf("music setup: %w", err)
		}
		c.setState(StateReady)
		return nil, nil
	})
	if shared {
		slog.Debug("joined in-flight music setup")
	}
	return err
}

// ensureQueue loads the background track when the queue is empty
func (c *Controller) ensureQueue(ctx context.Context) error {
	n, err := c.player.QueueLen(ctx)
	if err != nil {
		return fmt.Errorf("music queue: %w", err)
	}
	if n > 0 {
		return nil
	}
	if err := c.player.Enqueue(ctx, c.track); err != nil {
		return fmt.Errorf("music enqueue: %w", err)
	}
	if err := c.player.SetRepeat(ctx, RepeatQueue); err != nil {
		return fmt.Errorf("music repeat: %w", err)
	}
	return nil
}

// Start sets the backend up if needed, queues the background track and plays
func (c *Controller) Start(ctx context.Context) error {
	if err := c.setupOnce(ctx); err != nil {
		return err
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()
	if err := c.ensureQueue(ctx); err != nil {
		return err
	}
	if err := c.player.Play(ctx); err != nil {
		return fmt.Errorf("music play: %w", err)
	}
	return nil
}

// Stop halts playback and always resets the backend, even when stopping fails
func (c *Controller) Stop(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	stopErr := c.player.Stop(ctx)
	if stopErr != nil {
		stopErr = fmt.Errorf("music stop: %w", stopErr)
	}
	resetErr := c.player.Reset(ctx)
	if resetErr != nil {
		resetErr = fmt.Errorf("music reset: %w", resetErr)
	}
	return errors.Join(stopErr, resetErr)
}

// SetEnabled starts or stops the music
func (c *Controller) SetEnabled(ctx context.Context, on bool) error {
	if on {
		return c.Start(ctx)
	}
	return c.Stop(ctx)
}

// Sync applies the persisted preference and returns it
func (c *Controller) Sync(ctx context.Context, s *settings.Settings) (bool, error) {
	on, err := s.MusicEnabled(ctx)
	if err != nil {
		return on, err
	}
	return on, c.SetEnabled(ctx, on)
}

// Toggle flips the persisted preference and applies it
func (c *Controller) Toggle(ctx context.Context, s *settings.Settings) (bool, error) {
	on, err := s.ToggleMusic(ctx)
	if err != nil {
		return on, err
	}
	return on, c.SetEnabled(ctx, on)
}
