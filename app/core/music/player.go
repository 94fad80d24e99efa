// Package music drives the background music through a pluggable playback backend.
package music

import (
	"context"
	"log/slog"
	"sync"
)

// RepeatMode controls what happens when the queue runs out
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatTrack
	RepeatQueue
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatTrack:
		return "track"
	case RepeatQueue:
		return "queue"
	default:
		return "off"
	}
}

// Track is one queued audio item
type Track struct {
	ID     string
	Source string
	Title  string
}

// BackgroundTrack is the looped menu music
var BackgroundTrack = Track{ID: "bgm", Source: "assets/bgm.mp3", Title: "BGM"}

// Player is a playback backend. Reset empties the queue.
type Player interface {
	Setup(ctx context.Context) error
	QueueLen(ctx context.Context) (int, error)
	Enqueue(ctx context.Context, tracks ...Track) error
	SetRepeat(ctx context.Context, mode RepeatMode) error
	Play(ctx context.Context) error
	Stop(ctx context.Context) error
	Reset(ctx context.Context) error
}

// LogPlayer is a silent backend that records its state and logs every call.
// It is the default where no audio device is wired in, such as the terminal.
type LogPlayer struct {
	mu      sync.Mutex
	queue   []Track
	repeat  RepeatMode
	playing bool
	setups  int
}

// NewLogPlayer creates an idle backend
func NewLogPlayer() *LogPlayer {
	return &LogPlayer{}
}

func (p *LogPlayer) Setup(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setups++
	slog.Debug("music player setup", "count", p.setups)
	return nil
}

func (p *LogPlayer) QueueLen(_ context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue), nil
}

func (p *LogPlayer) Enqueue(_ context.Context, tracks ...Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, tracks...)
	for _, t := range tracks {
		slog.Debug("music track queued", "id", t.ID, "source", t.Source)
	}
	return nil
}

func (p *LogPlayer) SetRepeat(_ context.Context, mode RepeatMode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repeat = mode
	slog.Debug("music repeat mode", "mode", mode.String())
	return nil
}

func (p *LogPlayer) Play(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
	slog.Info("music playing", "tracks", len(p.queue), "repeat", p.repeat.String())
	return nil
}

func (p *LogPlayer) Stop(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	slog.Info("music stopped")
	return nil
}

func (p *LogPlayer) Reset(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	p.queue = nil
	p.repeat = RepeatOff
	return nil
}

// Playing reports whether Play was called since the last Stop or Reset
func (p *LogPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Setups returns how many times Setup ran
func (p *LogPlayer) Setups() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setups
}
