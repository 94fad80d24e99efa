package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/pandatales/pandatales/app/core/kvstore"
	"github.com/pandatales/pandatales/app/core/music"
	"github.com/pandatales/pandatales/app/core/progress"
	"github.com/pandatales/pandatales/app/core/settings"
	"github.com/pandatales/pandatales/app/core/tales"
)

// app bundles the components a command works with
type app struct {
	cfg        Config
	store      kvstore.Store
	file       *kvstore.File // nil for in-memory stores
	catalog    *tales.Catalog
	bus        *progress.Bus
	settings   *settings.Settings
	recorder   *progress.Recorder
	aggregator *progress.Aggregator
	music      *music.Controller
}

// openApp opens the store under cfg.RootPath and wires every component to it
func openApp(ctx context.Context, cfg Config) (*app, error) {
	opts := kvstore.DefaultOptions()
	opts.Codec = cfg.Codec
	opts.CompactThreshold = cfg.CompactThreshold

	file, err := kvstore.Open(cfg.StorePath(), opts)
	if err != nil {
		if errors.Is(err, kvstore.ErrLocked) {
			return nil, fmt.Errorf("progress store is in use by another talesctl process")
		}
		return nil, err
	}

	a, err := newApp(ctx, cfg, file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	a.file = file
	return a, nil
}

func newApp(ctx context.Context, cfg Config, store kvstore.Store) (*app, error) {
	catalog, err := tales.Default()
	if err != nil {
		return nil, err
	}

	opts := []progress.Option{progress.WithLegacyPaddedKeys(cfg.LegacyPaddedKeys)}
	bus := progress.NewBus()
	s := settings.New(store)

	a := &app{
		cfg:        cfg,
		store:      store,
		catalog:    catalog,
		bus:        bus,
		settings:   s,
		recorder:   progress.NewRecorder(store, bus, opts...),
		aggregator: progress.NewAggregator(store, opts...),
		music:      music.NewController(music.NewLogPlayer()),
	}

	if err := catalog.PublishTotal(ctx, s); err != nil {
		bus.Close()
		return nil, fmt.Errorf("record number of tales: %w", err)
	}
	return a, nil
}

// Close ends every subscription and releases the store
func (a *app) Close() error {
	a.bus.Close()
	return a.store.Close()
}

// mustOpenApp opens the app or exits with the error printed, like every other command failure
func mustOpenApp(ctx context.Context) *app {
	a, err := openApp(ctx, config)
	if err != nil {
		exitWithError(err)
	}
	return a
}
