package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pandatales/pandatales/app/core/kvstore"
)

var (
	// ErrInvalidRating is returned for star values outside 1..3
	ErrInvalidRating = errors.New("rating must be 1, 2 or 3 stars")
	// ErrEmptyTaleID is returned when a tale id is blank
	ErrEmptyTaleID = errors.New("tale id cannot be empty")
)

// MinStars and MaxStars bound a rating
const (
	MinStars = 1
	MaxStars = 3
)

// Recorder is the only writer of the progress namespace.
type Recorder struct {
	store kvstore.Store
	bus   *Bus
	cfg   config
}

// NewRecorder creates a recorder over store. bus may be nil, in which case
// nothing is published.
func NewRecorder(store kvstore.Store, bus *Bus, opts ...Option) *Recorder {
	return &Recorder{
		store: store,
		bus:   bus,
		cfg:   newConfig(opts),
	}
}

// SetRating stores stars for taleID, replacing any earlier rating, and publishes story:rated.
func (r *Recorder) SetRating(ctx context.Context, taleID string, stars int) error {
	taleID, err := normalizeID(taleID)
	if err != nil {
		return err
	}
	if stars < MinStars || stars > MaxStars {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, stars)
	}

	if err := r.store.Set(ctx, RatingKey(taleID), strconv.Itoa(stars)); err != nil {
		return fmt.Errorf("save rating of %s: %w", taleID, err)
	}

	r.publish(Event{Type: EventStoryRated, TaleID: taleID, Stars: stars})
	return nil
}

// GetRating returns the stored rating of taleID, 0 when there is none.
func (r *Recorder) GetRating(ctx context.Context, taleID string) (int, error) {
	taleID, err := normalizeID(taleID)
	if err != nil {
		return 0, err
	}
	v, ok, err := r.store.Get(ctx, RatingKey(taleID))
	if err != nil {
		return 0, fmt.Errorf("read rating of %s: %w", taleID, err)
	}
	if !ok {
		return 0, nil
	}
	return parseStars(v), nil
}

// GetRatings reads the ratings of several tales in one batch.
// Every requested id is present in the result under the id as given,
// unrated ones map to 0.
func (r *Recorder) GetRatings(ctx context.Context, taleIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(taleIDs))
	if len(taleIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(taleIDs))
	for i, id := range taleIDs {
		normalized, err := normalizeID(id)
		if err != nil {
			return nil, err
		}
		keys[i] = RatingKey(normalized)
	}

	pairs, err := r.store.MultiGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("read ratings: %w", err)
	}
	for i, p := range pairs {
		if !p.Found {
			out[taleIDs[i]] = 0
			continue
		}
		out[taleIDs[i]] = parseStars(p.Value)
	}
	return out, nil
}

// HasRead reports whether taleID carries a read-completion marker
func (r *Recorder) HasRead(ctx context.Context, taleID string) (bool, error) {
	taleID, err := normalizeID(taleID)
	if err != nil {
		return false, err
	}
	_, ok, err := r.store.Get(ctx, ReadKey(taleID))
	if err != nil {
		return false, fmt.Errorf("read marker of %s: %w", taleID, err)
	}
	return ok, nil
}

// MarkStoryReadToday records that taleID was finished today: it sets the read
// marker, merges read:true into today's activity record and writes today's
// login record. The steps are not atomic; an interrupted call may leave only
// the first steps applied.
func (r *Recorder) MarkStoryReadToday(ctx context.Context, taleID string) error {
	taleID, err := normalizeID(taleID)
	if err != nil {
		return err
	}
	now := r.cfg.now()

	if err := r.store.Set(ctx, ReadKey(taleID), "1"); err != nil {
		return fmt.Errorf("save read marker of %s: %w", taleID, err)
	}

	if err := r.mergeFlag(ctx, ActivityKey(now), FlagRead); err != nil {
		return err
	}

	if err := r.store.Set(ctx, LoginKey(now), "1"); err != nil {
		return fmt.Errorf("save login day: %w", err)
	}
	r.publish(Event{Type: EventLoginDay, At: now})

	r.publish(Event{Type: EventStoryRead, TaleID: taleID, At: now})
	return nil
}

// RecordActivity merges flag into today's activity record without touching
// tale markers. Other feature areas (breathing exercises, daily goals) use it.
func (r *Recorder) RecordActivity(ctx context.Context, flag string) error {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return errors.New("activity flag cannot be empty")
	}
	return r.mergeFlag(ctx, ActivityKey(r.cfg.now()), flag)
}

// mergeFlag is a read-modify-write of a day record. A record that cannot be
// read or parsed is replaced by a fresh one holding only flag.
func (r *Recorder) mergeFlag(ctx context.Context, key, flag string) error {
	next := Activity{flag: true}

	raw, ok, err := r.store.Get(ctx, key)
	switch {
	case err != nil:
		slog.Warn("failed to read activity record, starting a fresh one", "key", key, "error", err)
	case ok:
		existing, perr := ParseActivity(raw)
		if perr != nil {
			slog.Warn("malformed activity record, starting a fresh one", "key", key, "error", perr)
		} else {
			next = existing.With(flag)
		}
	}

	encoded, err := next.Encode()
	if err != nil {
		return fmt.Errorf("encode activity %s: %w", key, err)
	}

	if err := r.store.Set(ctx, key, encoded); err != nil {
		return fmt.Errorf("save activity %s: %w", key, err)
	}
	return nil
}

// ClearAllProgress removes every rating, read marker, activity and login record,
// leaves all other keys alone and publishes achievements:cleared. Returns the
// number of removed keys. Confirmation is the caller's job.
func (r *Recorder) ClearAllProgress(ctx context.Context) (int, error) {
	keys, err := r.store.AllKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list keys: %w", err)
	}

	toRemove := make([]string, 0, len(keys))
	for _, k := range keys {
		if IsTracked(k) {
			toRemove = append(toRemove, k)
		}
	}

	if len(toRemove) > 0 {
		if err := r.store.MultiRemove(ctx, toRemove); err != nil {
			return 0, fmt.Errorf("remove progress keys: %w", err)
		}
	}

	r.publish(Event{Type: EventCleared})
	return len(toRemove), nil
}

func (r *Recorder) publish(e Event) {
	if r.bus == nil {
		return
	}
	if e.At.IsZero() {
		e.At = r.cfg.now()
	}
	n := r.bus.Publish(e)
	slog.Debug("progress event published", "type", e.Type, "tale", e.TaleID, "subscribers", n)
}

func normalizeID(taleID string) (string, error) {
	taleID = strings.TrimSpace(taleID)
	if taleID == "" {
		return "", ErrEmptyTaleID
	}
	return taleID, nil
}

// parseStars reads a stored rating; anything unreadable or outside 1..3 counts as unrated
func parseStars(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < MinStars || n > MaxStars {
		return 0
	}
	return n
}
