package progress

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Key prefixes of the progress namespace. Everything under these four is wiped by a reset.
const (
	RatingPrefix   = "ratings:"
	ReadPrefix     = "story:read:"
	ActivityPrefix = "activities:"
	LoginPrefix    = "login:"
)

var trackedPrefixes = []string{RatingPrefix, ActivityPrefix, LoginPrefix, ReadPrefix}

// ratingKeyPattern also matches rating keys written by older releases
var ratingKeyPattern = regexp.MustCompile(`^(ratings?:|story:rating:|rated:)`)

// RatingKey returns the rating record key of a tale
func RatingKey(taleID string) string {
	return RatingPrefix + taleID
}

// ReadKey returns the read-completion marker key of a tale
func ReadKey(taleID string) string {
	return ReadPrefix + taleID
}

// DayStamp formats the local calendar day as Y-M-D without zero padding, e.g. 2024-5-9.
func DayStamp(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())
}

// PaddedDayStamp is the legacy zero padded form, e.g. 2024-05-09.
func PaddedDayStamp(t time.Time) string {
	return fmt.Sprintf("%d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

// ActivityKey returns the daily activity key for t's local day
func ActivityKey(t time.Time) string {
	return ActivityPrefix + DayStamp(t)
}

// PaddedActivityKey returns the legacy daily activity key for t's local day
func PaddedActivityKey(t time.Time) string {
	return ActivityPrefix + PaddedDayStamp(t)
}

// LoginKey returns the login record key for t's local day
func LoginKey(t time.Time) string {
	return LoginPrefix + DayStamp(t)
}

// IsTracked reports whether key belongs to the progress namespace
func IsTracked(key string) bool {
	for _, p := range trackedPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// IsRatingKey reports whether key is a rating record in any known format
func IsRatingKey(key string) bool {
	return ratingKeyPattern.MatchString(key)
}

// daysBack returns noon of the local calendar day `back` days before now.
// Noon keeps DST transitions from skipping or repeating a day.
func daysBack(now time.Time, back int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-back, 12, 0, 0, 0, now.Location())
}
