package progress

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
)

// Activity is the flag object stored under a daily activity key. Other parts of
// the app may add their own flags, so unknown fields are preserved on merge.
type Activity map[string]any

// Flags that mark a day as active when truthy
const (
	FlagCalm   = "calm"
	FlagEnergy = "energy"
	FlagFocus  = "focus"
	FlagRead   = "read"
	FlagDone   = "done"
	FlagStory  = "story"
)

var activityFlags = []string{FlagCalm, FlagEnergy, FlagFocus, FlagRead, FlagDone, FlagStory}

var errNotAnObject = errors.New("activity record is not a JSON object")

// ParseActivity decodes a stored activity record. An empty string is an empty record.
func ParseActivity(raw string) (Activity, error) {
	if strings.TrimSpace(raw) == "" {
		return Activity{}, nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, errNotAnObject
	}
	return Activity(obj), nil
}

// IsActive reports whether any activity flag is truthy
func (a Activity) IsActive() bool {
	for _, f := range activityFlags {
		if truthy(a[f]) {
			return true
		}
	}
	return false
}

// With returns a copy of a with flag set to true
func (a Activity) With(flag string) Activity {
	out := make(Activity, len(a)+1)
	for k, v := range a {
		out[k] = v
	}
	out[flag] = true
	return out
}

// Encode serializes the record as a JSON object. encoding/json writes map keys
// in sorted order, so equal records encode to equal strings.
func (a Activity) Encode() (string, error) {
	b, err := json.Marshal(map[string]any(a))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DayHasActivity evaluates a raw stored value. Records written by old releases
// hold the literal "1" or "true" instead of a flag object.
func DayHasActivity(raw string, found bool) bool {
	if !found || raw == "" {
		return false
	}
	if a, err := ParseActivity(raw); err == nil {
		return a.IsActive()
	}
	v := strings.TrimSpace(raw)
	return v == "1" || v == "true"
}

// truthy mirrors the loose truthiness the records were written with:
// false, 0, NaN, "" and null are false, everything else is true.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	default:
		return true
	}
}
