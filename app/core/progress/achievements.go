package progress

// Achievement is a static, code defined milestone unlocked by a Stats predicate.
type Achievement struct {
	ID       string
	Title    string
	Hint     string
	Unlocked func(Stats) bool
	// Progress returns (current, target) for display; current may exceed target.
	Progress func(Stats) (int, int)
}

// AchievementStatus pairs a definition with its state for one snapshot
type AchievementStatus struct {
	Achievement
	Earned  bool
	Current int
	Target  int
}

// Achievement identifiers
const (
	AchFirstRead   = "first_read"
	AchFirstRating = "first_rating"
	AchRating2     = "rating_2"
	AchRating3     = "rating_3"
	AchStreak3     = "streak_3"
	AchStreak5     = "streak_5"
	AchLogins20    = "logins_20"
	AchAllRead     = "all_read"
)

func atLeast(pick func(Stats) int, n int) (func(Stats) bool, func(Stats) (int, int)) {
	return func(s Stats) bool { return pick(s) >= n },
		func(s Stats) (int, int) { return pick(s), n }
}

func ratedCount(s Stats) int { return s.RatedCount }
func streakDays(s Stats) int { return s.StreakDays }
func loginDays(s Stats) int  { return s.LoginDays }

var achievements = buildAchievements()

func buildAchievements() []Achievement {
	rated1, rated1P := atLeast(ratedCount, 1)
	rated2, rated2P := atLeast(ratedCount, 2)
	rated3, rated3P := atLeast(ratedCount, 3)
	streak3, streak3P := atLeast(streakDays, 3)
	streak5, streak5P := atLeast(streakDays, 5)
	logins20, logins20P := atLeast(loginDays, 20)

	return []Achievement{
		{
			ID:       AchFirstRead,
			Title:    "First Story",
			Hint:     "Read your first story (or complete any daily practice).",
			Unlocked: func(s Stats) bool { return s.ReadDays >= 1 || s.ReadStories >= 1 },
			Progress: func(s Stats) (int, int) { return min(1, max(s.ReadDays, s.ReadStories)), 1 },
		},
		{
			ID:       AchFirstRating,
			Title:    "First Rating",
			Hint:     "Rate your first story to help others find the best ones.",
			Unlocked: rated1,
			Progress: rated1P,
		},
		{
			ID:       AchRating2,
			Title:    "Two Ratings",
			Hint:     "Rate two stories — your opinion matters!",
			Unlocked: rated2,
			Progress: rated2P,
		},
		{
			ID:       AchRating3,
			Title:    "Three Ratings",
			Hint:     "Rate three stories — keep exploring the Panda’s magical world.",
			Unlocked: rated3,
			Progress: rated3P,
		},
		{
			ID:       AchStreak3,
			Title:    "Three Day Streak",
			Hint:     "Read on several days in a row (3+). Small daily steps are powerful.",
			Unlocked: streak3,
			Progress: streak3P,
		},
		{
			ID:       AchStreak5,
			Title:    "Lotus of Wisdom",
			Hint:     "Complete a 5-day reading cycle — your Lotus of Wisdom starts to bloom.",
			Unlocked: streak5,
			Progress: streak5P,
		},
		{
			ID:       AchLogins20,
			Title:    "Faithful Reader",
			Hint:     "Open the app on 20 different days — consistency works wonders.",
			Unlocked: logins20,
			Progress: logins20P,
		},
		{
			ID:       AchAllRead,
			Title:    "Great Lotus",
			Hint:     "Read all available stories — the big Lotus blooms in your honor!",
			Unlocked: func(s Stats) bool { return s.AllStoriesRead },
			Progress: func(s Stats) (int, int) {
				if s.AllStoriesRead {
					return 1, 1
				}
				return 0, 1
			},
		},
	}
}

// Achievements returns the definitions in display order
func Achievements() []Achievement {
	out := make([]Achievement, len(achievements))
	copy(out, achievements)
	return out
}

// Lookup finds a definition by id
func Lookup(id string) (Achievement, bool) {
	for _, a := range achievements {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// Evaluate returns every achievement's state for s, in display order
func Evaluate(s Stats) []AchievementStatus {
	out := make([]AchievementStatus, len(achievements))
	for i, a := range achievements {
		cur, target := a.Progress(s)
		out[i] = AchievementStatus{
			Achievement: a,
			Earned:      a.Unlocked(s),
			Current:     cur,
			Target:      target,
		}
	}
	return out
}

// CountEarned returns how many achievements s unlocks
func CountEarned(s Stats) int {
	n := 0
	for _, a := range achievements {
		if a.Unlocked(s) {
			n++
		}
	}
	return n
}
