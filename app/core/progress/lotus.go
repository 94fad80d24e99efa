package progress

// LotusStages is the number of bloom stages shown next to the streak
const LotusStages = 5

// LotusStage maps a streak to a zero based bloom stage: one stage per day,
// capped at the fully bloomed lotus.
func LotusStage(streak int) int {
	return min(LotusStages-1, max(0, streak-1))
}
