package app

// MatchStartingPayload announces a freshly created match to its two bots.
type MatchStartingPayload struct {
	MatchID  string
	Opponent BotSummary
}

// BotSummary is the subset of a bot identity exposed to other bots.
type BotSummary struct {
	BotID   string
	BotName string
	Rating  int
}
