// Package transport terminates the wire protocol: connection registry,
// authentication, message dispatch, and the websocket server loop.
package transport

import "encoding/json"

// Client→server message types (§6.1).
const (
	MsgAuth             = "AUTH"
	MsgPing             = "PING"
	MsgInput            = "INPUT"
	MsgJoinMatchmaking  = "JOIN_MATCHMAKING"
	MsgLeaveMatchmaking = "LEAVE_MATCHMAKING"
	MsgChallenge        = "CHALLENGE"
	MsgSpectate         = "SPECTATE"
	MsgGetLeaderboard   = "GET_LEADERBOARD"
	MsgGetMatches       = "GET_MATCHES"
	MsgRegisterBot      = "REGISTER_BOT"
	MsgCreateTournament = "CREATE_TOURNAMENT"
	MsgJoinTournament   = "JOIN_TOURNAMENT"
	MsgStartTournament  = "START_TOURNAMENT"
	MsgGetBracket       = "GET_BRACKET"
	MsgListTournaments  = "LIST_TOURNAMENTS"
)

// Server→client message types (§6.1).
const (
	MsgWelcome             = "WELCOME"
	MsgAuthSuccess         = "AUTH_SUCCESS"
	MsgError               = "ERROR"
	MsgPong                = "PONG"
	MsgObservation         = "OBSERVATION"
	MsgMatchState          = "MATCH_STATE"
	MsgRoundStart          = "ROUND_START"
	MsgDamage              = "DAMAGE"
	MsgKO                  = "KO"
	MsgMatchStarting       = "MATCH_STARTING"
	MsgMatchEnd            = "MATCH_END"
	MsgMatchmakingJoined   = "MATCHMAKING_JOINED"
	MsgMatchmakingLeft     = "MATCHMAKING_LEFT"
	MsgSpectateJoined      = "SPECTATE_JOINED"
	MsgLeaderboard         = "LEADERBOARD"
	MsgMatchHistory        = "MATCH_HISTORY"
	MsgBotRegistered       = "BOT_REGISTERED"
	MsgTournamentCreated   = "TOURNAMENT_CREATED"
	MsgTournamentJoined    = "TOURNAMENT_JOINED"
	MsgTournamentStarted   = "TOURNAMENT_STARTED"
	MsgBracket             = "BRACKET"
	MsgTournamentList      = "TOURNAMENT_LIST"
)

// Error codes carried in ERROR{code} payloads.
const (
	ErrCodeAuthFailed   = "AUTH_FAILED"
	ErrCodeUnknownType  = "UNKNOWN_TYPE"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInvalidState = "INVALID_STATE"
)

// Close codes (§6.1).
const (
	CloseAuthFailed  = 4001
	CloseRateLimited = 4029
)

// inboundEnvelope is used only to read the "type" tag: client payload
// fields live alongside "type" in a flat object, and handlers unmarshal the
// whole raw frame into their specific shape.
type inboundEnvelope struct {
	Type string `json:"type"`
}

// DecodeEnvelope extracts the type tag and keeps the raw bytes for the
// handler to unmarshal into its specific payload struct.
func DecodeEnvelope(data []byte) (msgType string, raw json.RawMessage, err error) {
	var hdr inboundEnvelope
	if err := json.Unmarshal(data, &hdr); err != nil {
		return "", nil, err
	}
	return hdr.Type, json.RawMessage(data), nil
}

// outMessage is the wire shape written to peers: {"type", "payload"}.
// Registry.Send marshals it as is, so the payload stays nested under
// "payload" (omitted when nil).
type outMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ErrorPayload is the body of an ERROR message.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// InputPayload is the body of a client INPUT message.
type InputPayload struct {
	Input       InputFields `json:"input"`
	FrameNumber int64       `json:"frameNumber"`
}

// InputFields mirrors domain.Input on the wire.
type InputFields struct {
	Left    bool `json:"left"`
	Right   bool `json:"right"`
	Up      bool `json:"up"`
	Down    bool `json:"down"`
	Attack1 bool `json:"attack1"`
	Attack2 bool `json:"attack2"`
	Jump    bool `json:"jump"`
	Special bool `json:"special"`
}

// AuthPayload is the body of a client AUTH message.
type AuthPayload struct {
	APIKey string `json:"apiKey"`
}

// ChallengePayload is the body of a client CHALLENGE message.
type ChallengePayload struct {
	TargetBotID string `json:"targetBotId"`
}

// SpectatePayload is the body of a client SPECTATE message.
type SpectatePayload struct {
	MatchID string `json:"matchId"`
}

// RegisterBotPayload is the body of a client REGISTER_BOT message.
type RegisterBotPayload struct {
	BotName string `json:"botName"`
	OwnerID string `json:"ownerId"`
}

// GetMatchesPayload is the body of a client GET_MATCHES message.
type GetMatchesPayload struct {
	BotID string `json:"botId,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// CreateTournamentPayload is the body of a client CREATE_TOURNAMENT message.
type CreateTournamentPayload struct {
	Name             string    `json:"name"`
	Format           string    `json:"format,omitempty"`
	MaxBots          int       `json:"maxBots"`
	BuyIn            int64     `json:"buyIn"`
	PrizeDistribution []float64 `json:"prizeDistribution"`
}

// TournamentIDPayload covers JOIN_TOURNAMENT, START_TOURNAMENT, GET_BRACKET.
type TournamentIDPayload struct {
	TournamentID string `json:"tournamentId"`
}
