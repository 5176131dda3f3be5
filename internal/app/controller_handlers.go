package app

import (
	"context"
	"encoding/json"
	"time"

	"arena/internal/domain"
	"arena/internal/transport"
)

// RegisterHandlers binds every wire message type from spec.md §4.8 to its
// handler on dispatcher.
func (c *Controller) RegisterHandlers(dispatcher *transport.Dispatcher) {
	dispatcher.Handle(transport.MsgAuth, c.handleAuth)
	dispatcher.Handle(transport.MsgPing, c.handlePing)
	dispatcher.Handle(transport.MsgInput, c.handleInput)
	dispatcher.Handle(transport.MsgJoinMatchmaking, c.handleJoinMatchmaking)
	dispatcher.Handle(transport.MsgLeaveMatchmaking, c.handleLeaveMatchmaking)
	dispatcher.Handle(transport.MsgChallenge, c.handleChallenge)
	dispatcher.Handle(transport.MsgSpectate, c.handleSpectate)
	dispatcher.Handle(transport.MsgGetLeaderboard, c.handleGetLeaderboard)
	dispatcher.Handle(transport.MsgGetMatches, c.handleGetMatches)
	dispatcher.Handle(transport.MsgRegisterBot, c.handleRegisterBot)
	dispatcher.Handle(transport.MsgCreateTournament, c.handleCreateTournament)
	dispatcher.Handle(transport.MsgJoinTournament, c.handleJoinTournament)
	dispatcher.Handle(transport.MsgStartTournament, c.handleStartTournament)
	dispatcher.Handle(transport.MsgGetBracket, c.handleGetBracket)
	dispatcher.Handle(transport.MsgListTournaments, c.handleListTournaments)
}

func (c *Controller) sendError(sessionID, code, message string) {
	c.registry.Send(sessionID, transport.MsgError, transport.ErrorPayload{Code: code, Message: message})
}

// requireAuth resolves the connection's bot identity or replies with a
// BAD_REQUEST error and returns ok=false.
func (c *Controller) requireAuth(cc *transport.ConnContext) (botID string, ok bool) {
	botID, _, authed := cc.Identity()
	if !authed {
		c.sendError(cc.SessionID, transport.ErrCodeBadRequest, "not authenticated")
		return "", false
	}
	return botID, true
}

func (c *Controller) handleAuth(cc *transport.ConnContext, raw json.RawMessage) {
	var env struct {
		transport.AuthPayload
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeBadRequest, "malformed AUTH")
		return
	}
	identity, err := c.auth.Verify(context.Background(), env.APIKey)
	if err != nil || identity == nil {
		c.sendError(cc.SessionID, transport.ErrCodeAuthFailed, "invalid credential")
		c.registry.CloseSessionWithCode(cc.SessionID, transport.CloseAuthFailed, "auth failed")
		return
	}
	c.registry.SetSession(cc.SessionID, identity.BotID)
	cc.SetIdentity(identity.BotID, identity.BotName)
	_ = c.identities.UpdateLastSeen(context.Background(), identity.BotID, time.Now())
	c.registry.Send(cc.SessionID, transport.MsgAuthSuccess, map[string]any{
		"botId": identity.BotID, "botName": identity.BotName, "rating": identity.Rating,
	})
}

func (c *Controller) handlePing(cc *transport.ConnContext, raw json.RawMessage) {
	c.registry.Send(cc.SessionID, transport.MsgPong, map[string]any{"timestamp": time.Now().UnixMilli()})
}

func (c *Controller) handleInput(cc *transport.ConnContext, raw json.RawMessage) {
	botID, ok := c.requireAuth(cc)
	if !ok {
		return
	}
	var payload transport.InputPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeBadRequest, "malformed INPUT")
		return
	}
	c.mu.Lock()
	matchID, inMatch := c.byBot[botID]
	rt := c.matches[matchID]
	c.mu.Unlock()
	if !inMatch || rt == nil {
		return
	}
	rt.SubmitInput(botID, domain.Input{
		Left: payload.Input.Left, Right: payload.Input.Right,
		Up: payload.Input.Up, Down: payload.Input.Down,
		Attack1: payload.Input.Attack1, Attack2: payload.Input.Attack2,
		Jump: payload.Input.Jump, Special: payload.Input.Special,
	})
}

func (c *Controller) handleJoinMatchmaking(cc *transport.ConnContext, raw json.RawMessage) {
	botID, ok := c.requireAuth(cc)
	if !ok {
		return
	}
	_, botName, _ := cc.Identity()
	identity, err := c.identities.GetByID(context.Background(), botID)
	rating := 1000
	if err == nil && identity != nil {
		rating = identity.Rating
	}
	if err := c.matchmaker.Join(botID, botName, rating); err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeInvalidState, err.Error())
		return
	}
	c.registry.Send(cc.SessionID, transport.MsgMatchmakingJoined, nil)
}

func (c *Controller) handleLeaveMatchmaking(cc *transport.ConnContext, raw json.RawMessage) {
	botID, ok := c.requireAuth(cc)
	if !ok {
		return
	}
	c.matchmaker.Leave(botID)
	c.registry.Send(cc.SessionID, transport.MsgMatchmakingLeft, nil)
}

func (c *Controller) handleChallenge(cc *transport.ConnContext, raw json.RawMessage) {
	botID, ok := c.requireAuth(cc)
	if !ok {
		return
	}
	var payload transport.ChallengePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeBadRequest, "malformed CHALLENGE")
		return
	}
	if !c.registry.IsBotOnline(payload.TargetBotID) {
		c.sendError(cc.SessionID, transport.ErrCodeNotFound, "target bot is not online")
		return
	}
	matchID, err := c.createMatch(context.Background(), botID, payload.TargetBotID)
	if err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeInvalidState, "failed to create match")
		return
	}
	opponent := BotSummary{BotID: payload.TargetBotID}
	self := BotSummary{BotID: botID}
	c.registry.SendToBot(botID, transport.MsgMatchStarting, MatchStartingPayload{MatchID: matchID, Opponent: opponent})
	c.registry.SendToBot(payload.TargetBotID, transport.MsgMatchStarting, MatchStartingPayload{MatchID: matchID, Opponent: self})
}

func (c *Controller) handleSpectate(cc *transport.ConnContext, raw json.RawMessage) {
	var payload transport.SpectatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeBadRequest, "malformed SPECTATE")
		return
	}
	c.registry.AddSpectator(cc.SessionID, payload.MatchID)
	c.registry.Send(cc.SessionID, transport.MsgSpectateJoined, payload)
}

func (c *Controller) handleGetLeaderboard(cc *transport.ConnContext, raw json.RawMessage) {
	list, err := c.identities.List(context.Background())
	if err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeInvalidState, "failed to load leaderboard")
		return
	}
	c.registry.Send(cc.SessionID, transport.MsgLeaderboard, list)
}

func (c *Controller) handleGetMatches(cc *transport.ConnContext, raw json.RawMessage) {
	var payload transport.GetMatchesPayload
	_ = json.Unmarshal(raw, &payload)
	limit := payload.Limit
	if limit <= 0 {
		limit = 20
	}
	ctx := context.Background()
	if payload.BotID != "" {
		matches, err := c.histories.GetBotMatches(ctx, payload.BotID, limit)
		if err != nil {
			c.sendError(cc.SessionID, transport.ErrCodeInvalidState, "failed to load matches")
			return
		}
		c.registry.Send(cc.SessionID, transport.MsgMatchHistory, matches)
		return
	}
	matches, err := c.histories.GetRecentMatches(ctx, limit)
	if err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeInvalidState, "failed to load matches")
		return
	}
	c.registry.Send(cc.SessionID, transport.MsgMatchHistory, matches)
}

func (c *Controller) handleRegisterBot(cc *transport.ConnContext, raw json.RawMessage) {
	var payload transport.RegisterBotPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeBadRequest, "malformed REGISTER_BOT")
		return
	}
	identity, err := c.identities.Create(context.Background(), payload.BotName, payload.OwnerID)
	if err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeInvalidState, "failed to register bot")
		return
	}
	apiKey, err := c.auth.IssueCredential(identity.BotID)
	if err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeInvalidState, "failed to issue credential")
		return
	}
	c.registry.Send(cc.SessionID, transport.MsgBotRegistered, map[string]any{
		"botId": identity.BotID, "apiKey": apiKey, "botName": identity.BotName, "rating": identity.Rating,
	})
}

func (c *Controller) handleCreateTournament(cc *transport.ConnContext, raw json.RawMessage) {
	var payload transport.CreateTournamentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeBadRequest, "malformed CREATE_TOURNAMENT")
		return
	}
	tour, err := c.tournaments.Create(payload.Name, payload.MaxBots, payload.BuyIn, payload.PrizeDistribution)
	if err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeBadRequest, err.Error())
		return
	}
	c.registry.Send(cc.SessionID, transport.MsgTournamentCreated, tour)
}

func (c *Controller) handleJoinTournament(cc *transport.ConnContext, raw json.RawMessage) {
	botID, ok := c.requireAuth(cc)
	if !ok {
		return
	}
	var payload transport.TournamentIDPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeBadRequest, "malformed JOIN_TOURNAMENT")
		return
	}
	if err := c.collectBuyIn(context.Background(), payload.TournamentID, botID); err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeInvalidState, err.Error())
		return
	}
	if err := c.tournaments.Join(payload.TournamentID, botID); err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeInvalidState, err.Error())
		return
	}
	c.registry.Send(cc.SessionID, transport.MsgTournamentJoined, payload)
}

func (c *Controller) handleStartTournament(cc *transport.ConnContext, raw json.RawMessage) {
	var payload transport.TournamentIDPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeBadRequest, "malformed START_TOURNAMENT")
		return
	}
	if err := c.tournaments.Start(context.Background(), payload.TournamentID); err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeInvalidState, err.Error())
		return
	}
	c.registry.Send(cc.SessionID, transport.MsgTournamentStarted, payload)
}

func (c *Controller) handleGetBracket(cc *transport.ConnContext, raw json.RawMessage) {
	var payload transport.TournamentIDPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError(cc.SessionID, transport.ErrCodeBadRequest, "malformed GET_BRACKET")
		return
	}
	tour, ok := c.tournaments.Get(payload.TournamentID)
	if !ok {
		c.sendError(cc.SessionID, transport.ErrCodeNotFound, "tournament not found")
		return
	}
	c.registry.Send(cc.SessionID, transport.MsgBracket, tour)
}

func (c *Controller) handleListTournaments(cc *transport.ConnContext, raw json.RawMessage) {
	c.registry.Send(cc.SessionID, transport.MsgTournamentList, c.tournaments.List())
}
