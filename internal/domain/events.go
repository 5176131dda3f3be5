package domain

import "encoding/json"

// EventKind identifies the kind of a simulation event.
type EventKind string

const (
	EventRoundStart EventKind = "round_start"
	EventDamage     EventKind = "damage"
	EventKO         EventKind = "ko"
	EventMatchEnd   EventKind = "match_end"
)

// Event is one discrete occurrence emitted by a simulation tick. Payload is
// one of the *Payload structs below, selected by Kind.
type Event struct {
	Kind    EventKind `json:"kind"`
	Payload any       `json:"payload"`
}

// UnmarshalJSON restores Payload to its concrete *Payload type instead of
// the map[string]any that encoding/json would otherwise hand an any field,
// so a decoded Event still compares equal to the one that produced it.
func (e *Event) UnmarshalJSON(data []byte) error {
	var wire struct {
		Kind    EventKind       `json:"kind"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	e.Kind = wire.Kind
	if len(wire.Payload) == 0 || string(wire.Payload) == "null" {
		e.Payload = nil
		return nil
	}

	switch wire.Kind {
	case EventRoundStart:
		var p RoundStartPayload
		if err := json.Unmarshal(wire.Payload, &p); err != nil {
			return err
		}
		e.Payload = p
	case EventDamage:
		var p DamagePayload
		if err := json.Unmarshal(wire.Payload, &p); err != nil {
			return err
		}
		e.Payload = p
	case EventKO:
		var p KOPayload
		if err := json.Unmarshal(wire.Payload, &p); err != nil {
			return err
		}
		e.Payload = p
	case EventMatchEnd:
		var p MatchEndPayload
		if err := json.Unmarshal(wire.Payload, &p); err != nil {
			return err
		}
		e.Payload = p
	default:
		var p any
		if err := json.Unmarshal(wire.Payload, &p); err != nil {
			return err
		}
		e.Payload = p
	}
	return nil
}

// RoundStartPayload announces a new round.
type RoundStartPayload struct {
	RoundNumber int `json:"roundNumber"`
}

// DamagePayload is emitted on every successful hit.
type DamagePayload struct {
	Attacker       PlayerSlot `json:"attacker"`
	Defender       PlayerSlot `json:"defender"`
	AttackKind     AttackKind `json:"attackKind"`
	Damage         int        `json:"damage"`
	IsCombo        bool       `json:"isCombo"`
	ComboIndex     int        `json:"comboIndex"`
	DefenderHealth int        `json:"defenderHealth"`
	Frame          int64      `json:"frame"`
}

// KOPayload is emitted the instant a fighter's health reaches zero.
type KOPayload struct {
	Loser PlayerSlot `json:"loser"`
	Frame int64      `json:"frame"`
}

// MatchEndPayload is emitted exactly once, when the match becomes terminal.
type MatchEndPayload struct {
	Winner   *PlayerSlot `json:"winner"`
	P1Rounds int         `json:"p1Rounds"`
	P2Rounds int         `json:"p2Rounds"`
}
