package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/ross1116/pokebattle/internal/battle"
)

type envelope struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type message interface {
	Kind() Kind
}

// Encode frames a message as {"type": ..., "data": ...}.
func Encode(m message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Kind(), err)
	}
	return json.Marshal(envelope{Type: m.Kind(), Data: data})
}

// DecodeServer parses a frame produced by Encode for a ServerMessage.
func DecodeServer(b []byte) (ServerMessage, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", battle.ErrProtocolViolation, err)
	}
	var (
		m   ServerMessage
		err error
	)
	switch env.Type {
	case KindPlayerData:
		m = decode[PlayerData](env.Data, &err)
	case KindAddOpponent:
		m = decode[AddOpponent](env.Data, &err)
	case KindRequest:
		m = decode[Request](env.Data, &err)
	case KindResults:
		m = decode[Results](env.Data, &err)
	case KindReveal:
		m = decode[Reveal](env.Data, &err)
	case KindReplace:
		m = decode[Replace](env.Data, &err)
	case KindRejected:
		m = decode[Rejected](env.Data, &err)
	case KindResync:
		m = decode[Resync](env.Data, &err)
	case KindEnd:
		m = decode[End](env.Data, &err)
	default:
		return nil, fmt.Errorf("%w: unknown server message %q", battle.ErrProtocolViolation, env.Type)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeClient parses a frame sent by a participant. Anything malformed is a
// protocol violation.
func DecodeClient(b []byte) (ClientMessage, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", battle.ErrProtocolViolation, err)
	}
	var err error
	switch env.Type {
	case KindSelect:
		m := decode[Select](env.Data, &err)
		if err != nil {
			return nil, err
		}
		var shape struct {
			Selection struct {
				Kind *battle.SelectionKind `json:"kind"`
			} `json:"selection"`
		}
		if json.Unmarshal(env.Data, &shape) != nil || shape.Selection.Kind == nil {
			return nil, fmt.Errorf("%w: select without a selection kind", battle.ErrProtocolViolation)
		}
		return m, nil
	case KindForfeit:
		return Forfeit{}, nil
	}
	return nil, fmt.Errorf("%w: unknown client message %q", battle.ErrProtocolViolation, env.Type)
}

func decode[T any](data json.RawMessage, errp *error) T {
	var v T
	if len(data) == 0 {
		*errp = fmt.Errorf("%w: %T without data", battle.ErrProtocolViolation, v)
		return v
	}
	if err := json.Unmarshal(data, &v); err != nil {
		*errp = fmt.Errorf("%w: %T: %v", battle.ErrProtocolViolation, v, err)
	}
	return v
}
