package relay

import (
	"errors"
	"strings"
)

// TextMessage is an inbound text event.
type TextMessage struct {
	OwnerID   int64
	ChatID    int64
	MessageID int
	Text      string
}

// CallbackAction is an inbound press of one of the delivery controls.
type CallbackAction struct {
	OwnerID    int64
	ChatID     int64
	CallbackID string
	MessageID  int
	Data       string
}

// ErrUnknownAction reports callback data that does not name a known action.
var ErrUnknownAction = errors.New("unknown callback action")

// ActionKind names a follow-up action on a delivered video.
type ActionKind string

const (
	ActionExtract ActionKind = "extract"
	ActionDiscard ActionKind = "discard"
)

// Action is parsed callback data.
type Action struct {
	Kind       ActionKind
	ArtifactID string
}

// ParseAction decodes "extract:<id>" or "discard:<id>".
func ParseAction(data string) (Action, error) {
	kind, id, ok := strings.Cut(strings.TrimSpace(data), ":")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return Action{}, ErrUnknownAction
	}
	switch ActionKind(kind) {
	case ActionExtract, ActionDiscard:
		return Action{Kind: ActionKind(kind), ArtifactID: id}, nil
	default:
		return Action{}, ErrUnknownAction
	}
}

// Data encodes the action for a control payload.
func (a Action) Data() string {
	return string(a.Kind) + ":" + a.ArtifactID
}

// Control is an inline button attached to a delivered video.
type Control struct {
	Label string
	Data  string
}

// Controls returns the follow-up buttons for artifactID.
func Controls(artifactID string) []Control {
	return []Control{
		{Label: "🎵 Extract audio", Data: Action{Kind: ActionExtract, ArtifactID: artifactID}.Data()},
		{Label: "🗑 Discard", Data: Action{Kind: ActionDiscard, ArtifactID: artifactID}.Data()},
	}
}
