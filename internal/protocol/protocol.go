package protocol

import "strconv"

// MessageType is the wire code identifying an envelope kind. Codes are
// stable integers shared with the game server.
type MessageType int

const (
	Error               MessageType = 0
	Ping                MessageType = 1
	AdminConnected      MessageType = 10
	PlayerConnected     MessageType = 12
	GameReset           MessageType = 21
	ChangeRound         MessageType = 22
	PopQuestion         MessageType = 30
	ClearQuestion       MessageType = 31
	RequireWager        MessageType = 32
	RequireAnswer       MessageType = 33
	PlayerBuzzed        MessageType = 40
	PlayerEnteredWager  MessageType = 43
	PlayerEnteredAnswer MessageType = 44
	UpdateScore         MessageType = 50
)

var typeNames = map[MessageType]string{
	Error:               "Error",
	Ping:                "Ping",
	AdminConnected:      "AdminConnected",
	PlayerConnected:     "PlayerConnected",
	GameReset:           "GameReset",
	ChangeRound:         "ChangeRound",
	PopQuestion:         "PopQuestion",
	ClearQuestion:       "ClearQuestion",
	RequireWager:        "RequireWager",
	RequireAnswer:       "RequireAnswer",
	PlayerBuzzed:        "PlayerBuzzed",
	PlayerEnteredWager:  "PlayerEnteredWager",
	PlayerEnteredAnswer: "PlayerEnteredAnswer",
	UpdateScore:         "UpdateScore",
}

// Known reports whether t is one of the codes this client understands.
func (t MessageType) Known() bool {
	_, ok := typeNames[t]
	return ok
}

func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Unhandled(" + strconv.Itoa(int(t)) + ")"
}

// Payload keys.
const (
	KeyError        = "error"
	KeyQuestionID   = "question_id"
	KeyQuestionText = "question_text"
	KeyMaxWager     = "max_wager"
	KeyMinWager     = "min_wager"
	KeyAmount       = "amount"
	KeyAnswer       = "answer"
	KeyScore        = "score"

	KeyGameKey    = "game_key"
	KeyPlayerID   = "player_id"
	KeyPlayerName = "player_name"
)

// Envelope is one protocol message. Data is never nil for envelopes built
// with NewEnvelope or returned by Decode.
type Envelope struct {
	Type MessageType
	Data Data
}

func NewEnvelope(msgType MessageType) Envelope {
	return Envelope{Type: msgType, Data: Data{}}
}

// With returns a copy of e with key set to v.
func (e Envelope) With(key string, v Value) Envelope {
	out := Envelope{Type: e.Type, Data: e.Data.Clone()}
	out.Data[key] = v
	return out
}

// Stamp returns a copy of e carrying the sender identity. It is applied
// by the transport right before a frame is written.
func (e Envelope) Stamp(gameKey string, playerID int64, playerName string) Envelope {
	out := Envelope{Type: e.Type, Data: e.Data.Clone()}
	out.Data[KeyGameKey] = StringValue(gameKey)
	out.Data[KeyPlayerID] = IntValue(playerID)
	out.Data[KeyPlayerName] = StringValue(playerName)
	return out
}

func NewPlayerConnected() Envelope {
	return NewEnvelope(PlayerConnected)
}

func NewPlayerBuzzed(questionID string) Envelope {
	return NewEnvelope(PlayerBuzzed).With(KeyQuestionID, StringValue(questionID))
}

func NewPlayerEnteredWager(amount int64) Envelope {
	return NewEnvelope(PlayerEnteredWager).With(KeyAmount, IntValue(amount))
}

func NewPlayerEnteredAnswer(answer string) Envelope {
	return NewEnvelope(PlayerEnteredAnswer).With(KeyAnswer, StringValue(answer))
}
