// Package audit appends accepted player actions to a JSON-lines journal so
// a disputed buzz or wager can be checked after the game.
package audit

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"trebek-player/internal/session"
)

type Kind string

const (
	KindBuzz     Kind = "buzz"
	KindWager    Kind = "wager"
	KindAnswer   Kind = "answer"
	KindIdentity Kind = "identity"
)

// Entry is one journal line. Only the fields belonging to Kind are set.
type Entry struct {
	TsMS       int64             `json:"ts_ms"`
	Actor      string            `json:"actor"`
	Kind       Kind              `json:"kind"`
	QuestionID string            `json:"question_id,omitempty"`
	Amount     *int64            `json:"amount,omitempty"`
	Answer     string            `json:"answer,omitempty"`
	Identity   *session.Identity `json:"identity,omitempty"`
}

// Journal is safe to use as a nil pointer; every method is then a no-op.
type Journal struct {
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

// Open returns a nil Journal when path is empty.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &Journal{file: f, now: time.Now}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.file == nil {
		return nil
	}
	return j.file.Close()
}

func (j *Journal) Buzz(actor, questionID string) {
	j.append(Entry{Actor: actor, Kind: KindBuzz, QuestionID: questionID})
}

func (j *Journal) Wager(actor, questionID string, amount int64) {
	j.append(Entry{Actor: actor, Kind: KindWager, QuestionID: questionID, Amount: &amount})
}

func (j *Journal) Answer(actor, questionID, answer string) {
	j.append(Entry{Actor: actor, Kind: KindAnswer, QuestionID: questionID, Answer: answer})
}

// Identity records the identity as it stands after a change.
func (j *Journal) Identity(actor string, id session.Identity) {
	j.append(Entry{Actor: actor, Kind: KindIdentity, Identity: &id})
}

func (j *Journal) append(e Entry) {
	if j == nil || j.file == nil {
		return
	}
	e.TsMS = j.now().UnixMilli()
	line, err := json.Marshal(e)
	if err != nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	_, _ = j.file.Write(append(line, '\n'))
}
