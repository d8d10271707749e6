package game

const (
	StatusConnecting      = "Connecting…"
	StatusWaitingAdmin    = "Waiting for admin…"
	StatusWaitingQuestion = "Waiting for question…"
)

// State is the client-side game state. It is owned by the Reducer.
type State struct {
	AdminConnected bool   `json:"admin_connected"`
	Score          int64  `json:"score"`
	MinWager       int64  `json:"min_wager"`
	MaxWager       int64  `json:"max_wager"`
	QuestionID     string `json:"question_id,omitempty"`
	QuestionText   string `json:"question_text,omitempty"`
	WagerPrompt    bool   `json:"wager_prompt"`
	AnswerPrompt   bool   `json:"answer_prompt"`
}

func NewState() State {
	return State{}
}

func (s State) HasQuestion() bool {
	return s.QuestionID != ""
}

// DisplayText derives what the player sees in the status area.
func DisplayText(connected bool, s State) string {
	switch {
	case !connected:
		return StatusConnecting
	case !s.AdminConnected:
		return StatusWaitingAdmin
	case !s.HasQuestion():
		return StatusWaitingQuestion
	default:
		return s.QuestionText
	}
}

// View is the presentation-facing projection of State.
type View struct {
	Connected    bool   `json:"connected"`
	DisplayText  string `json:"display_text"`
	WagerPrompt  bool   `json:"wager_prompt"`
	MinWager     int64  `json:"min_wager"`
	MaxWager     int64  `json:"max_wager"`
	AnswerPrompt bool   `json:"answer_prompt"`
	BuzzVisible  bool   `json:"buzz_visible"`
	Score        int64  `json:"score"`
}

func buildView(connected bool, s State) View {
	return View{
		Connected:    connected,
		DisplayText:  DisplayText(connected, s),
		WagerPrompt:  s.WagerPrompt,
		MinWager:     s.MinWager,
		MaxWager:     s.MaxWager,
		AnswerPrompt: s.AnswerPrompt,
		BuzzVisible:  connected && s.AdminConnected && s.HasQuestion() && !s.WagerPrompt && !s.AnswerPrompt,
		Score:        s.Score,
	}
}

// Presenter receives view changes. Implementations must not call back into
// the Reducer synchronously.
type Presenter interface {
	DisplayText(text string)
	WagerPrompt(visible bool, minWager, maxWager int64)
	AnswerPrompt(visible bool)
	BuzzAffordance(visible bool)
	Score(score int64)
}

type nopPresenter struct{}

func (nopPresenter) DisplayText(string)             {}
func (nopPresenter) WagerPrompt(bool, int64, int64) {}
func (nopPresenter) AnswerPrompt(bool)              {}
func (nopPresenter) BuzzAffordance(bool)            {}
func (nopPresenter) Score(int64)                    {}

func present(p Presenter, prev, next View, first bool) {
	if first || prev.DisplayText != next.DisplayText {
		p.DisplayText(next.DisplayText)
	}
	if first || prev.WagerPrompt != next.WagerPrompt || prev.MinWager != next.MinWager || prev.MaxWager != next.MaxWager {
		p.WagerPrompt(next.WagerPrompt, next.MinWager, next.MaxWager)
	}
	if first || prev.AnswerPrompt != next.AnswerPrompt {
		p.AnswerPrompt(next.AnswerPrompt)
	}
	if first || prev.BuzzVisible != next.BuzzVisible {
		p.BuzzAffordance(next.BuzzVisible)
	}
	if first || prev.Score != next.Score {
		p.Score(next.Score)
	}
}
