package domain

import "time"

// Question models a timed multiple-choice prompt.
type Question struct {
	ID               string   `json:"id"`
	Text             string   `json:"text"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
	AnswerOptions    []string `json:"answerOptions"`
	CorrectAnswer    string   `json:"correctAnswerText"`
}

// TimeLimit returns the question limit, defaulting to 30s when unset.
func (q Question) TimeLimit() time.Duration {
	if q.TimeLimitSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(q.TimeLimitSeconds) * time.Second
}

// Boss is the shared enemy and its question bank.
type Boss struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	MaxHealth float64    `json:"maxHealth"`
	Questions []Question `json:"questions"`
}

// PlayerStatus is the knockout lifecycle of a player.
type PlayerStatus string

const (
	StatusAlive      PlayerStatus = "alive"
	StatusKnockedOut PlayerStatus = "knocked_out"
	StatusDead       PlayerStatus = "dead"
)

// QuestionPhase is the per-player question cycle.
type QuestionPhase string

const (
	PhaseActive    QuestionPhase = "active"
	PhaseResolving QuestionPhase = "resolving"
)

// DefeatPhase tracks the boss-defeat sequence.
type DefeatPhase string

const (
	DefeatNone              DefeatPhase = "none"
	DefeatAwaitingMessage   DefeatPhase = "awaiting_message"
	DefeatAwaitingCountdown DefeatPhase = "awaiting_countdown"
	DefeatCountdown         DefeatPhase = "countdown"
	DefeatTerminal          DefeatPhase = "terminal"
)

// PublicQuestion is a question without its answer.
type PublicQuestion struct {
	ID               string   `json:"id"`
	Text             string   `json:"text"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
	AnswerOptions    []string `json:"answerOptions"`
}

// PlayerView is a snapshot of one participant.
type PlayerView struct {
	PlayerID              string          `json:"playerId"`
	DisplayName           string          `json:"displayName"`
	Connected             bool            `json:"connected"`
	Status                PlayerStatus    `json:"status"`
	LivesRemaining        int             `json:"livesRemaining"`
	RevivalCode           string          `json:"revivalCode,omitempty"`
	RevivalTimeRemaining  float64         `json:"revivalTimeRemaining"`
	CurrentQuestionIndex  int             `json:"currentQuestionIndex"`
	Phase                 QuestionPhase   `json:"phase"`
	Question              *PublicQuestion `json:"question,omitempty"`
	QuestionTimeRemaining float64         `json:"questionTimeRemaining"`
	SelectedOption        string          `json:"selectedOption,omitempty"`
	DamageDealt           float64         `json:"damageDealt"`
	CorrectAnswers        int             `json:"correctAnswers"`
	AnswersSubmitted      int             `json:"answersSubmitted"`
	Timeouts              int             `json:"timeouts"`
}

// KnockedOutTeammate is a revival ticket visible to the roster.
type KnockedOutTeammate struct {
	PlayerID        string  `json:"playerId"`
	DisplayName     string  `json:"displayName"`
	RevivalCode     string  `json:"revivalCode,omitempty"`
	TimeLeftSeconds float64 `json:"timeLeftSeconds"`
}

// DamageEvent is a short-lived floating damage number.
type DamageEvent struct {
	PlayerID  string    `json:"playerId"`
	Amount    float64   `json:"amount"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// BattleSnapshot is what subscribers render.
type BattleSnapshot struct {
	SessionID         string               `json:"sessionId"`
	BossID            string               `json:"bossId"`
	BossName          string               `json:"bossName"`
	BossMaxHealth     float64              `json:"bossMaxHealth"`
	BossCurrentHealth float64              `json:"bossCurrentHealth"`
	DefeatPhase       DefeatPhase          `json:"defeatPhase"`
	DefeatMessage     string               `json:"defeatMessage,omitempty"`
	Countdown         int                  `json:"countdown,omitempty"`
	Wiped             bool                 `json:"wiped,omitempty"`
	Players           []PlayerView         `json:"players"`
	KnockedOut        []KnockedOutTeammate `json:"knockedOut"`
	DamageEvents      []DamageEvent        `json:"damageEvents"`
	Version           int                  `json:"version"`
	UpdatedAt         time.Time            `json:"updatedAt"`
}

// Terminal reports whether the battle has finished.
func (s BattleSnapshot) Terminal() bool {
	return s.DefeatPhase == DefeatTerminal
}

// ForPlayer blanks the revival codes of everyone but playerID.
func (s BattleSnapshot) ForPlayer(playerID string) BattleSnapshot {
	out := s
	out.Players = make([]PlayerView, len(s.Players))
	for i, p := range s.Players {
		if p.PlayerID != playerID {
			p.RevivalCode = ""
		}
		out.Players[i] = p
	}
	out.KnockedOut = make([]KnockedOutTeammate, len(s.KnockedOut))
	for i, k := range s.KnockedOut {
		if k.PlayerID != playerID {
			k.RevivalCode = ""
		}
		out.KnockedOut[i] = k
	}
	return out
}

// AnswerSubmission models an answer sent by a client. Timestamp is the
// client's clock in unix millis and is only echoed back; timing uses the
// server clock.
type AnswerSubmission struct {
	QuestionID string
	Option     string
	Timestamp  int64
}

// AnswerResult summarizes the resolution of one submission.
type AnswerResult struct {
	QuestionID      string  `json:"questionId"`
	Correct         bool    `json:"correct"`
	Damage          float64 `json:"damage"`
	LivesRemaining  int     `json:"livesRemaining"`
	BossHealth      float64 `json:"bossHealth"`
	KnockedOut      bool    `json:"knockedOut"`
	QuestionIndex   int     `json:"questionIndex"`
	ElapsedSeconds  float64 `json:"elapsedSeconds"`
	ClientTimestamp int64   `json:"clientTimestamp,omitempty"`
}

// RevivalResult reports a successful redemption.
type RevivalResult struct {
	RevivedPlayerID string `json:"revivedPlayerId"`
	RedeemerID      string `json:"redeemerId"`
}

// PlayerResult is the per-player summary persisted when a battle ends.
type PlayerResult struct {
	SessionID        string
	BossID           string
	PlayerID         string
	DisplayName      string
	DamageDealt      float64
	CorrectAnswers   int
	AnswersSubmitted int
	Status           PlayerStatus
	FinishedAt       time.Time
}

// Accuracy is the share of correct answers, 0 when nothing was answered.
func (r PlayerResult) Accuracy() float64 {
	if r.AnswersSubmitted == 0 {
		return 0
	}
	return float64(r.CorrectAnswers) / float64(r.AnswersSubmitted)
}
