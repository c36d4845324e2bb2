package domain

// EventType names an observable side effect of a battle transition.
type EventType string

const (
	EvtBossDamaged       EventType = "BossDamaged"
	EvtPlayerHit         EventType = "PlayerHit"
	EvtQuestionTimedOut  EventType = "QuestionTimedOut"
	EvtQuestionAdvanced  EventType = "QuestionAdvanced"
	EvtKnockedOut        EventType = "KnockedOut"
	EvtAlertLoopStarted  EventType = "AlertLoopStarted"
	EvtAlertLoopStopped  EventType = "AlertLoopStopped"
	EvtHurtFeedback      EventType = "HurtFeedback"
	EvtPlayerDied        EventType = "PlayerDied"
	EvtPlayerRevived     EventType = "PlayerRevived"
	EvtBossDefeated      EventType = "BossDefeated"
	EvtDefeatMessage     EventType = "DefeatMessage"
	EvtCountdown         EventType = "Countdown"
	EvtNavigateToResults EventType = "NavigateToResults"
	EvtPartyWiped        EventType = "PartyWiped"
)

// Event is emitted by the battle engine, in the order transitions happened.
type Event struct {
	Type     EventType `json:"type"`
	PlayerID string    `json:"playerId,omitempty"`
	Amount   float64   `json:"amount,omitempty"`
	Count    int       `json:"count,omitempty"`
	Message  string    `json:"message,omitempty"`
}
