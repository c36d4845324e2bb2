package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no battle is running for a boss.
	ErrSessionNotFound = errors.New("battle session not found")
	// ErrParticipantNotFound is returned when a user tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found in battle")
	// ErrBossNotFound indicates the boss content could not be loaded.
	ErrBossNotFound = errors.New("boss not found")
	// ErrNoQuestions indicates a boss has an empty question bank.
	ErrNoQuestions = errors.New("boss has no questions")
	// ErrAnswerRejected is returned when the player's question is not accepting input.
	ErrAnswerRejected = errors.New("answer rejected")
	// ErrInvalidRevivalCode is returned when a code matches no knocked-out player.
	ErrInvalidRevivalCode = errors.New("invalid revival code")
	// ErrRevivalRejected is returned when the redeemer is not allowed to revive.
	ErrRevivalRejected = errors.New("revival rejected")
	// ErrSessionTerminal is returned for mutations after boss defeat or player death.
	ErrSessionTerminal = errors.New("battle session is over")
)
