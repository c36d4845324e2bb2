package battle

import (
	"time"

	"uniraid-battle-service/internal/domain"
)

// Damage tiers by answer speed.
const (
	FastDamage   = 1.5
	NormalDamage = 1.0
	SlowDamage   = 0.5

	fastShare   = 0.33
	normalShare = 0.66
)

// OutcomeKind distinguishes boss damage from a player hit.
type OutcomeKind int

const (
	BossDamage OutcomeKind = iota
	PlayerHit
)

// Outcome is the result of resolving one answer.
type Outcome struct {
	Kind   OutcomeKind
	Amount float64
}

// ResolveAnswer converts a submission into boss damage or a player hit.
// Any non-matching selection, including an empty one, is a miss.
func ResolveAnswer(selected string, q domain.Question, remaining, limit time.Duration) Outcome {
	if selected == "" || selected != q.CorrectAnswer {
		return Outcome{Kind: PlayerHit}
	}
	return Outcome{Kind: BossDamage, Amount: damageForElapsed(limit-remaining, limit)}
}

func damageForElapsed(elapsed, limit time.Duration) float64 {
	switch {
	case elapsed.Seconds() <= limit.Seconds()*fastShare:
		return FastDamage
	case elapsed.Seconds() <= limit.Seconds()*normalShare:
		return NormalDamage
	default:
		return SlowDamage
	}
}
