package battle

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"uniraid-battle-service/internal/domain"
)

// Config holds the rules of one battle.
type Config struct {
	MaxLives       int
	SettleDelay    time.Duration
	RevivalWindow  time.Duration
	DamageEventTTL time.Duration
	Defeat         DefeatTiming

	// Codes overrides revival code generation; nil uses GenerateRevivalCode.
	Codes CodeGenerator
	// Rand drives damage popup positions; nil seeds from the clock.
	Rand *rand.Rand
}

// DefaultConfig returns the standard battle rules.
func DefaultConfig() Config {
	return Config{
		MaxLives:       3,
		SettleDelay:    time.Second,
		RevivalWindow:  60 * time.Second,
		DamageEventTTL: 2 * time.Second,
		Defeat: DefeatTiming{
			MessageDelay:   time.Second,
			CountdownDelay: time.Second,
			CountdownFrom:  5,
			CountdownStep:  time.Second,
		},
	}
}

type player struct {
	id        string
	name      string
	connected bool
	lives     int
	status domain.PlayerStatus
	code   string

	revival  Countdown
	qTimer   Countdown
	phase    domain.QuestionPhase
	qIndex   int
	bankPos  int
	question domain.Question
	settleAt time.Time
	selected string

	damage    float64
	correct   int
	submitted int
	timeouts  int
}

// Engine is the authoritative state of one boss battle. It is not safe for
// concurrent use; every method takes the current time from the caller's clock.
type Engine struct {
	id      string
	boss    domain.Boss
	cfg     Config
	health  float64
	players map[string]*player
	order   []string
	defeat  defeatSequence
	popups  []domain.DamageEvent
	rnd     *rand.Rand
	version int
	wiped   bool
}

// New creates a battle for boss. The boss must have at least one question.
func New(id string, boss domain.Boss, cfg Config) (*Engine, error) {
	if len(boss.Questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	if cfg.Codes == nil {
		cfg.Codes = GenerateRevivalCode
	}
	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		id:      id,
		boss:    boss,
		cfg:     cfg,
		health:  boss.MaxHealth,
		players: make(map[string]*player),
		defeat:  newDefeatSequence(cfg.Defeat),
		rnd:     rnd,
	}, nil
}

// ID returns the session id.
func (e *Engine) ID() string { return e.id }

// Health returns the boss's current health.
func (e *Engine) Health() float64 { return e.health }

// Terminal reports whether the defeat sequence has completed.
func (e *Engine) Terminal() bool { return e.defeat.phase == domain.DefeatTerminal }

// Empty reports whether no player is connected.
func (e *Engine) Empty() bool {
	for _, p := range e.players {
		if p.connected {
			return false
		}
	}
	return true
}

// Join adds a player. A player already known to the battle is reconnected
// with the state they left with; only new players are refused once the boss
// is down.
func (e *Engine) Join(playerID, displayName string, now time.Time) error {
	if p, ok := e.players[playerID]; ok {
		if e.Terminal() {
			return domain.ErrSessionTerminal
		}
		p.name = displayName
		p.connected = true
		e.version++
		return nil
	}
	if e.defeat.phase != domain.DefeatNone {
		return domain.ErrSessionTerminal
	}
	p := &player{
		id:        playerID,
		name:      displayName,
		connected: true,
		lives:     e.cfg.MaxLives,
		status:    domain.StatusAlive,
		phase:     domain.PhaseActive,
		qIndex:    1,
		question:  e.boss.Questions[0],
	}
	p.revival.Set(e.cfg.RevivalWindow)
	p.qTimer.Start(now, p.question.TimeLimit())
	e.players[playerID] = p
	e.order = append(e.order, playerID)
	e.version++
	return nil
}

// Leave marks a player disconnected. Their lives, status, revival ticket and
// stats stay with the battle, and their clocks keep running.
func (e *Engine) Leave(playerID string) {
	p, ok := e.players[playerID]
	if !ok || !p.connected {
		return
	}
	p.connected = false
	e.version++
}

// SubmitAnswer resolves a player's answer to their current question.
func (e *Engine) SubmitAnswer(playerID, questionID, selected string, now time.Time) (domain.AnswerResult, []domain.Event, error) {
	events := e.Advance(now)

	if e.defeat.phase != domain.DefeatNone {
		return domain.AnswerResult{}, events, domain.ErrSessionTerminal
	}
	p, ok := e.players[playerID]
	if !ok {
		return domain.AnswerResult{}, events, domain.ErrParticipantNotFound
	}
	switch {
	case p.status == domain.StatusDead:
		return domain.AnswerResult{}, events, domain.ErrSessionTerminal
	case p.status == domain.StatusKnockedOut:
		return domain.AnswerResult{}, events, fmt.Errorf("%w: player is knocked out", domain.ErrAnswerRejected)
	case p.phase != domain.PhaseActive:
		return domain.AnswerResult{}, events, fmt.Errorf("%w: question %d already resolved", domain.ErrAnswerRejected, p.qIndex)
	case questionID != p.question.ID:
		return domain.AnswerResult{}, events, fmt.Errorf("%w: question %q is not active", domain.ErrAnswerRejected, questionID)
	}

	limit := p.question.TimeLimit()
	remaining := p.qTimer.Remaining(now)
	outcome := ResolveAnswer(selected, p.question, remaining, limit)
	result := domain.AnswerResult{
		QuestionID:     p.question.ID,
		Correct:        outcome.Kind == BossDamage,
		Damage:         outcome.Amount,
		QuestionIndex:  p.qIndex,
		ElapsedSeconds: (limit - remaining).Seconds(),
	}

	resolved := e.resolve(p, outcome, selected, now)
	e.bump(resolved)
	events = append(events, resolved...)

	result.LivesRemaining = p.lives
	result.BossHealth = e.health
	result.KnockedOut = p.status == domain.StatusKnockedOut
	return result, events, nil
}

// RedeemRevivalCode revives the knocked-out player holding code.
func (e *Engine) RedeemRevivalCode(code, redeemerID string, now time.Time) (domain.RevivalResult, []domain.Event, error) {
	events := e.Advance(now)

	if e.defeat.phase != domain.DefeatNone {
		return domain.RevivalResult{}, events, domain.ErrSessionTerminal
	}
	redeemer, ok := e.players[redeemerID]
	if !ok {
		return domain.RevivalResult{}, events, domain.ErrParticipantNotFound
	}
	switch redeemer.status {
	case domain.StatusDead:
		return domain.RevivalResult{}, events, domain.ErrSessionTerminal
	case domain.StatusKnockedOut:
		return domain.RevivalResult{}, events, fmt.Errorf("%w: redeemer is knocked out", domain.ErrRevivalRejected)
	}

	code = NormalizeCode(code)
	var target *player
	if len(code) == revivalCodeLength {
		for _, id := range e.order {
			p := e.players[id]
			if p.status == domain.StatusKnockedOut && p.code == code {
				target = p
				break
			}
		}
	}
	if target == nil {
		return domain.RevivalResult{}, events, domain.ErrInvalidRevivalCode
	}

	target.status = domain.StatusAlive
	target.lives = e.cfg.MaxLives
	target.code = ""
	target.revival.Set(e.cfg.RevivalWindow)
	if target.phase == domain.PhaseActive {
		target.qTimer.Resume(now)
	}
	revived := []domain.Event{
		{Type: domain.EvtAlertLoopStopped, PlayerID: target.id},
		{Type: domain.EvtPlayerRevived, PlayerID: target.id},
	}
	e.bump(revived)
	return domain.RevivalResult{RevivedPlayerID: target.id, RedeemerID: redeemerID}, append(events, revived...), nil
}

// Advance feeds the clock to every countdown and returns what happened.
func (e *Engine) Advance(now time.Time) []domain.Event {
	e.prunePopups(now)
	if e.defeat.phase == domain.DefeatTerminal {
		return nil
	}

	var events []domain.Event
	if e.defeat.phase == domain.DefeatNone {
		for _, id := range e.order {
			events = append(events, e.advancePlayer(e.players[id], now)...)
		}
		if e.allDead() {
			events = append(events, e.wipe()...)
		}
	}
	if e.defeat.phase != domain.DefeatNone {
		wasTerminal := e.Terminal()
		events = append(events, e.defeat.advance(now, e.boss.Name)...)
		if !wasTerminal && e.Terminal() {
			events = append(events, e.stopAlerts()...)
		}
	}
	e.bump(events)
	return events
}

func (e *Engine) advancePlayer(p *player, now time.Time) []domain.Event {
	var events []domain.Event
	for {
		switch {
		case p.status == domain.StatusDead:
			return events
		case p.status == domain.StatusKnockedOut && p.revival.Expired(now):
			p.revival.Pause(now)
			p.status = domain.StatusDead
			p.code = ""
			events = append(events,
				domain.Event{Type: domain.EvtAlertLoopStopped, PlayerID: p.id},
				domain.Event{Type: domain.EvtHurtFeedback, PlayerID: p.id},
				domain.Event{Type: domain.EvtPlayerDied, PlayerID: p.id},
			)
		case p.phase == domain.PhaseResolving && !now.Before(p.settleAt):
			events = append(events, e.nextQuestion(p))
		case p.status == domain.StatusAlive && p.phase == domain.PhaseActive && p.qTimer.Expired(now):
			at := p.qTimer.Deadline()
			p.timeouts++
			events = append(events, domain.Event{Type: domain.EvtQuestionTimedOut, PlayerID: p.id})
			events = append(events, e.resolve(p, Outcome{Kind: PlayerHit}, "", at)...)
		default:
			return events
		}
	}
}

// resolve applies an outcome at time at and enters the settle delay.
func (e *Engine) resolve(p *player, outcome Outcome, selected string, at time.Time) []domain.Event {
	var events []domain.Event
	p.selected = selected
	p.submitted++
	p.phase = domain.PhaseResolving
	p.settleAt = at.Add(e.cfg.SettleDelay)
	p.qTimer.Pause(at)

	switch outcome.Kind {
	case BossDamage:
		dealt := math.Min(outcome.Amount, e.health)
		e.health = math.Max(0, e.health-outcome.Amount)
		p.damage += dealt
		p.correct++
		events = append(events, domain.Event{Type: domain.EvtBossDamaged, PlayerID: p.id, Amount: outcome.Amount})
		e.popups = append(e.popups, domain.DamageEvent{
			PlayerID:  p.id,
			Amount:    outcome.Amount,
			X:         10 + e.rnd.Float64()*80,
			Y:         10 + e.rnd.Float64()*50,
			ExpiresAt: at.Add(e.cfg.DamageEventTTL),
		})
		if e.health == 0 {
			events = append(events, e.startDefeat(at)...)
		}
	case PlayerHit:
		if p.lives > 0 {
			p.lives--
		}
		events = append(events, domain.Event{Type: domain.EvtPlayerHit, PlayerID: p.id})
		if p.lives == 0 && p.status == domain.StatusAlive {
			events = append(events, e.knockOut(p, at)...)
		}
	}
	return events
}

func (e *Engine) knockOut(p *player, at time.Time) []domain.Event {
	p.status = domain.StatusKnockedOut
	p.code = uniqueCode(e.cfg.Codes, e.rnd, e.codeInUse)
	p.revival.Start(at, e.cfg.RevivalWindow)
	p.qTimer.Pause(at)
	return []domain.Event{
		{Type: domain.EvtKnockedOut, PlayerID: p.id},
		{Type: domain.EvtAlertLoopStarted, PlayerID: p.id},
	}
}

func (e *Engine) codeInUse(code string) bool {
	for _, p := range e.players {
		if p.status == domain.StatusKnockedOut && p.code == code {
			return true
		}
	}
	return false
}

// nextQuestion leaves the settle delay and moves to the next question in the bank.
func (e *Engine) nextQuestion(p *player) domain.Event {
	p.qIndex++
	p.bankPos = (p.bankPos + 1) % len(e.boss.Questions)
	p.question = e.boss.Questions[p.bankPos]
	p.phase = domain.PhaseActive
	p.selected = ""
	if p.status == domain.StatusAlive {
		p.qTimer.Start(p.settleAt, p.question.TimeLimit())
	} else {
		p.qTimer.Set(p.question.TimeLimit())
	}
	return domain.Event{Type: domain.EvtQuestionAdvanced, PlayerID: p.id, Count: p.qIndex}
}

// startDefeat is edge-triggered: it fires only on the first transition to 0.
func (e *Engine) startDefeat(at time.Time) []domain.Event {
	if !e.defeat.start(at) {
		return nil
	}
	for _, p := range e.players {
		p.qTimer.Pause(at)
		p.revival.Pause(at)
	}
	return []domain.Event{{Type: domain.EvtBossDefeated, Message: e.boss.Name}}
}

func (e *Engine) allDead() bool {
	if len(e.order) == 0 {
		return false
	}
	for _, id := range e.order {
		if e.players[id].status != domain.StatusDead {
			return false
		}
	}
	return true
}

// wipe ends the battle at once when no player can act or be revived.
func (e *Engine) wipe() []domain.Event {
	e.wiped = true
	e.defeat.phase = domain.DefeatTerminal
	return []domain.Event{
		{Type: domain.EvtPartyWiped, Message: e.boss.Name},
		{Type: domain.EvtNavigateToResults},
	}
}

func (e *Engine) stopAlerts() []domain.Event {
	var events []domain.Event
	for _, id := range e.order {
		if e.players[id].status == domain.StatusKnockedOut {
			events = append(events, domain.Event{Type: domain.EvtAlertLoopStopped, PlayerID: id})
		}
	}
	return events
}

func (e *Engine) prunePopups(now time.Time) {
	kept := e.popups[:0]
	for _, ev := range e.popups {
		if now.Before(ev.ExpiresAt) {
			kept = append(kept, ev)
		}
	}
	e.popups = kept
}

func (e *Engine) bump(events []domain.Event) {
	if len(events) > 0 {
		e.version++
	}
}

// Snapshot renders the battle as of now.
func (e *Engine) Snapshot(now time.Time) domain.BattleSnapshot {
	snap := domain.BattleSnapshot{
		SessionID:         e.id,
		BossID:            e.boss.ID,
		BossName:          e.boss.Name,
		BossMaxHealth:     e.boss.MaxHealth,
		BossCurrentHealth: e.health,
		DefeatPhase:       e.defeat.phase,
		DefeatMessage:     e.defeat.message,
		Wiped:             e.wiped,
		Players:           make([]domain.PlayerView, 0, len(e.order)),
		KnockedOut:        []domain.KnockedOutTeammate{},
		DamageEvents:      []domain.DamageEvent{},
		Version:           e.version,
		UpdatedAt:         now,
	}
	if e.defeat.phase == domain.DefeatCountdown {
		snap.Countdown = e.defeat.count
	}
	for _, ev := range e.popups {
		if now.Before(ev.ExpiresAt) {
			snap.DamageEvents = append(snap.DamageEvents, ev)
		}
	}
	for _, id := range e.order {
		p := e.players[id]
		q := p.question
		snap.Players = append(snap.Players, domain.PlayerView{
			PlayerID:             p.id,
			DisplayName:          p.name,
			Connected:            p.connected,
			Status:               p.status,
			LivesRemaining:       p.lives,
			RevivalCode:          p.code,
			RevivalTimeRemaining: p.revival.Remaining(now).Seconds(),
			CurrentQuestionIndex: p.qIndex,
			Phase:                p.phase,
			Question: &domain.PublicQuestion{
				ID:               q.ID,
				Text:             q.Text,
				TimeLimitSeconds: int(q.TimeLimit().Seconds()),
				AnswerOptions:    append([]string(nil), q.AnswerOptions...),
			},
			QuestionTimeRemaining: p.qTimer.Remaining(now).Seconds(),
			SelectedOption:        p.selected,
			DamageDealt:           p.damage,
			CorrectAnswers:        p.correct,
			AnswersSubmitted:      p.submitted,
			Timeouts:              p.timeouts,
		})
		if p.status == domain.StatusKnockedOut {
			snap.KnockedOut = append(snap.KnockedOut, domain.KnockedOutTeammate{
				PlayerID:        p.id,
				DisplayName:     p.name,
				RevivalCode:     p.code,
				TimeLeftSeconds: p.revival.Remaining(now).Seconds(),
			})
		}
	}
	return snap
}

// Results summarizes every player, for leaderboard persistence.
func (e *Engine) Results(now time.Time) []domain.PlayerResult {
	results := make([]domain.PlayerResult, 0, len(e.order))
	for _, id := range e.order {
		p := e.players[id]
		results = append(results, domain.PlayerResult{
			SessionID:        e.id,
			BossID:           e.boss.ID,
			PlayerID:         p.id,
			DisplayName:      p.name,
			DamageDealt:      p.damage,
			CorrectAnswers:   p.correct,
			AnswersSubmitted: p.submitted,
			Status:           p.status,
			FinishedAt:       now,
		})
	}
	return results
}
