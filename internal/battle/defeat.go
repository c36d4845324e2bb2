package battle

import (
	"time"

	"uniraid-battle-service/internal/domain"
)

// defeatSequence runs AwaitingMessage -> AwaitingCountdown -> Countdown(n) -> Terminal.
// Every step is scheduled relative to the previous one so the message always
// precedes the countdown regardless of tick jitter.
type defeatSequence struct {
	phase   domain.DefeatPhase
	next    time.Time
	count   int
	message string
	timing  DefeatTiming
}

// DefeatTiming holds the fixed offsets of the defeat sequence.
type DefeatTiming struct {
	MessageDelay   time.Duration
	CountdownDelay time.Duration
	CountdownFrom  int
	CountdownStep  time.Duration
}

func newDefeatSequence(timing DefeatTiming) defeatSequence {
	return defeatSequence{phase: domain.DefeatNone, timing: timing}
}

// start arms the sequence. It reports false if it already fired.
func (d *defeatSequence) start(at time.Time) bool {
	if d.phase != domain.DefeatNone {
		return false
	}
	d.phase = domain.DefeatAwaitingMessage
	d.next = at.Add(d.timing.MessageDelay)
	return true
}

func (d *defeatSequence) advance(now time.Time, bossName string) []domain.Event {
	var events []domain.Event
	for d.phase != domain.DefeatNone && d.phase != domain.DefeatTerminal && !now.Before(d.next) {
		switch d.phase {
		case domain.DefeatAwaitingMessage:
			d.message = bossName + " has been defeated!"
			d.phase = domain.DefeatAwaitingCountdown
			d.next = d.next.Add(d.timing.CountdownDelay)
			events = append(events, domain.Event{Type: domain.EvtDefeatMessage, Message: d.message})
		case domain.DefeatAwaitingCountdown:
			d.count = d.timing.CountdownFrom
			d.phase = domain.DefeatCountdown
			d.next = d.next.Add(d.timing.CountdownStep)
			events = append(events, domain.Event{Type: domain.EvtCountdown, Count: d.count})
		case domain.DefeatCountdown:
			d.count--
			d.next = d.next.Add(d.timing.CountdownStep)
			if d.count > 0 {
				events = append(events, domain.Event{Type: domain.EvtCountdown, Count: d.count})
				continue
			}
			d.phase = domain.DefeatTerminal
			d.message = ""
			events = append(events, domain.Event{Type: domain.EvtNavigateToResults})
		}
	}
	return events
}
