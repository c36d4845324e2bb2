package metrics

import (
	"net/http"

	"uniraid-battle-service/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Battle counts battle transitions. It registers into its own registry so
// tests can build as many as they like.
type Battle struct {
	registry *prometheus.Registry

	answers        *prometheus.CounterVec
	timeouts       prometheus.Counter
	knockouts      prometheus.Counter
	revivals       prometheus.Counter
	deaths         prometheus.Counter
	defeats        prometheus.Counter
	wipes          prometheus.Counter
	damage         prometheus.Counter
	activeSessions prometheus.Gauge
}

func New() *Battle {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Battle{
		registry: reg,
		answers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uniraid_answers_total",
			Help: "Resolved answers, partitioned by outcome. Timeouts count as misses.",
		}, []string{"outcome"}),
		timeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "uniraid_question_timeouts_total",
			Help: "Questions whose countdown ran out without an answer.",
		}),
		knockouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "uniraid_knockouts_total",
			Help: "Players knocked out after losing all lives.",
		}),
		revivals: factory.NewCounter(prometheus.CounterOpts{
			Name: "uniraid_revivals_total",
			Help: "Knocked-out players revived with a code.",
		}),
		deaths: factory.NewCounter(prometheus.CounterOpts{
			Name: "uniraid_deaths_total",
			Help: "Players whose revival window expired.",
		}),
		defeats: factory.NewCounter(prometheus.CounterOpts{
			Name: "uniraid_bosses_defeated_total",
			Help: "Bosses brought to zero health.",
		}),
		wipes: factory.NewCounter(prometheus.CounterOpts{
			Name: "uniraid_party_wipes_total",
			Help: "Battles lost because every player died.",
		}),
		damage: factory.NewCounter(prometheus.CounterOpts{
			Name: "uniraid_boss_damage_total",
			Help: "Damage dealt to bosses.",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "uniraid_active_sessions",
			Help: "Battle sessions currently running.",
		}),
	}
}

// Observe counts engine events.
func (m *Battle) Observe(events []domain.Event) {
	for _, ev := range events {
		switch ev.Type {
		case domain.EvtBossDamaged:
			m.answers.WithLabelValues("correct").Inc()
			m.damage.Add(ev.Amount)
		case domain.EvtPlayerHit:
			m.answers.WithLabelValues("miss").Inc()
		case domain.EvtQuestionTimedOut:
			m.timeouts.Inc()
		case domain.EvtKnockedOut:
			m.knockouts.Inc()
		case domain.EvtPlayerRevived:
			m.revivals.Inc()
		case domain.EvtPlayerDied:
			m.deaths.Inc()
		case domain.EvtBossDefeated:
			m.defeats.Inc()
		case domain.EvtPartyWiped:
			m.wipes.Inc()
		}
	}
}

func (m *Battle) SessionOpened() { m.activeSessions.Inc() }
func (m *Battle) SessionClosed() { m.activeSessions.Dec() }

// ActiveSessions and Revivals expose single series for assertions.
func (m *Battle) ActiveSessions() prometheus.Gauge { return m.activeSessions }
func (m *Battle) Revivals() prometheus.Counter    { return m.revivals }

// Gatherer exposes the registry, mainly for tests.
func (m *Battle) Gatherer() prometheus.Gatherer { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Battle) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
