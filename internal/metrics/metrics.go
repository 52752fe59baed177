package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quiz-session-engine/internal/domain"
)

// Recorder counts engine events. It is wired in as a notifier.
type Recorder struct {
	registry      *prometheus.Registry
	roundsOpened  prometheus.Counter
	roundsClosed  prometheus.Counter
	answers       prometheus.Counter
	reveals       prometheus.Counter
	sessionsEnded prometheus.Counter
	topScore      *prometheus.GaugeVec
	roundPlayers  prometheus.Histogram
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		roundsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quiz", Name: "rounds_opened_total", Help: "Rounds opened.",
		}),
		roundsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quiz", Name: "rounds_closed_total", Help: "Rounds closed by the answer window.",
		}),
		answers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quiz", Name: "answers_accepted_total", Help: "Answers accepted during open rounds.",
		}),
		reveals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quiz", Name: "answers_revealed_total", Help: "Moderator reveals.",
		}),
		sessionsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quiz", Name: "sessions_ended_total", Help: "Sessions that reached the ended phase.",
		}),
		topScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "quiz", Name: "session_top_score", Help: "Leading score per session after the last closed round.",
		}, []string{"session"}),
		roundPlayers: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quiz", Name: "round_participants", Help: "Participants ranked when a round closes.",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		}),
	}
	r.registry.MustRegister(
		r.roundsOpened, r.roundsClosed, r.answers, r.reveals, r.sessionsEnded, r.topScore, r.roundPlayers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry so other collectors can be added.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) RoundOpened(context.Context, domain.RoundOpened) {
	r.roundsOpened.Inc()
}

func (r *Recorder) AnswerAccepted(context.Context, string, string) {
	r.answers.Inc()
}

func (r *Recorder) RoundClosed(_ context.Context, e domain.RoundClosed) {
	r.roundsClosed.Inc()
	r.roundPlayers.Observe(float64(len(e.Standings.Entries)))
	top := 0
	if len(e.Standings.Entries) > 0 {
		top = e.Standings.Entries[0].Score
	}
	r.topScore.WithLabelValues(e.SessionID).Set(float64(top))
}

func (r *Recorder) AnswerRevealed(context.Context, domain.RoundClosed) {
	r.reveals.Inc()
}

func (r *Recorder) SessionEnded(_ context.Context, standings domain.Standings) {
	r.sessionsEnded.Inc()
	r.topScore.DeleteLabelValues(standings.SessionID)
}
