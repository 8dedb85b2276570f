package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cogscreen-service/internal/domain"
)

// Metrics groups the Prometheus instruments of the service. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	QuestionsServed     *prometheus.CounterVec
	AnswersScored       *prometheus.CounterVec
	AssessmentsComplete *prometheus.CounterVec
	CollaboratorErrors  *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
}

// NewMetrics registers instruments on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		QuestionsServed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_served_total",
			Help:      "Screening questions served by domain.",
		}, []string{"domain"}),
		AnswersScored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_scored_total",
			Help:      "Answers scored by domain.",
		}, []string{"domain"}),
		AssessmentsComplete: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_completed_total",
			Help:      "Finished assessments by risk label.",
		}, []string{"label"}),
		CollaboratorErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_errors_total",
			Help:      "Failures of external collaborators by kind.",
		}, []string{"kind"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) QuestionServed(d domain.Domain) {
	if m == nil {
		return
	}
	m.QuestionsServed.WithLabelValues(string(d)).Inc()
}

func (m *Metrics) AnswerScored(d domain.Domain) {
	if m == nil {
		return
	}
	m.AnswersScored.WithLabelValues(string(d)).Inc()
}

func (m *Metrics) AssessmentCompleted(label domain.RiskLabel) {
	if m == nil {
		return
	}
	m.AssessmentsComplete.WithLabelValues(string(label)).Inc()
}

// CollaboratorFailed counts a failure of kind (classifier, explainer, store, progress, cipher).
func (m *Metrics) CollaboratorFailed(kind string) {
	if m == nil {
		return
	}
	m.CollaboratorErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) RequestServed(route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, status).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
