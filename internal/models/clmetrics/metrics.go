package clmetrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "biostore"

// Metrics regroupe les métriques applicatives. Un *Metrics nil est valide
// et n'enregistre rien.
type Metrics struct {
	// Événements
	ViewsTotal  *prometheus.CounterVec
	ClicksTotal *prometheus.CounterVec
	SalesTotal  *prometheus.CounterVec
	SalesAmount *prometheus.CounterVec

	// Compteurs dénormalisés non mis à jour
	CounterFailuresTotal *prometheus.CounterVec

	// Durée des agrégations
	RollupDuration *prometheus.HistogramVec

	// Requêtes HTTP
	RequestDuration *prometheus.HistogramVec

	// Réconciliation des compteurs
	ReconcileRunsTotal *prometheus.CounterVec
}

// New enregistre les métriques sur reg (prometheus.DefaultRegisterer en production)
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ViewsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "page_views_total",
				Help:      "Nombre de vues de page enregistrées",
			},
			[]string{"device"},
		),
		ClicksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "component_clicks_total",
				Help:      "Nombre de clics enregistrés par type de composant",
			},
			[]string{"component_type"},
		),
		SalesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sales_total",
				Help:      "Nombre de ventes enregistrées",
			},
			[]string{"source"},
		),
		SalesAmount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sales_amount_total",
				Help:      "Somme des prix et commissions des ventes",
			},
			[]string{"kind"},
		),
		CounterFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "counter_update_failures_total",
				Help:      "Incréments de compteur perdus après un événement enregistré",
			},
			[]string{"counter"},
		),
		RollupDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rollup_duration_seconds",
				Help:      "Durée de calcul des agrégations",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms, 2ms, 4ms...
			},
			[]string{"rollup"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Durée des requêtes HTTP",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		ReconcileRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "counter_reconcile_runs_total",
				Help:      "Exécutions de la réconciliation des compteurs",
			},
			[]string{"result"},
		),
	}
}

// RecordView compte une vue
func (m *Metrics) RecordView(device string) {
	if m == nil {
		return
	}
	m.ViewsTotal.WithLabelValues(device).Inc()
}

// RecordClick compte un clic
func (m *Metrics) RecordClick(componentType string) {
	if m == nil {
		return
	}
	m.ClicksTotal.WithLabelValues(componentType).Inc()
}

// RecordSale compte une vente et ses montants
func (m *Metrics) RecordSale(source string, price, commission float64) {
	if m == nil {
		return
	}
	m.SalesTotal.WithLabelValues(source).Inc()
	m.SalesAmount.WithLabelValues("revenue").Add(price)
	m.SalesAmount.WithLabelValues("commission").Add(commission)
}

// RecordCounterFailure compte un compteur dénormalisé non incrémenté
func (m *Metrics) RecordCounterFailure(counter string) {
	if m == nil {
		return
	}
	m.CounterFailuresTotal.WithLabelValues(counter).Inc()
}

// ObserveRollup mesure la durée depuis start
func (m *Metrics) ObserveRollup(rollup string, start time.Time) {
	if m == nil {
		return
	}
	m.RollupDuration.WithLabelValues(rollup).Observe(time.Since(start).Seconds())
}

// ObserveRequest mesure une requête HTTP
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// RecordReconcile compte une exécution de la réconciliation
func (m *Metrics) RecordReconcile(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ReconcileRunsTotal.WithLabelValues(result).Inc()
}
