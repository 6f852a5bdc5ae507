package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSucceeded = "succeeded"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Purchase holds the collectors of the purchase core.
type Purchase struct {
	purchases            *prometheus.CounterVec
	duration             *prometheus.HistogramVec
	ticketsIssued        prometheus.Counter
	notificationFailures prometheus.Counter
}

// NewPurchase registers the purchase collectors on reg.
func NewPurchase(reg prometheus.Registerer) *Purchase {
	f := promauto.With(reg)
	return &Purchase{
		purchases: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticketbox_purchases_total",
				Help: "Purchase attempts by payment method and outcome",
			},
			[]string{"method", "outcome"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ticketbox_purchase_duration_seconds",
				Help:    "Time spent processing a purchase",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ticketsIssued: f.NewCounter(
			prometheus.CounterOpts{
				Name: "ticketbox_tickets_issued_total",
				Help: "Tickets minted by committed purchases",
			},
		),
		notificationFailures: f.NewCounter(
			prometheus.CounterOpts{
				Name: "ticketbox_notification_failures_total",
				Help: "Ticket emails that could not be delivered",
			},
		),
	}
}

// ObservePurchase records one finished purchase attempt.
func (p *Purchase) ObservePurchase(method, outcome string, elapsed time.Duration) {
	if p == nil {
		return
	}
	p.purchases.WithLabelValues(method, outcome).Inc()
	p.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (p *Purchase) TicketsIssued(n int) {
	if p == nil {
		return
	}
	p.ticketsIssued.Add(float64(n))
}

func (p *Purchase) NotificationFailed() {
	if p == nil {
		return
	}
	p.notificationFailures.Inc()
}
