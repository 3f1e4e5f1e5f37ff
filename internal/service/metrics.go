package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

var (
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sweetshop",
			Name:      "auth_attempts_total",
			Help:      "Sign-in and sign-up attempts by outcome.",
		},
		[]string{"op", "outcome"},
	)

	profileWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sweetshop",
			Name:      "profile_writes_total",
			Help:      "Profile document writes by outcome.",
		},
		[]string{"outcome"},
	)

	ordersPlacedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sweetshop",
			Name:      "orders_placed_total",
			Help:      "Orders appended to a profile.",
		},
	)

	catalogCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sweetshop",
			Name:      "catalog_cache_lookups_total",
			Help:      "Catalog snapshot cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)
)

func outcome(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeOK
}
