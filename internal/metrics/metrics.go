// Package metrics exposes Prometheus counters for expense mutations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExpensesCreated counts successfully created expenses.
	ExpensesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "divvy_expenses_created_total",
		Help: "Number of expenses created.",
	})

	// ExpensesUpdated counts split-affecting expense updates.
	ExpensesUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "divvy_expenses_updated_total",
		Help: "Number of expenses whose split set was replaced.",
	})

	// ExpensesDeleted counts deleted expenses.
	ExpensesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "divvy_expenses_deleted_total",
		Help: "Number of expenses deleted.",
	})

	// SplitsSettled counts settlement toggles, labeled by direction
	// ("settle" or "unsettle").
	SplitsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "divvy_splits_settled_total",
		Help: "Number of split settlement state changes.",
	}, []string{"direction"})
)
