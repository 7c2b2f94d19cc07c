package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var reportsServed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "cuprecap",
	Subsystem: "report",
	Name:      "requests_total",
	Help:      "Annual report lookups by outcome.",
}, []string{"outcome"})

var insightsServed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "cuprecap",
	Subsystem: "report",
	Name:      "insights_total",
	Help:      "Coffee-personality insights by source (provider or fallback).",
}, []string{"source"})

var redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "cuprecap",
	Subsystem: "redemption",
	Name:      "attempts_total",
	Help:      "Redemption attempts by outcome.",
}, []string{"outcome"})
