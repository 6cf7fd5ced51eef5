package sidechain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sidechainRoutes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mixroute",
		Subsystem: "sidechain",
		Name:      "routes",
		Help:      "Number of sidechain routes",
	})

	sidechainBuses = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mixroute",
		Subsystem: "sidechain",
		Name:      "buses",
		Help:      "Number of managed sidechain buses",
	})

	busSamples = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mixroute",
		Subsystem: "sidechain",
		Name:      "bus_samples_processed_total",
		Help:      "Samples processed by sidechain buses",
	})
)
