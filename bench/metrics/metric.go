// Package metrics holds the Prometheus collectors published while replaying
// changesets into trees.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Updates        *prometheus.CounterVec
	Commits        prometheus.Counter
	CommitDuration prometheus.Histogram
	RandomPicks    *prometheus.CounterVec
	TreeSize       *prometheus.GaugeVec
	TreeHeight     *prometheus.GaugeVec
}

// New builds the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Updates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "randtree_updates_total",
			Help: "Number of changeset entries applied, by store and operation.",
		}, []string{"store", "op"}),
		Commits: factory.NewCounter(prometheus.CounterOpts{
			Name: "randtree_commits_total",
			Help: "Number of versions committed.",
		}),
		CommitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "randtree_version_duration_seconds",
			Help:    "Time to apply and commit one version.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
		RandomPicks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "randtree_random_picks_total",
			Help: "Number of uniformly random entries drawn at commit, by store.",
		}, []string{"store"}),
		TreeSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "randtree_tree_size",
			Help: "Number of entries in the tree at the last commit.",
		}, []string{"store"}),
		TreeHeight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "randtree_tree_height",
			Help: "Number of levels in the tree at the last commit.",
		}, []string{"store"}),
	}
}
