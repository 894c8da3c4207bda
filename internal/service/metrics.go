package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_tokens_issued_total",
			Help: "Total number of tokens signed, by kind",
		},
		[]string{"kind"},
	)

	testAccountsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_test_accounts_issued_total",
			Help: "Total number of ephemeral test accounts issued, by role",
		},
		[]string{"role"},
	)

	testAccountsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_test_accounts_purged_total",
			Help: "Total number of test accounts removed by purges",
		},
	)

	reviewsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_reviews_created_total",
			Help: "Total number of reviews created",
		},
	)

	reviewDuplicates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_review_duplicates_total",
			Help: "Review creations rejected because the order line was already reviewed",
		},
	)
)
