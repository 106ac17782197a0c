package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		keysIssuedTotal,
		keysRedeemedTotal,
		keyRedemptionFailuresTotal,
		keysRevokedTotal,
		grantFailuresTotal,
		accessChecksTotal,
	)
}

var (
	keysIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "keys_issued_total",
			Help: "Total number of activation keys minted.",
		},
	)

	keysRedeemedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "keys_redeemed_total",
			Help: "Total number of activation keys successfully redeemed.",
		},
	)

	keyRedemptionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "key_redemption_failures_total",
			Help: "Failed redemption attempts by reason.",
		},
		[]string{"reason"}, // 'not_found', 'already_used', 'revoked', 'invalid_argument', 'storage'
	)

	keysRevokedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "keys_revoked_total",
			Help: "Total number of activation keys revoked.",
		},
	)

	grantFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "grant_failures_total",
			Help: "Redemptions whose key was consumed but whose grant failed.",
		},
	)

	accessChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_checks_total",
			Help: "AccessGate decisions by tab and outcome.",
		},
		[]string{"tab", "allowed"},
	)
)

func IncKeysIssued(count int) {
	keysIssuedTotal.Add(float64(count))
}

func IncKeysRedeemed() {
	keysRedeemedTotal.Inc()
}

func IncKeyRedemptionFailure(reason string) {
	keyRedemptionFailuresTotal.WithLabelValues(reason).Inc()
}

func IncKeysRevoked() {
	keysRevokedTotal.Inc()
}

func IncGrantFailure() {
	grantFailuresTotal.Inc()
}

func IncAccessCheck(tab string, allowed bool) {
	accessChecksTotal.WithLabelValues(tab, strconv.FormatBool(allowed)).Inc()
}
