package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// VoucherApplyTotal counts voucher resolution attempts by outcome reason.
	VoucherApplyTotal *prometheus.CounterVec
	// VoucherCommitTotal counts voucher usage commits by outcome.
	VoucherCommitTotal *prometheus.CounterVec
	// CheckoutTotal counts checkout attempts by outcome.
	CheckoutTotal *prometheus.CounterVec
	// QuizAttemptTotal counts submitted quiz attempts.
	QuizAttemptTotal prometheus.Counter
	// AchievementTaskTotal counts processed achievement tasks by outcome.
	AchievementTaskTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers the business counters.
// Both binaries call it once at startup before any handler can observe.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		VoucherApplyTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_apply_total",
			Help:      "Count of voucher resolution attempts by outcome.",
		}, []string{"result"}))
		VoucherCommitTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_commit_total",
			Help:      "Count of voucher usage commits by outcome.",
		}, []string{"result"}))
		CheckoutTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout attempts by outcome.",
		}, []string{"result"}))
		QuizAttemptTotal = register[prometheus.Counter](reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quiz_attempt_total",
			Help:      "Total number of submitted quiz attempts.",
		}))
		AchievementTaskTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievement_task_total",
			Help:      "Count of processed achievement tasks by outcome.",
		}, []string{"result"}))
	})
}
