package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	hoursSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openinghours",
			Name:      "hours_saved_total",
			Help:      "Count of weekly hours submissions by outcome.",
		},
		[]string{"outcome"},
	)

	closingRuleRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openinghours",
			Name:      "closing_rule_rows_total",
			Help:      "Count of submitted closing rule rows by action.",
		},
		[]string{"action"},
	)

	statusChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openinghours",
			Name:      "status_checks_total",
			Help:      "Count of open/closed evaluations by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openinghours",
			Name:      "http_requests_total",
			Help:      "Count of API requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	scheduleCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openinghours",
			Name:      "schedule_cache_total",
			Help:      "Schedule cache lookups by result.",
		},
		[]string{"result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(hoursSaved, closingRuleRows, statusChecks, httpRequests, scheduleCache)
	})
}

func IncHoursSaved(outcome string) {
	hoursSaved.WithLabelValues(outcome).Inc()
}

func IncClosingRuleRow(action string) {
	closingRuleRows.WithLabelValues(action).Inc()
}

func IncStatusCheck(open bool) {
	result := "closed"
	if open {
		result = "open"
	}
	statusChecks.WithLabelValues(result).Inc()
}

func IncScheduleCache(result string) {
	scheduleCache.WithLabelValues(result).Inc()
}

func IncHTTP(route string, code int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
