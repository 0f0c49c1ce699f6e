package command

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
)

var (
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bmc_commands_total",
			Help: "Mode commands processed, by outcome and reason",
		},
		[]string{"outcome", "reason"},
	)

	deviceLinkSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bmc_device_link_seconds",
			Help:    "Time spent in DeviceLink.Send (per target mode)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"target"},
	)

	commandInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bmc_command_in_flight",
			Help: "1 while a mode command holds the device",
		},
	)

	deviceModeGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bmc_device_mode",
			Help: "Current confirmed device mode (1 for the active mode, 0 otherwise)",
		},
		[]string{"mode"},
	)
)

func recordOutcome(outcome entity.Outcome, reason string) {
	commandsTotal.WithLabelValues(outcome.String(), reason).Inc()
}

func recordDeviceLink(target entity.DeviceMode, d time.Duration) {
	deviceLinkSeconds.WithLabelValues(target.String()).Observe(d.Seconds())
}

// RecordMode sets the mode gauge so exactly one mode reads 1.
func RecordMode(current entity.DeviceMode) {
	for _, m := range entity.DeviceModes() {
		v := 0.0
		if m == current {
			v = 1
		}

		deviceModeGauge.WithLabelValues(m.String()).Set(v)
	}
}
