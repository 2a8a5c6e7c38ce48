package statistics

import (
	"github.com/bmcfanctl/bmcfanctl/internal/controller"
	"github.com/prometheus/client_golang/prometheus"
)

const subsystemController = "controller"

type ControllerCollector struct {
	fanController controller.FanController

	duty           *prometheus.Desc
	failures       *prometheus.Desc
	overrideActive *prometheus.Desc
	maxTemperature *prometheus.Desc
}

func NewControllerCollector(fanController controller.FanController) *ControllerCollector {
	return &ControllerCollector{
		fanController: fanController,
		duty: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemController, "duty"),
			"Most recently confirmed fan duty cycle",
			nil, nil,
		),
		failures: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemController, "consecutive_failures"),
			"Number of consecutive failed control ticks",
			nil, nil,
		),
		overrideActive: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemController, "override_active"),
			"Whether a manual duty override is active",
			nil, nil,
		),
		maxTemperature: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemController, "max_temperature"),
			"Highest monitored temperature of the last poll",
			nil, nil,
		),
	}
}

func (collector *ControllerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.duty
	ch <- collector.failures
	ch <- collector.overrideActive
	ch <- collector.maxTemperature
}

// Collect implements the required collect function for all prometheus collectors
func (collector *ControllerCollector) Collect(ch chan<- prometheus.Metric) {
	snapshot := collector.fanController.Snapshot()

	duty := snapshot.LastDuty
	if duty < 0 {
		duty = 0
	}
	ch <- prometheus.MustNewConstMetric(collector.duty, prometheus.GaugeValue, float64(duty))
	ch <- prometheus.MustNewConstMetric(collector.failures, prometheus.GaugeValue, float64(snapshot.ConsecutiveFailures))

	overrideActive := 0.0
	if snapshot.Override != nil {
		overrideActive = 1.0
	}
	ch <- prometheus.MustNewConstMetric(collector.overrideActive, prometheus.GaugeValue, overrideActive)
	ch <- prometheus.MustNewConstMetric(collector.maxTemperature, prometheus.GaugeValue, snapshot.MaxTemperature)
}
