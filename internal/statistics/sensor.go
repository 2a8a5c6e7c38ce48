package statistics

import (
	"github.com/bmcfanctl/bmcfanctl/internal/controller"
	"github.com/prometheus/client_golang/prometheus"
)

const subsystemSensor = "sensor"

type SensorCollector struct {
	fanController controller.FanController
	value         *prometheus.Desc
}

func NewSensorCollector(fanController controller.FanController) *SensorCollector {
	return &SensorCollector{
		fanController: fanController,
		value: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemSensor, "value"),
			"Last polled value of the sensor",
			[]string{"id", "kind"}, nil,
		),
	}
}

func (collector *SensorCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.value
}

// Collect implements the required collect function for all prometheus collectors
func (collector *SensorCollector) Collect(ch chan<- prometheus.Metric) {
	for _, reading := range collector.fanController.Readings() {
		ch <- prometheus.MustNewConstMetric(collector.value, prometheus.GaugeValue, reading.Value, reading.ID, string(reading.Kind))
	}
}
