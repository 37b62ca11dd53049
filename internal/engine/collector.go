package engine

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/proofsched/internal/device"
	"github.com/seantiz/proofsched/internal/workload"
)

var (
	deviceConsumedDesc = prometheus.NewDesc(
		"proofsched_device_consumed_mb",
		"Memory currently accounted to each device slot, in MB.",
		[]string{"slot", "device_id"}, nil,
	)
	runningTasksDesc = prometheus.NewDesc(
		"proofsched_running_tasks",
		"Tasks currently running per workload class.",
		[]string{"class"}, nil,
	)
)

// StateCollector exports the live device and class counters on every scrape.
type StateCollector struct {
	devices  *device.Registry
	counters *workload.Counters
}

// NewStateCollector creates a collector over devices and counters.
func NewStateCollector(devices *device.Registry, counters *workload.Counters) *StateCollector {
	return &StateCollector{devices: devices, counters: counters}
}

// Describe implements prometheus.Collector.
func (c *StateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- deviceConsumedDesc
	ch <- runningTasksDesc
}

// Collect implements prometheus.Collector.
func (c *StateCollector) Collect(ch chan<- prometheus.Metric) {
	ids := c.devices.DeviceIDs()
	for slot, consumed := range c.devices.ConsumedMemory() {
		ch <- prometheus.MustNewConstMetric(deviceConsumedDesc, prometheus.GaugeValue,
			float64(consumed), strconv.Itoa(slot), strconv.Itoa(ids[slot]))
	}
	for _, class := range workload.Classes() {
		ch <- prometheus.MustNewConstMetric(runningTasksDesc, prometheus.GaugeValue,
			float64(c.counters.Running(class)), class.String())
	}
}
