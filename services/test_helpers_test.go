package services

import (
	"github.com/Smartconnectcrm/smartconnect-website/logger"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func init() {
	logger.IsTest = true
}

// Mock registry that doesn't actually register metrics
type mockRegistry struct{}

func (m *mockRegistry) Register(c prometheus.Collector) error   { return nil }
func (m *mockRegistry) MustRegister(cs ...prometheus.Collector) {}
func (m *mockRegistry) Unregister(c prometheus.Collector) bool  { return true }

func testGetCounterValue(counter prometheus.Counter) float64 {
	var m dto.Metric
	_ = counter.Write(&m)
	return m.GetCounter().GetValue()
}

func testGetHistogramCount(h prometheus.Histogram) uint64 {
	var m dto.Metric
	_ = h.Write(&m)
	return m.GetHistogram().GetSampleCount()
}
