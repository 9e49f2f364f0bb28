package util

import (
	"sync"

	"github.com/influxdata/influxdb-client-go/api/write"
)

// MockWriteAPI stands in for the influx write API when no host is configured.
// Points are kept in memory so tests can inspect what would have been sent.
type MockWriteAPI struct {
	mu     sync.Mutex
	points []*write.Point
	limit  int
}

// NewRecordingWriteAPI keeps at most limit points; the zero value MockWriteAPI
// keeps none.
func NewRecordingWriteAPI(limit int) *MockWriteAPI {
	return &MockWriteAPI{limit: limit}
}

func (m *MockWriteAPI) WriteRecord(line string) {}

func (m *MockWriteAPI) WritePoint(point *write.Point) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.points) < m.limit {
		m.points = append(m.points, point)
	}
}

func (m *MockWriteAPI) Flush() {}

func (m *MockWriteAPI) Close() {}

func (m *MockWriteAPI) Errors() <-chan error { return nil }

// Points returns the recorded points in arrival order.
func (m *MockWriteAPI) Points() []*write.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*write.Point(nil), m.points...)
}

// Names returns the measurement names of the recorded points.
func (m *MockWriteAPI) Names() []string {
	points := m.Points()
	ret := make([]string, 0, len(points))
	for _, p := range points {
		ret = append(ret, p.Name())
	}
	return ret
}
