package main

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics 執行期指標
// 排程器、從站引擎、輪詢器、網頁介面與遙測共用同一實例
type Metrics struct {
	startTime time.Time

	Ticks              atomic.Uint64
	SensorPolls        atomic.Uint64
	SensorErrors       atomic.Uint64
	WebRequests        atomic.Uint64
	TelemetryPublishes atomic.Uint64
	TelemetryErrors    atomic.Uint64
	HeartbeatOn        atomic.Bool

	mu             sync.Mutex
	stepErrors     map[string]uint64
	modbusRequests map[string]uint64
}

// NewMetrics 建立指標收集器
func NewMetrics() *Metrics {
	return &Metrics{
		startTime:      time.Now(),
		stepErrors:     make(map[string]uint64),
		modbusRequests: make(map[string]uint64),
	}
}

// CountStepError 累計排程步驟錯誤
func (m *Metrics) CountStepError(step string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stepErrors[step]++
}

// CountModbusRequest 累計 Modbus 功能碼請求
func (m *Metrics) CountModbusRequest(code uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modbusRequests[FuncCodeName(code)]++
}

// StepErrorCount 取得指定步驟的錯誤累計
func (m *Metrics) StepErrorCount(step string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stepErrors[step]
}

// ModbusRequestCount 取得指定功能碼的請求累計
func (m *Metrics) ModbusRequestCount(code uint8) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modbusRequests[FuncCodeName(code)]
}

func (m *Metrics) snapshotMaps() (steps, requests map[string]uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	steps = make(map[string]uint64, len(m.stepErrors))
	for k, v := range m.stepErrors {
		steps[k] = v
	}
	requests = make(map[string]uint64, len(m.modbusRequests))
	for k, v := range m.modbusRequests {
		requests[k] = v
	}
	return steps, requests
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Handler 以 Prometheus 文字格式輸出指標
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		steps, requests := m.snapshotMaps()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		fmt.Fprintf(w, "# HELP iocd_uptime_seconds Uptime in seconds\n")
		fmt.Fprintf(w, "# TYPE iocd_uptime_seconds gauge\n")
		fmt.Fprintf(w, "iocd_uptime_seconds %f\n\n", time.Since(m.startTime).Seconds())

		fmt.Fprintf(w, "# HELP iocd_ticks_total Scheduler ticks\n")
		fmt.Fprintf(w, "# TYPE iocd_ticks_total counter\n")
		fmt.Fprintf(w, "iocd_ticks_total %d\n\n", m.Ticks.Load())

		fmt.Fprintf(w, "# HELP iocd_step_errors_total Errors by scheduler step\n")
		fmt.Fprintf(w, "# TYPE iocd_step_errors_total counter\n")
		for _, name := range sortedKeys(steps) {
			fmt.Fprintf(w, "iocd_step_errors_total{step=%q} %d\n", name, steps[name])
		}
		fmt.Fprintf(w, "\n")

		fmt.Fprintf(w, "# HELP iocd_sensor_polls_total Sensor register reads attempted\n")
		fmt.Fprintf(w, "# TYPE iocd_sensor_polls_total counter\n")
		fmt.Fprintf(w, "iocd_sensor_polls_total %d\n\n", m.SensorPolls.Load())

		fmt.Fprintf(w, "# HELP iocd_sensor_errors_total Sensor register reads failed\n")
		fmt.Fprintf(w, "# TYPE iocd_sensor_errors_total counter\n")
		fmt.Fprintf(w, "iocd_sensor_errors_total %d\n\n", m.SensorErrors.Load())

		fmt.Fprintf(w, "# HELP iocd_modbus_requests_total Modbus requests by function\n")
		fmt.Fprintf(w, "# TYPE iocd_modbus_requests_total counter\n")
		for _, name := range sortedKeys(requests) {
			fmt.Fprintf(w, "iocd_modbus_requests_total{func=%q} %d\n", name, requests[name])
		}
		fmt.Fprintf(w, "\n")

		fmt.Fprintf(w, "# HELP iocd_web_requests_total Web requests served\n")
		fmt.Fprintf(w, "# TYPE iocd_web_requests_total counter\n")
		fmt.Fprintf(w, "iocd_web_requests_total %d\n\n", m.WebRequests.Load())

		fmt.Fprintf(w, "# HELP iocd_telemetry_publishes_total Telemetry messages published\n")
		fmt.Fprintf(w, "# TYPE iocd_telemetry_publishes_total counter\n")
		fmt.Fprintf(w, "iocd_telemetry_publishes_total %d\n\n", m.TelemetryPublishes.Load())

		fmt.Fprintf(w, "# HELP iocd_telemetry_errors_total Telemetry publish failures\n")
		fmt.Fprintf(w, "# TYPE iocd_telemetry_errors_total counter\n")
		fmt.Fprintf(w, "iocd_telemetry_errors_total %d\n\n", m.TelemetryErrors.Load())

		heartbeat := 0
		if m.HeartbeatOn.Load() {
			heartbeat = 1
		}
		fmt.Fprintf(w, "# HELP iocd_heartbeat_state Heartbeat LED state\n")
		fmt.Fprintf(w, "# TYPE iocd_heartbeat_state gauge\n")
		fmt.Fprintf(w, "iocd_heartbeat_state %d\n", heartbeat)
	})
}
