package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// 模擬硬體的額定值
const (
	simNominalVoltageMV = 3300  // AN 電壓通道額定 3.3V
	simNominalCurrentUA = 12000 // 4-20mA 迴路中點
	simNominalSupplyMV  = 24000 // 24V 供電
	simDefaultCPUTempC  = 42.0
)

// SimHAL 模擬硬體存取層
// 桌面開發與測試時取代板端 BSP；支援逐欄位故障注入與數值漂移
type SimHAL struct {
	mu sync.RWMutex

	din       [DigitalInputCount]bool
	dout      [DigitalOutputCount]bool
	counters  [DigitalInputCount]int64
	voltageMV [AnalogChannelCount]int
	currentUA [AnalogChannelCount]int
	supplyMV  int
	cpuTempC  float64
	led       bool

	// 故障注入 (測試用)，key 為欄位名稱如 din0、cpu_temp
	failures map[string]error
}

// NewSimHAL 建立模擬硬體
func NewSimHAL() *SimHAL {
	h := &SimHAL{
		supplyMV: simNominalSupplyMV,
		cpuTempC: simDefaultCPUTempC,
		failures: make(map[string]error),
	}

	for i := 0; i < AnalogChannelCount; i++ {
		h.voltageMV[i] = simNominalVoltageMV
		h.currentUA[i] = simNominalCurrentUA
	}

	// 主機有溫度感測器時以實際值作為起點
	if temp, ok := hostCPUTemperatureC(); ok {
		h.cpuTempC = temp
	}

	return h
}

// hostCPUTemperatureC 讀取主機 CPU 溫度 (毫度 C)，檔案不存在時回傳 false
func hostCPUTemperatureC() (float64, bool) {
	data, err := os.ReadFile("/sys/class/thermal/thermal_zone0/temp")
	if err != nil {
		return 0, false
	}

	milli, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}

	return float64(milli) / 1000.0, true
}

// SetFailure 注入指定欄位的讀取錯誤，err 為 nil 時清除
func (h *SimHAL) SetFailure(field string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err == nil {
		delete(h.failures, field)
		return
	}
	h.failures[field] = err
}

func (h *SimHAL) failure(field string) error {
	return h.failures[field]
}

// --- HAL 介面實作 ---

// DigitalInput 讀取數位輸入
func (h *SimHAL) DigitalInput(ch int) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if ch < 0 || ch >= DigitalInputCount {
		return false, fmt.Errorf("數位輸入通道超出範圍: %d", ch)
	}
	if err := h.failure(fmt.Sprintf("din%d", ch)); err != nil {
		return false, err
	}
	return h.din[ch], nil
}

// SetDigitalInput 設定數位輸入 (測試與漂移用)，上升緣累加對應計數器
func (h *SimHAL) SetDigitalInput(ch int, on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch < 0 || ch >= DigitalInputCount {
		return
	}
	if on && !h.din[ch] && HasCounter(ch) {
		h.counters[ch]++
	}
	h.din[ch] = on
}

// DigitalOutput 讀取數位輸出狀態
func (h *SimHAL) DigitalOutput(ch int) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if ch < 0 || ch >= DigitalOutputCount {
		return false, fmt.Errorf("數位輸出通道超出範圍: %d", ch)
	}
	if err := h.failure(fmt.Sprintf("dout%d", ch)); err != nil {
		return false, err
	}
	return h.dout[ch], nil
}

// SetDigitalOutput 設定數位輸出
func (h *SimHAL) SetDigitalOutput(ch int, on bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch < 0 || ch >= DigitalOutputCount {
		return fmt.Errorf("數位輸出通道超出範圍: %d", ch)
	}
	if err := h.failure(fmt.Sprintf("dout%d", ch)); err != nil {
		return err
	}
	h.dout[ch] = on
	return nil
}

// CounterValue 讀取脈衝計數器
func (h *SimHAL) CounterValue(ch int) (int64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !HasCounter(ch) {
		return 0, ErrNotSupported
	}
	if err := h.failure(fmt.Sprintf("counter%d", ch)); err != nil {
		return 0, err
	}
	return h.counters[ch], nil
}

// SetCounter 設定計數器值 (測試用)
func (h *SimHAL) SetCounter(ch int, value int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if HasCounter(ch) {
		h.counters[ch] = value
	}
}

// AnalogVoltageMV 讀取類比電壓 (mV)
func (h *SimHAL) AnalogVoltageMV(ch int) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if ch < 0 || ch >= AnalogChannelCount {
		return 0, fmt.Errorf("類比通道超出範圍: %d", ch)
	}
	if err := h.failure(fmt.Sprintf("an_voltage%d", ch)); err != nil {
		return 0, err
	}
	return h.voltageMV[ch], nil
}

// SetAnalogVoltageMV 設定類比電壓 (測試用)
func (h *SimHAL) SetAnalogVoltageMV(ch int, mv int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch >= 0 && ch < AnalogChannelCount {
		h.voltageMV[ch] = mv
	}
}

// AnalogCurrentUA 讀取類比電流 (µA)
func (h *SimHAL) AnalogCurrentUA(ch int) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if ch < 0 || ch >= AnalogChannelCount {
		return 0, fmt.Errorf("類比通道超出範圍: %d", ch)
	}
	if err := h.failure(fmt.Sprintf("an_current%d", ch)); err != nil {
		return 0, err
	}
	return h.currentUA[ch], nil
}

// SetAnalogCurrentUA 設定類比電流 (測試用)
func (h *SimHAL) SetAnalogCurrentUA(ch int, ua int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch >= 0 && ch < AnalogChannelCount {
		h.currentUA[ch] = ua
	}
}

// SupplyVoltageMV 讀取供電電壓 (mV)
func (h *SimHAL) SupplyVoltageMV() (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if err := h.failure("supply"); err != nil {
		return 0, err
	}
	return h.supplyMV, nil
}

// CPUTemperatureC 讀取 CPU 溫度 (°C)
func (h *SimHAL) CPUTemperatureC() (float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if err := h.failure("cpu_temp"); err != nil {
		return 0, err
	}
	return h.cpuTempC, nil
}

// LED 讀取狀態 LED
func (h *SimHAL) LED() (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if err := h.failure("led"); err != nil {
		return false, err
	}
	return h.led, nil
}

// SetLED 設定狀態 LED
func (h *SimHAL) SetLED(on bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.failure("led"); err != nil {
		return err
	}
	h.led = on
	return nil
}

// --- 數值漂移 ---

// StartDrift 啟動背景漂移更新，讓桌面執行時數值有自然變化
func (h *SimHAL) StartDrift(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.drift()
			}
		}
	}()
}

// drift 對類比值小幅隨機波動，偶而翻轉數位輸入
func (h *SimHAL) drift() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := 0; i < AnalogChannelCount; i++ {
		h.voltageMV[i] = driftValue(h.voltageMV[i], simNominalVoltageMV, 0.02)
		h.currentUA[i] = driftValue(h.currentUA[i], simNominalCurrentUA, 0.02)
	}
	h.supplyMV = driftValue(h.supplyMV, simNominalSupplyMV, 0.005)
	h.cpuTempC += (rand.Float64()*2 - 1) * 0.3

	if rand.Float64() < 0.2 {
		ch := rand.Intn(DigitalInputCount)
		next := !h.din[ch]
		if next && HasCounter(ch) {
			h.counters[ch]++
		}
		h.din[ch] = next
	}
}

// driftValue 在額定值 ±10% 範圍內隨機波動
func driftValue(current, nominal int, variance float64) int {
	if current == 0 {
		current = nominal
	}

	delta := int((rand.Float64()*2 - 1) * variance * float64(nominal))
	v := current + delta

	lo := int(float64(nominal) * 0.9)
	hi := int(float64(nominal) * 1.1)
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return v
}
