package main

import (
	"errors"
	"fmt"
)

// IOC-16 硬體通道規格
const (
	DigitalInputCount  = 11 // DI0..DI10
	DigitalOutputCount = 4  // DO0..DO3
	AnalogChannelCount = 2  // AN0..AN1
)

// ErrNotSupported 硬體不具備該通道或功能
var ErrNotSupported = errors.New("硬體不支援")

// HAL 硬體存取層介面
// 每個讀取各自回傳錯誤，呼叫端逐欄位降級，單一欄位失敗不中斷整體。
// 板端 BSP 在裝置上提供實作；本倉庫內建模擬實作供桌面開發與測試。
type HAL interface {
	// 數位輸入 DI0..DI10
	DigitalInput(ch int) (bool, error)

	// 數位輸出 DO0..DO3
	DigitalOutput(ch int) (bool, error)
	SetDigitalOutput(ch int, on bool) error

	// 脈衝計數器 (僅奇數 DI 通道具備，其餘回傳 ErrNotSupported)
	CounterValue(ch int) (int64, error)

	// 類比通道 AN0..AN1
	AnalogVoltageMV(ch int) (int, error)
	AnalogCurrentUA(ch int) (int, error)

	// 電源與溫度監測
	SupplyVoltageMV() (int, error)
	CPUTemperatureC() (float64, error)

	// 狀態 LED
	LED() (bool, error)
	SetLED(on bool) error
}

// HasCounter 判斷 DI 通道是否具備硬體計數器
func HasCounter(ch int) bool {
	return ch >= 0 && ch < DigitalInputCount && ch%2 == 1
}

// DigitalInputName 數位輸入通道名稱 (DI0..DI10)
func DigitalInputName(ch int) string {
	return fmt.Sprintf("DI%d", ch)
}

// DigitalOutputName 數位輸出通道名稱 (DO0..DO3)
func DigitalOutputName(ch int) string {
	return fmt.Sprintf("DO%d", ch)
}

// CounterName 計數器名稱 (COUNT1, COUNT3, ...)
func CounterName(ch int) string {
	return fmt.Sprintf("COUNT%d", ch)
}

// AnalogChannelName 類比通道名稱 (AN0..AN1)
func AnalogChannelName(ch int) string {
	return fmt.Sprintf("AN%d", ch)
}
