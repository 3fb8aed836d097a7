package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimHAL_DigitalIO(t *testing.T) {
	hal := NewSimHAL()

	// 預設狀態
	on, err := hal.DigitalInput(0)
	require.NoError(t, err)
	assert.False(t, on)

	// 設定輸入
	hal.SetDigitalInput(0, true)
	on, err = hal.DigitalInput(0)
	require.NoError(t, err)
	assert.True(t, on)

	// 設定輸出並讀回
	require.NoError(t, hal.SetDigitalOutput(2, true))
	on, err = hal.DigitalOutput(2)
	require.NoError(t, err)
	assert.True(t, on)

	// 通道超出範圍
	_, err = hal.DigitalInput(DigitalInputCount)
	assert.Error(t, err)
	err = hal.SetDigitalOutput(DigitalOutputCount, true)
	assert.Error(t, err)
}

func TestSimHAL_Counters(t *testing.T) {
	hal := NewSimHAL()

	// 偶數通道沒有計數器
	_, err := hal.CounterValue(0)
	assert.ErrorIs(t, err, ErrNotSupported)

	// 上升緣累加
	hal.SetDigitalInput(1, true)
	hal.SetDigitalInput(1, false)
	hal.SetDigitalInput(1, true)

	count, err := hal.CounterValue(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "兩次上升緣應累計 2")

	// 維持高電位不應重複計數
	hal.SetDigitalInput(1, true)
	count, _ = hal.CounterValue(1)
	assert.Equal(t, int64(2), count)
}

func TestSimHAL_FailureInjection(t *testing.T) {
	hal := NewSimHAL()
	injected := errors.New("讀取失敗")

	hal.SetFailure("din0", injected)

	_, err := hal.DigitalInput(0)
	assert.ErrorIs(t, err, injected)

	// 其他通道不受影響
	_, err = hal.DigitalInput(1)
	assert.NoError(t, err)

	// 清除後恢復
	hal.SetFailure("din0", nil)
	_, err = hal.DigitalInput(0)
	assert.NoError(t, err)
}

func TestSimHAL_LED(t *testing.T) {
	hal := NewSimHAL()

	require.NoError(t, hal.SetLED(true))
	on, err := hal.LED()
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, hal.SetLED(false))
	on, _ = hal.LED()
	assert.False(t, on)
}

func TestSimHAL_DriftBounds(t *testing.T) {
	hal := NewSimHAL()

	// 多次漂移後數值應維持在額定值 ±10% 內
	for i := 0; i < 200; i++ {
		hal.drift()
	}

	// 先轉成變數再運算，避免常數運算式因浮點誤差無法轉換為 int
	nomV := float64(simNominalVoltageMV)
	nomUA := float64(simNominalCurrentUA)
	nomSupply := float64(simNominalSupplyMV)

	mv, err := hal.AnalogVoltageMV(0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, mv, int(nomV*0.9))
	assert.LessOrEqual(t, mv, int(nomV*1.1))

	ua, err := hal.AnalogCurrentUA(0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ua, int(nomUA*0.9))
	assert.LessOrEqual(t, ua, int(nomUA*1.1))

	supply, err := hal.SupplyVoltageMV()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, supply, int(nomSupply*0.9))
	assert.LessOrEqual(t, supply, int(nomSupply*1.1))
}

func TestHasCounter(t *testing.T) {
	tests := []struct {
		ch       int
		expected bool
	}{
		{0, false},
		{1, true},
		{2, false},
		{3, true},
		{9, true},
		{10, false},
		{-1, false},
		{DigitalInputCount, false},
	}

	for _, tt := range tests {
		t.Run(DigitalInputName(tt.ch), func(t *testing.T) {
			assert.Equal(t, tt.expected, HasCounter(tt.ch))
		})
	}
}

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "DI0", DigitalInputName(0))
	assert.Equal(t, "DO3", DigitalOutputName(3))
	assert.Equal(t, "COUNT5", CounterName(5))
	assert.Equal(t, "AN1", AnalogChannelName(1))
}
