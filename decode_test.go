package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterFormat_String(t *testing.T) {
	tests := []struct {
		format   RegisterFormat
		expected string
	}{
		{FormatInt16, "INT16"},
		{FormatUint16, "UINT16"},
		{FormatFloat32, "FLOAT32"},
		{FormatFloat32Swapped, "FLOAT32_SWAP"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.format.String())
		})
	}
}

func TestParseRegisterFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected RegisterFormat
	}{
		{"INT16", FormatInt16},
		{"UINT16", FormatUint16},
		{"FLOAT32", FormatFloat32},
		{"FLOAT32_SWAP", FormatFloat32Swapped},
		{"float32_swapped", FormatFloat32Swapped},
		{" uint16 ", FormatUint16},
		{"unknown", FormatInt16}, // 預設為 INT16
		{"", FormatInt16},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseRegisterFormat(tt.input))
		})
	}
}

func TestParseRegisterTable(t *testing.T) {
	tests := []struct {
		input    string
		expected RegisterTable
	}{
		{"IREG", TableInput},
		{"HREG", TableHolding},
		{"hreg", TableHolding},
		{"unknown", TableInput}, // 預設為 IREG
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseRegisterTable(tt.input))
		})
	}
}

func TestRegisterFormat_RegisterCount(t *testing.T) {
	assert.Equal(t, 1, FormatInt16.RegisterCount())
	assert.Equal(t, 1, FormatUint16.RegisterCount())
	assert.Equal(t, 2, FormatFloat32.RegisterCount())
	assert.Equal(t, 2, FormatFloat32Swapped.RegisterCount())
}

func TestDecodeRegisters_Int16(t *testing.T) {
	tests := []struct {
		name        string
		word        uint16
		signed      bool
		scale       float64
		expectedRaw int32
		expectedVal float64
	}{
		{"positive signed", 235, true, 0.1, 235, 23.5},
		{"0xFFFF signed is -1", 0xFFFF, true, 1.0, -1, -1.0},
		{"0xFFFF unsigned", 0xFFFF, false, 1.0, 65535, 65535.0},
		{"negative temperature", 0xFF38, true, 0.1, -200, -20.0},
		{"zero", 0, true, 0.1, 0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, val := DecodeRegisters([]uint16{tt.word}, FormatInt16, tt.signed, tt.scale)
			assert.Equal(t, tt.expectedRaw, raw)
			assert.InDelta(t, tt.expectedVal, val, 1e-9)
		})
	}
}

func TestDecodeRegisters_Uint16(t *testing.T) {
	// UINT16 忽略 signed 旗標
	raw, val := DecodeRegisters([]uint16{0xFFFF}, FormatUint16, true, 1.0)
	assert.Equal(t, int32(65535), raw)
	assert.InDelta(t, 65535.0, val, 1e-9)

	raw, val = DecodeRegisters([]uint16{612}, FormatUint16, false, 0.1)
	assert.Equal(t, int32(612), raw)
	assert.InDelta(t, 61.2, val, 1e-9)
}

func TestDecodeRegisters_Float32RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value float32
		scale float64
	}{
		{"room temperature", 23.5, 1.0},
		{"negative", -40.25, 1.0},
		{"scaled", 61.2, 0.5},
		{"small", 0.001, 10.0},
		{"large", 12345.678, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bits := math.Float32bits(tt.value)
			hi := uint16(bits >> 16)
			lo := uint16(bits)

			// 標準字序: 高字在前
			raw, val := DecodeRegisters([]uint16{hi, lo}, FormatFloat32, false, tt.scale)
			assert.Equal(t, int32(bits), raw)
			assert.InDelta(t, float64(tt.value)*tt.scale, val, math.Abs(float64(tt.value))*1e-6+1e-9)

			// 字序交換: 低字在前，解碼結果應相同
			rawSwap, valSwap := DecodeRegisters([]uint16{lo, hi}, FormatFloat32Swapped, false, tt.scale)
			assert.Equal(t, raw, rawSwap, "交換字序後原始值應相同")
			assert.InDelta(t, val, valSwap, 1e-9, "交換字序後物理值應相同")
		})
	}
}

func TestDecodeRegisters_EmptyInput(t *testing.T) {
	raw, val := DecodeRegisters(nil, FormatInt16, true, 0.1)
	assert.Equal(t, int32(0), raw)
	assert.Equal(t, 0.0, val)

	// FLOAT32 需要兩個字組
	raw, val = DecodeRegisters([]uint16{0x1234}, FormatFloat32, false, 1.0)
	assert.Equal(t, int32(0), raw)
	assert.Equal(t, 0.0, val)
}

func TestEncodeRegisters(t *testing.T) {
	// INT16 往返
	words := EncodeRegisters(-200, FormatInt16)
	require.Len(t, words, 1)
	raw, _ := DecodeRegisters(words, FormatInt16, true, 1.0)
	assert.Equal(t, int32(-200), raw)

	// FLOAT32 往返 (兩種字序)
	bits := math.Float32bits(23.5)
	words = EncodeRegisters(int32(bits), FormatFloat32)
	require.Len(t, words, 2)
	raw, val := DecodeRegisters(words, FormatFloat32, false, 1.0)
	assert.Equal(t, int32(bits), raw)
	assert.InDelta(t, 23.5, val, 1e-6)

	wordsSwap := EncodeRegisters(int32(bits), FormatFloat32Swapped)
	require.Len(t, wordsSwap, 2)
	assert.Equal(t, []uint16{words[1], words[0]}, wordsSwap, "交換格式應反轉字序")
	_, valSwap := DecodeRegisters(wordsSwap, FormatFloat32Swapped, false, 1.0)
	assert.InDelta(t, 23.5, valSwap, 1e-6)
}

func TestRegistersToBytes(t *testing.T) {
	registers := []uint16{0x0102, 0x0304}
	bytes := RegistersToBytes(registers)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, bytes)
}

func TestBytesToRegisters(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04}
	registers := BytesToRegisters(data)
	assert.Equal(t, []uint16{0x0102, 0x0304}, registers)
}

func TestCoilsToByte(t *testing.T) {
	coils := []bool{true, false, true, false, false, false, false, true}
	bytes := CoilsToByte(coils)
	assert.Equal(t, []byte{0x85}, bytes) // 10000101 in binary
}

func TestByteToCoils(t *testing.T) {
	data := []byte{0x85}
	coils := ByteToCoils(data, 8)
	expected := []bool{true, false, true, false, false, false, false, true}
	assert.Equal(t, expected, coils)
}

func BenchmarkDecodeRegisters_Int16(b *testing.B) {
	words := []uint16{235}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		DecodeRegisters(words, FormatInt16, true, 0.1)
	}
}

func BenchmarkDecodeRegisters_Float32(b *testing.B) {
	bits := math.Float32bits(23.5)
	words := []uint16{uint16(bits >> 16), uint16(bits)}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		DecodeRegisters(words, FormatFloat32, false, 1.0)
	}
}
