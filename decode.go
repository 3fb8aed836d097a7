package main

import (
	"encoding/binary"
	"math"
	"strings"
)

// RegisterTable 感測器暫存器表類型
type RegisterTable int

const (
	TableInput RegisterTable = iota
	TableHolding
)

func (t RegisterTable) String() string {
	switch t {
	case TableHolding:
		return "HREG"
	default:
		return "IREG"
	}
}

// ParseRegisterTable 解析暫存器表名稱
func ParseRegisterTable(s string) RegisterTable {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HREG":
		return TableHolding
	default:
		return TableInput // 預設為輸入暫存器
	}
}

// RegisterFormat 感測器數值編碼格式
type RegisterFormat int

const (
	FormatInt16 RegisterFormat = iota
	FormatUint16
	FormatFloat32
	FormatFloat32Swapped
)

func (f RegisterFormat) String() string {
	switch f {
	case FormatUint16:
		return "UINT16"
	case FormatFloat32:
		return "FLOAT32"
	case FormatFloat32Swapped:
		return "FLOAT32_SWAP"
	default:
		return "INT16"
	}
}

// ParseRegisterFormat 解析數值格式名稱
func ParseRegisterFormat(s string) RegisterFormat {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UINT16":
		return FormatUint16
	case "FLOAT32":
		return FormatFloat32
	case "FLOAT32_SWAP", "FLOAT32_SWAPPED":
		return FormatFloat32Swapped
	default:
		return FormatInt16 // 預設為 INT16
	}
}

// RegisterCount 返回該格式佔用的暫存器數量
func (f RegisterFormat) RegisterCount() int {
	switch f {
	case FormatFloat32, FormatFloat32Swapped:
		return 2
	default:
		return 1
	}
}

// DecodeRegisters 將暫存器字組解碼為 (原始值, 縮放後的物理值)
// Float32 以高字在前組成 IEEE-754 位元模式，FLOAT32_SWAP 低字在前；
// raw 一律為組成後的 32 位元整數模式
func DecodeRegisters(words []uint16, format RegisterFormat, signed bool, scale float64) (int32, float64) {
	if len(words) == 0 {
		return 0, 0
	}

	var raw int32
	var value float64

	switch format {
	case FormatUint16:
		raw = int32(words[0])
		value = float64(raw)

	case FormatFloat32, FormatFloat32Swapped:
		if len(words) < 2 {
			return 0, 0
		}
		hi, lo := words[0], words[1]
		if format == FormatFloat32Swapped {
			hi, lo = words[1], words[0]
		}
		bits := uint32(hi)<<16 | uint32(lo)
		raw = int32(bits)
		value = float64(math.Float32frombits(bits))

	default: // FormatInt16
		if signed {
			raw = int32(int16(words[0]))
		} else {
			raw = int32(words[0])
		}
		value = float64(raw)
	}

	return raw, value * scale
}

// EncodeRegisters 將原始值編碼回暫存器字組 (DecodeRegisters 的反向運算)
func EncodeRegisters(raw int32, format RegisterFormat) []uint16 {
	bits := uint32(raw)
	switch format {
	case FormatFloat32:
		return []uint16{uint16(bits >> 16), uint16(bits)} // High word first
	case FormatFloat32Swapped:
		return []uint16{uint16(bits), uint16(bits >> 16)} // Low word first
	default:
		return []uint16{uint16(bits)}
	}
}

// RegistersToBytes 將暫存器值轉換為位元組陣列 (Big Endian)
func RegistersToBytes(registers []uint16) []byte {
	bytes := make([]byte, len(registers)*2)
	for i, reg := range registers {
		binary.BigEndian.PutUint16(bytes[i*2:], reg)
	}
	return bytes
}

// BytesToRegisters 將位元組陣列轉換為暫存器值 (Big Endian)
func BytesToRegisters(data []byte) []uint16 {
	registers := make([]uint16, len(data)/2)
	for i := range registers {
		registers[i] = binary.BigEndian.Uint16(data[i*2:])
	}
	return registers
}

// CoilsToByte 將線圈值打包為位元組
func CoilsToByte(coils []bool) []byte {
	byteCount := (len(coils) + 7) / 8
	bytes := make([]byte, byteCount)
	for i, coil := range coils {
		if coil {
			bytes[i/8] |= 1 << (i % 8)
		}
	}
	return bytes
}

// ByteToCoils 將位元組展開為線圈值
func ByteToCoils(data []byte, count int) []bool {
	coils := make([]bool, count)
	for i := 0; i < count; i++ {
		coils[i] = (data[i/8] & (1 << (i % 8))) != 0
	}
	return coils
}
