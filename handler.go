package main

import (
	"encoding/binary"
	"time"

	"github.com/tbrandon/mbserver"
)

// functionHandler mbserver 功能碼處理函式
type functionHandler func(*mbserver.Server, mbserver.Framer) ([]byte, *mbserver.Exception)

// registerHandlers 掛載功能碼處理器
// 所有功能碼先經過計數包裝，線圈寫入類再攔截位址後委派內建實作
func (u *ModbusUnit) registerHandlers() {
	handlers := map[uint8]functionHandler{
		FuncCodeReadCoils:              mbserver.ReadCoils,
		FuncCodeReadDiscreteInputs:     mbserver.ReadDiscreteInputs,
		FuncCodeReadHoldingRegisters:   mbserver.ReadHoldingRegisters,
		FuncCodeReadInputRegisters:     mbserver.ReadInputRegisters,
		FuncCodeWriteSingleRegister:    mbserver.WriteHoldingRegister,
		FuncCodeWriteMultipleRegisters: mbserver.WriteHoldingRegisters,
		FuncCodeWriteSingleCoil:        u.interceptWriteSingleCoil,
		FuncCodeWriteMultipleCoils:     u.interceptWriteMultipleCoils,
	}
	for code, fn := range handlers {
		u.server.RegisterFunctionHandler(code, u.counting(code, fn))
	}
}

// counting 請求計數包裝
func (u *ModbusUnit) counting(code uint8, next functionHandler) functionHandler {
	return func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		u.stats.RequestCount.Add(1)
		u.stats.LastRequestTime.Store(time.Now().UnixNano())
		if u.metrics != nil {
			u.metrics.CountModbusRequest(code)
		}
		return next(s, frame)
	}
}

// interceptWriteSingleCoil 攔截 FC05 的寫入位址後委派內建實作
func (u *ModbusUnit) interceptWriteSingleCoil(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) >= 4 {
		addr := binary.BigEndian.Uint16(data[0:2])
		// 協議定義 0xFF00 為 ON，其餘非零值一併視為 ON
		on := binary.BigEndian.Uint16(data[2:4]) != 0
		u.recordCoilWrite(addr, on)
	}
	return mbserver.WriteSingleCoil(s, frame)
}

// interceptWriteMultipleCoils 攔截 FC15 展開後的每個線圈位址
func (u *ModbusUnit) interceptWriteMultipleCoils(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) >= 5 {
		addr := binary.BigEndian.Uint16(data[0:2])
		quantity := int(binary.BigEndian.Uint16(data[2:4]))
		values := data[5:]
		if max := len(values) * 8; quantity > max {
			quantity = max
		}
		for i, on := range ByteToCoils(values, quantity) {
			u.recordCoilWrite(addr+uint16(i), on)
		}
	}
	return mbserver.WriteMultipleCoils(s, frame)
}
