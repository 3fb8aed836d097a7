package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// --- 運行模式 ---

// Mode 裝置運行模式
type Mode int

const (
	// ModeRTU RS-485 序列埠從站
	ModeRTU Mode = iota
	// ModeTCP 乙太網路從站
	ModeTCP
)

func (m Mode) String() string {
	switch m {
	case ModeTCP:
		return "TCP"
	default:
		return "RTU"
	}
}

// ParseMode 解析運行模式字串
// 未知值預設為 RTU
func ParseMode(s string) Mode {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TCP":
		return ModeTCP
	default:
		return ModeRTU
	}
}

// WatchdogTimeout 依模式取得看門狗逾時
// 網路模式需要等待 DHCP 與連線建立，逾時較長
func (m Mode) WatchdogTimeout() time.Duration {
	if m == ModeTCP {
		return 120 * time.Second
	}
	return 5 * time.Second
}

// --- 常數 ---

const (
	// EnvFile 啟動時載入的環境變數檔，既有環境變數優先
	EnvFile = "settings.env"

	// ProfileSNHute RS-485 溫濕度傳送器預設組合
	ProfileSNHute = "SN_HUTE"

	// MinSensorPollSec 感測器輪詢間隔下限（秒）
	MinSensorPollSec = 0.2
	// MinWebRefreshSec 網頁自動更新間隔下限（秒）
	MinWebRefreshSec = 1
	// MinTelemetryIntervalSec 遙測發布間隔下限（秒）
	MinTelemetryIntervalSec = 5.0
)

// --- 配置結構 ---

// Config 全域配置
type Config struct {
	Modbus    ModbusConfig    `json:"modbus" mapstructure:"modbus"`
	Sensor    SensorConfig    `json:"sensor" mapstructure:"sensor"`
	Web       WebConfig       `json:"web" mapstructure:"web"`
	Telemetry TelemetryConfig `json:"telemetry" mapstructure:"telemetry"`
	Watchdog  WatchdogConfig  `json:"watchdog" mapstructure:"watchdog"`
	Network   NetworkConfig   `json:"network" mapstructure:"network"`
}

// ModbusConfig 從站引擎配置
type ModbusConfig struct {
	Mode        string `json:"mode" mapstructure:"mode"`
	TCPPort     int    `json:"tcp_port" mapstructure:"tcp_port"`
	RTUDevice   string `json:"rtu_device" mapstructure:"rtu_device"`
	RTUBaudrate int    `json:"rtu_baudrate" mapstructure:"rtu_baudrate"`
	UnitID      uint8  `json:"unit_id" mapstructure:"unit_id"`
}

// SensorConfig RS-485 感測器配置
type SensorConfig struct {
	Enable   bool           `json:"enable" mapstructure:"enable"`
	Profile  string         `json:"profile" mapstructure:"profile"`
	Device   string         `json:"device" mapstructure:"device"`
	Baudrate int            `json:"baudrate" mapstructure:"baudrate"` // 0 表示沿用引擎鮑率
	Addr     uint8          `json:"addr" mapstructure:"addr"`
	Reg      uint16         `json:"reg" mapstructure:"reg"`
	Func     string         `json:"func" mapstructure:"func"` // IREG | HREG
	Format   string         `json:"format" mapstructure:"format"`
	Signed   bool           `json:"signed" mapstructure:"signed"`
	Qty      int            `json:"qty" mapstructure:"qty"` // 0 表示依格式推導
	Scale    float64        `json:"scale" mapstructure:"scale"`
	PollSec  float64        `json:"poll_sec" mapstructure:"poll_sec"`
	Humidity HumidityConfig `json:"humidity" mapstructure:"humidity"`
}

// HumidityConfig 濕度通道配置，沿用主通道的傳輸與從站位址
type HumidityConfig struct {
	Enable bool    `json:"enable" mapstructure:"enable"`
	Reg    uint16  `json:"reg" mapstructure:"reg"`
	Format string  `json:"format" mapstructure:"format"`
	Signed bool    `json:"signed" mapstructure:"signed"`
	Qty    int     `json:"qty" mapstructure:"qty"`
	Scale  float64 `json:"scale" mapstructure:"scale"`
}

// WebConfig 網頁控制介面配置
type WebConfig struct {
	Enable     bool `json:"enable" mapstructure:"enable"`
	Port       int  `json:"port" mapstructure:"port"`
	RefreshSec int  `json:"refresh_sec" mapstructure:"refresh_sec"`
}

// TelemetryConfig MQTT 遙測配置
type TelemetryConfig struct {
	Enable      bool    `json:"enable" mapstructure:"enable"`
	Broker      string  `json:"broker" mapstructure:"broker"`
	Port        int     `json:"port" mapstructure:"port"`
	Topic       string  `json:"topic" mapstructure:"topic"`
	IntervalSec float64 `json:"interval_sec" mapstructure:"interval_sec"`
	ClientID    string  `json:"client_id" mapstructure:"client_id"` // 空值於啟動時產生
}

// WatchdogConfig 看門狗配置
type WatchdogConfig struct {
	Enable bool   `json:"enable" mapstructure:"enable"`
	Device string `json:"device" mapstructure:"device"`
}

// NetworkConfig 網路介面配置
type NetworkConfig struct {
	Interface string `json:"interface" mapstructure:"interface"`
}

// DefaultConfig 返回預設配置
func DefaultConfig() *Config {
	return &Config{
		Modbus: ModbusConfig{
			Mode:        ModeRTU.String(),
			TCPPort:     ModbusTCPDefaultPort,
			RTUDevice:   "/dev/ttyS0",
			RTUBaudrate: 9600,
			UnitID:      1,
		},
		Sensor: SensorConfig{
			Enable:   false,
			Profile:  "",
			Device:   "/dev/ttyS1",
			Baudrate: 0,
			Addr:     1,
			Reg:      0,
			Func:     TableInput.String(),
			Format:   FormatInt16.String(),
			Signed:   true,
			Qty:      0,
			Scale:    1.0,
			PollSec:  2.0,
			Humidity: HumidityConfig{
				Enable: false,
				Reg:    0,
				Format: FormatInt16.String(),
				Signed: true,
				Qty:    0,
				Scale:  1.0,
			},
		},
		Web: WebConfig{
			Enable:     false,
			Port:       80,
			RefreshSec: 5,
		},
		Telemetry: TelemetryConfig{
			Enable:      false,
			Broker:      "",
			Port:        1883,
			Topic:       "iocd",
			IntervalSec: 30,
			ClientID:    "",
		},
		Watchdog: WatchdogConfig{
			Enable: true,
			Device: "/dev/watchdog",
		},
		Network: NetworkConfig{
			Interface: "eth0",
		},
	}
}

// envBindings 配置鍵對應的環境變數
// 裝置沿用無前綴的變數命名，settings.env 與實際環境變數等效
var envBindings = map[string]string{
	"modbus.mode":            "MODBUS_MODE",
	"modbus.tcp_port":        "MODBUS_TCP_PORT",
	"modbus.rtu_device":      "MODBUS_RTU_DEVICE",
	"modbus.rtu_baudrate":    "MODBUS_RTU_BAUDRATE",
	"modbus.unit_id":         "MODBUS_UNIT_ID",
	"sensor.enable":          "RS485_SENSOR_ENABLE",
	"sensor.profile":         "RS485_SENSOR_PROFILE",
	"sensor.device":          "RS485_SENSOR_DEVICE",
	"sensor.baudrate":        "RS485_SENSOR_BAUD",
	"sensor.addr":            "RS485_SENSOR_ADDR",
	"sensor.reg":             "RS485_SENSOR_REG",
	"sensor.func":            "RS485_SENSOR_FUNC",
	"sensor.format":          "RS485_SENSOR_FORMAT",
	"sensor.signed":          "RS485_SENSOR_SIGNED",
	"sensor.qty":             "RS485_SENSOR_QTY",
	"sensor.scale":           "RS485_SENSOR_SCALE",
	"sensor.poll_sec":        "RS485_SENSOR_POLL_SEC",
	"sensor.humidity.enable": "RS485_SENSOR_HUM_ENABLE",
	"sensor.humidity.reg":    "RS485_SENSOR_HUM_REG",
	"sensor.humidity.format": "RS485_SENSOR_HUM_FORMAT",
	"sensor.humidity.signed": "RS485_SENSOR_HUM_SIGNED",
	"sensor.humidity.qty":    "RS485_SENSOR_HUM_QTY",
	"sensor.humidity.scale":  "RS485_SENSOR_HUM_SCALE",
	"web.enable":             "WEBSERVER_ENABLE",
	"web.port":               "WEBSERVER_PORT",
	"web.refresh_sec":        "WEBSERVER_REFRESH_SEC",
	"telemetry.enable":       "TELEMETRY_ENABLE",
	"telemetry.broker":       "TELEMETRY_BROKER",
	"telemetry.port":         "TELEMETRY_PORT",
	"telemetry.topic":        "TELEMETRY_TOPIC",
	"telemetry.interval_sec": "TELEMETRY_INTERVAL_SEC",
	"telemetry.client_id":    "TELEMETRY_CLIENT_ID",
	"watchdog.enable":        "WATCHDOG_ENABLE",
	"watchdog.device":        "WATCHDOG_DEVICE",
	"network.interface":      "NETWORK_IFACE",
}

// LoadConfig 載入配置
// 優先序：環境變數 > settings.env > 配置檔 > 預設值
// 配置錯誤一律靜默回退，不中斷啟動；僅明確指定的配置檔讀不到才回報錯誤
func LoadConfig(configPath string) (*Config, error) {
	// settings.env 不覆蓋既有環境變數，檔案不存在則略過
	_ = godotenv.Load(EnvFile)

	v := viper.New()

	def := DefaultConfig()
	setDefaults(v, def)
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("讀取配置檔失敗: %w", err)
		}
	}

	applyProfileDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失敗: %w", err)
	}

	cfg.Normalize()

	return cfg, nil
}

func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("modbus.mode", def.Modbus.Mode)
	v.SetDefault("modbus.tcp_port", def.Modbus.TCPPort)
	v.SetDefault("modbus.rtu_device", def.Modbus.RTUDevice)
	v.SetDefault("modbus.rtu_baudrate", def.Modbus.RTUBaudrate)
	v.SetDefault("modbus.unit_id", def.Modbus.UnitID)
	v.SetDefault("sensor.enable", def.Sensor.Enable)
	v.SetDefault("sensor.profile", def.Sensor.Profile)
	v.SetDefault("sensor.device", def.Sensor.Device)
	v.SetDefault("sensor.baudrate", def.Sensor.Baudrate)
	v.SetDefault("sensor.addr", def.Sensor.Addr)
	v.SetDefault("sensor.reg", def.Sensor.Reg)
	v.SetDefault("sensor.func", def.Sensor.Func)
	v.SetDefault("sensor.format", def.Sensor.Format)
	v.SetDefault("sensor.signed", def.Sensor.Signed)
	v.SetDefault("sensor.qty", def.Sensor.Qty)
	v.SetDefault("sensor.scale", def.Sensor.Scale)
	v.SetDefault("sensor.poll_sec", def.Sensor.PollSec)
	v.SetDefault("sensor.humidity.enable", def.Sensor.Humidity.Enable)
	v.SetDefault("sensor.humidity.reg", def.Sensor.Humidity.Reg)
	v.SetDefault("sensor.humidity.format", def.Sensor.Humidity.Format)
	v.SetDefault("sensor.humidity.signed", def.Sensor.Humidity.Signed)
	v.SetDefault("sensor.humidity.qty", def.Sensor.Humidity.Qty)
	v.SetDefault("sensor.humidity.scale", def.Sensor.Humidity.Scale)
	v.SetDefault("web.enable", def.Web.Enable)
	v.SetDefault("web.port", def.Web.Port)
	v.SetDefault("web.refresh_sec", def.Web.RefreshSec)
	v.SetDefault("telemetry.enable", def.Telemetry.Enable)
	v.SetDefault("telemetry.broker", def.Telemetry.Broker)
	v.SetDefault("telemetry.port", def.Telemetry.Port)
	v.SetDefault("telemetry.topic", def.Telemetry.Topic)
	v.SetDefault("telemetry.interval_sec", def.Telemetry.IntervalSec)
	v.SetDefault("telemetry.client_id", def.Telemetry.ClientID)
	v.SetDefault("watchdog.enable", def.Watchdog.Enable)
	v.SetDefault("watchdog.device", def.Watchdog.Device)
	v.SetDefault("network.interface", def.Network.Interface)
}

// applyProfileDefaults 依感測器預設組合改寫預設值
// 預設組合墊在優先序最底層，環境變數與配置檔明確設定的鍵一律勝出。
// SN_HUTE 溫濕度感測器：溫度在保持暫存器 1、濕度在 2，讀值 0.1 倍率
func applyProfileDefaults(v *viper.Viper) {
	if strings.ToUpper(strings.TrimSpace(v.GetString("sensor.profile"))) != ProfileSNHute {
		return
	}

	v.SetDefault("sensor.func", TableHolding.String())
	v.SetDefault("sensor.reg", 1)
	v.SetDefault("sensor.format", FormatInt16.String())
	v.SetDefault("sensor.signed", true)
	v.SetDefault("sensor.qty", 1)
	v.SetDefault("sensor.scale", 0.1)
	v.SetDefault("sensor.humidity.enable", true)
	v.SetDefault("sensor.humidity.reg", 2)
	v.SetDefault("sensor.humidity.format", FormatInt16.String())
	v.SetDefault("sensor.humidity.signed", true)
	v.SetDefault("sensor.humidity.qty", 1)
	v.SetDefault("sensor.humidity.scale", 0.1)
}

// Normalize 套用下限與遞補值
// 超出範圍的值靜默回退，不中斷啟動
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Modbus.TCPPort < 1 || c.Modbus.TCPPort > 65535 {
		c.Modbus.TCPPort = def.Modbus.TCPPort
	}
	if c.Modbus.RTUBaudrate <= 0 {
		c.Modbus.RTUBaudrate = def.Modbus.RTUBaudrate
	}
	if c.Modbus.RTUDevice == "" {
		c.Modbus.RTUDevice = def.Modbus.RTUDevice
	}
	if c.Modbus.UnitID < 1 || c.Modbus.UnitID > 247 {
		c.Modbus.UnitID = def.Modbus.UnitID
	}

	// 感測器鮑率未設定時沿用引擎鮑率
	if c.Sensor.Baudrate <= 0 {
		c.Sensor.Baudrate = c.Modbus.RTUBaudrate
	}
	if c.Sensor.Device == "" {
		c.Sensor.Device = def.Sensor.Device
	}
	if c.Sensor.Addr < 1 || c.Sensor.Addr > 247 {
		c.Sensor.Addr = def.Sensor.Addr
	}
	if c.Sensor.PollSec < MinSensorPollSec {
		c.Sensor.PollSec = MinSensorPollSec
	}
	if c.Sensor.Qty == 0 {
		c.Sensor.Qty = ParseRegisterFormat(c.Sensor.Format).RegisterCount()
	}
	if c.Sensor.Humidity.Qty == 0 {
		c.Sensor.Humidity.Qty = ParseRegisterFormat(c.Sensor.Humidity.Format).RegisterCount()
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		c.Web.Port = def.Web.Port
	}
	if c.Web.RefreshSec < MinWebRefreshSec {
		c.Web.RefreshSec = MinWebRefreshSec
	}

	if c.Telemetry.Port < 1 || c.Telemetry.Port > 65535 {
		c.Telemetry.Port = def.Telemetry.Port
	}
	if c.Telemetry.Topic == "" {
		c.Telemetry.Topic = def.Telemetry.Topic
	}
	if c.Telemetry.IntervalSec < MinTelemetryIntervalSec {
		c.Telemetry.IntervalSec = MinTelemetryIntervalSec
	}

	if c.Watchdog.Device == "" {
		c.Watchdog.Device = def.Watchdog.Device
	}
	if c.Network.Interface == "" {
		c.Network.Interface = def.Network.Interface
	}
}

// Validate 驗證配置
// 啟動流程靜默回退不呼叫此函式，僅供 config validate 子命令使用
func (c *Config) Validate() error {
	switch strings.ToUpper(strings.TrimSpace(c.Modbus.Mode)) {
	case "RTU", "TCP":
	default:
		return fmt.Errorf("無效的運行模式: %s", c.Modbus.Mode)
	}

	if c.Modbus.TCPPort < 1 || c.Modbus.TCPPort > 65535 {
		return fmt.Errorf("無效的 TCP 埠號: %d", c.Modbus.TCPPort)
	}
	if c.Modbus.UnitID < 1 || c.Modbus.UnitID > 247 {
		return fmt.Errorf("無效的從站位址: %d", c.Modbus.UnitID)
	}

	switch strings.ToUpper(strings.TrimSpace(c.Sensor.Profile)) {
	case "", ProfileSNHute:
	default:
		return fmt.Errorf("未知的感測器預設組合: %s", c.Sensor.Profile)
	}

	if c.Sensor.Enable {
		if err := validateChannel(c.Sensor.Func, c.Sensor.Format); err != nil {
			return err
		}
		if c.Sensor.Addr < 1 || c.Sensor.Addr > 247 {
			return fmt.Errorf("無效的感測器從站位址: %d", c.Sensor.Addr)
		}
		if c.Sensor.Humidity.Enable {
			if err := validateChannel(c.Sensor.Func, c.Sensor.Humidity.Format); err != nil {
				return err
			}
		}
	}

	if c.Web.Enable && (c.Web.Port < 1 || c.Web.Port > 65535) {
		return fmt.Errorf("無效的網頁埠號: %d", c.Web.Port)
	}

	if c.Telemetry.Enable && c.Telemetry.Broker == "" {
		return fmt.Errorf("遙測已啟用但未設定 broker")
	}

	return nil
}

func validateChannel(fn, format string) error {
	switch strings.ToUpper(strings.TrimSpace(fn)) {
	case "IREG", "HREG":
	default:
		return fmt.Errorf("無效的暫存器類型: %s", fn)
	}
	switch strings.ToUpper(strings.TrimSpace(format)) {
	case "INT16", "UINT16", "FLOAT32", "FLOAT32_SWAP", "FLOAT32_SWAPPED":
	default:
		return fmt.Errorf("無效的數值格式: %s", format)
	}
	return nil
}

// SaveConfig 儲存配置到檔案
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失敗: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("寫入配置檔失敗: %w", err)
	}

	return nil
}

// RunMode 解析後的運行模式
func (c *Config) RunMode() Mode {
	return ParseMode(c.Modbus.Mode)
}

// PollInterval 感測器輪詢間隔
func (c SensorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollSec * float64(time.Second))
}

// Interval 遙測發布間隔
func (c TelemetryConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSec * float64(time.Second))
}
