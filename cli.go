package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	verbose   bool
	logger    *zap.Logger
	appConfig *Config
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "iocd",
	Short: "IOC-16 工業 I/O 裝置守護程序",
	Long: `IOC-16 遠端 I/O 裝置的主控程式。
對外以 Modbus RTU/TCP 從站提供 I/O 狀態，輪詢 RS-485 感測器，
並可選啟用網頁控制介面與 MQTT 遙測。`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 初始化日誌
		var err error
		logger, err = initLogger()
		if err != nil {
			return fmt.Errorf("初始化日誌失敗: %w", err)
		}

		// 載入配置 (除了 version 和 help 命令)
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "generate" {
			appConfig, err = LoadConfig(cfgFile)
			if err != nil {
				// 配置載入失敗時使用預設值
				appConfig = DefaultConfig()
				if cfgFile != "" {
					logger.Warn("載入配置檔失敗，使用預設配置", zap.Error(err))
				}
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// startCmd 啟動命令
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "啟動裝置守護程序",
	Long:  "啟動守護程序主迴圈，直到收到 SIGINT/SIGTERM 為止。",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 覆蓋 CLI 參數
		if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
			appConfig.Modbus.Mode = mode
		}
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			appConfig.Modbus.TCPPort = port
		}
		sim, _ := cmd.Flags().GetBool("sim")

		logger.Info("啟動 IOC-16 守護程序",
			zap.String("version", Version),
			zap.String("mode", appConfig.RunMode().String()),
			zap.Bool("sim", sim),
		)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		hal := NewSimHAL()
		if sim {
			hal.StartDrift(ctx, time.Second)
		}

		daemon := NewDaemon(appConfig, hal, logger)
		if err := daemon.Run(ctx); err != nil {
			return fmt.Errorf("守護程序異常結束: %w", err)
		}

		logger.Info("守護程序已停止")
		return nil
	},
}

// statusCmd 狀態命令
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "查詢運行狀態",
	Long:  "透過網頁介面的 status.json 端點查詢運行中裝置的狀態。",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")

		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(strings.TrimRight(url, "/") + "/status.json")
		if err != nil {
			return fmt.Errorf("查詢狀態失敗: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("狀態查詢回應異常: %s", resp.Status)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("讀取回應失敗: %w", err)
		}

		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err != nil {
			fmt.Println(string(body))
			return nil
		}
		fmt.Println(buf.String())
		return nil
	},
}

// configCmd 配置命令組
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "配置管理命令",
	Long:  "管理配置檔。",
}

// configValidateCmd 驗證配置
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "驗證配置檔",
	Long:  "嚴格驗證配置，列出運行時會被靜默修正的問題。",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("載入配置失敗: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("配置驗證失敗: %w", err)
		}

		fmt.Println("配置驗證通過")
		fmt.Printf("  Mode: %s\n", cfg.RunMode())
		if cfg.RunMode() == ModeTCP {
			fmt.Printf("  TCP Port: %d\n", cfg.Modbus.TCPPort)
		} else {
			fmt.Printf("  RTU Device: %s @ %d\n", cfg.Modbus.RTUDevice, cfg.Modbus.RTUBaudrate)
		}
		fmt.Printf("  Sensor: %v", cfg.Sensor.Enable)
		if cfg.Sensor.Profile != "" {
			fmt.Printf(" (profile %s)", cfg.Sensor.Profile)
		}
		fmt.Println()
		fmt.Printf("  Web: %v (port %d)\n", cfg.Web.Enable, cfg.Web.Port)
		fmt.Printf("  Telemetry: %v\n", cfg.Telemetry.Enable)
		return nil
	},
}

// configGenerateCmd 生成配置
var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "生成範例配置",
	Long:  "生成範例配置檔。",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = "config.json"
		}

		cfg := DefaultConfig()

		// 展示常用組合：SN_HUTE 溫濕度感測器加網頁介面
		cfg.Sensor.Enable = true
		cfg.Sensor.Profile = ProfileSNHute
		cfg.Web.Enable = true

		if err := cfg.SaveConfig(output); err != nil {
			return fmt.Errorf("生成配置失敗: %w", err)
		}

		fmt.Printf("範例配置已生成: %s\n", output)
		return nil
	},
}

// versionCmd 版本命令
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "顯示版本資訊",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("iocd version %s\n", Version)
		fmt.Printf("  Build: %s\n", BuildTime)
		fmt.Printf("  Commit: %s\n", GitCommit)
	},
}

func init() {
	// 全域 flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置檔路徑")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "輸出除錯日誌")

	// start 命令 flags
	startCmd.Flags().StringP("mode", "m", "", "運行模式 (RTU 或 TCP)")
	startCmd.Flags().IntP("port", "p", 0, "Modbus TCP 監聽埠號")
	startCmd.Flags().Bool("sim", false, "模擬硬體數值漂移")

	// status 命令 flags
	statusCmd.Flags().StringP("url", "u", "http://127.0.0.1", "網頁介面位址")

	// config 命令 flags
	configGenerateCmd.Flags().StringP("output", "o", "config.json", "輸出檔案路徑")

	// 組裝命令樹
	configCmd.AddCommand(configValidateCmd, configGenerateCmd)

	rootCmd.AddCommand(
		startCmd,
		statusCmd,
		configCmd,
		versionCmd,
	)
}

func initLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// Execute 執行 CLI
func Execute() error {
	return rootCmd.Execute()
}
