// Package cmd lanlink 命令行
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"lanlink-core/internal/app"
	"lanlink-core/internal/cli"
	"lanlink-core/internal/config"
	corelog "lanlink-core/internal/core/log"
	"lanlink-core/internal/engine"
	"lanlink-core/internal/version"

	"github.com/spf13/cobra"
)

// 全局标志
var (
	configFile string
	logLevel   string
	logFile    string
	noColor    bool
)

// newEngine 测试中替换为假引擎
var newEngine = engine.Default

var rootCmd = &cobra.Command{
	Use:   "lanlink",
	Short: "LanLink - play LAN games over a P2P virtual network",
	Long: `LanLink joins a virtual LAN room so that games which only support
local multiplayer (Terraria, Stardew Valley, Minecraft) can be played
over the internet. One player hosts the room, the others join as guests.

Quick Start:
  lanlink connect my-room --host      Host a room
  lanlink connect my-room             Join a room as a guest
  lanlink serve                       Run the local control API
  lanlink diagnose                    Check that the overlay engine works`,
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute 执行根命令
func Execute() {
	defer func() {
		if r := recover(); r != nil {
			corelog.Errorf("FATAL: main goroutine panic recovered: %v", r)
			fmt.Fprintf(os.Stderr, "\nPANIC: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", string(debug.Stack()))
			os.Exit(2)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug/info/warn/error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log", "", "Log file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig 加载配置，命令行参数覆盖文件与环境变量
func loadConfig() (*config.Config, string, error) {
	cfg, path, err := config.NewManager().Load(configFile)
	if err != nil {
		return nil, path, err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFile != "" {
		cfg.Log.Output = corelog.OutputFile
		cfg.Log.File = logFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// setup 加载配置并初始化日志
func setup() (*config.Config, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if _, err := corelog.Setup(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	if path != "" {
		corelog.Debugf("Using config file %s", path)
	}
	return cfg, nil
}

// buildApp 按配置组装运行时
func buildApp(ctx context.Context, cfg *config.Config) (*app.App, error) {
	return app.NewBuilder(cfg, newEngine()).
		WithLogger(corelog.Default()).
		WithDefaults().
		Build(ctx)
}

// signalContext Ctrl+C / SIGTERM 时取消
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newOutput(cmd *cobra.Command) *cli.Output {
	return cli.NewOutputTo(cmd.OutOrStdout(), noColor)
}
