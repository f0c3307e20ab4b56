package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"lanlink-core/internal/config"

	"github.com/spf13/cobra"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage the LanLink configuration file.

Commands:
  init      Write a configuration file with default values
  show      Show the effective configuration (file + environment)
  paths     List the locations searched for a configuration file`,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with default values",
	Long: `Write a configuration file with default values. Without a path the
first writable search location is used.

Example:
  lanlink config init
  lanlink config init ./lanlink.yaml --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List configuration search locations",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := newOutput(cmd)
		for i, p := range config.NewManager().SearchPaths() {
			out.Plain("  %d. %s", i+1, p)
		}
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathsCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)
	mgr := config.NewManager()

	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	if path != "" && !configForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
		}
	}

	written, err := mgr.Save(config.Default(), path)
	if err != nil {
		return err
	}

	out.Success("Configuration file created: %s", written)
	out.Info("Set room.name and room.secret, then run:")
	out.Plain("  lanlink connect -c %s", written)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	out := newOutput(cmd)
	out.Header("Current Configuration")
	if path == "" {
		path = "(none, using defaults)"
	}
	out.KeyValue("file", path)

	out.Section("Room")
	out.KeyValue("name", orDash(cfg.Room.Name))
	out.KeyValue("secret", orDash(cfg.Room.Secret.String()))
	out.KeyValue("role", cfg.Room.Role)
	out.KeyValue("instance_name", cfg.Room.InstanceName)

	out.Section("Overlay")
	out.KeyValue("monitor_interval", cfg.Overlay.MonitorInterval.String())
	out.KeyValue("find_host_timeout", cfg.Overlay.FindHostTimeout.String())
	out.KeyValue("game_ports", joinInts(cfg.Overlay.GamePorts))
	out.KeyValue("public_servers", strings.Join(cfg.Overlay.PublicServers, ", "))
	out.KeyValue("full_tunnel", strconv.FormatBool(cfg.Overlay.FullTunnel))

	out.Section("API")
	out.KeyValue("enabled", strconv.FormatBool(cfg.API.Enabled))
	out.KeyValue("listen", cfg.API.Listen)
	out.KeyValue("rate_limit", strconv.FormatFloat(cfg.API.RateLimit, 'f', -1, 64))
	out.KeyValue("burst", strconv.Itoa(cfg.API.Burst))
	out.KeyValue("metrics", cfg.API.Metrics)

	out.Section("Tun")
	out.KeyValue("name", cfg.Tun.Name)
	out.KeyValue("address", cfg.Tun.Address)
	out.KeyValue("mtu", strconv.Itoa(cfg.Tun.MTU))
	out.KeyValue("routes", strings.Join(cfg.Tun.Routes, ", "))

	out.Section("Log")
	out.KeyValue("level", cfg.Log.Level)
	out.KeyValue("format", cfg.Log.Format)
	out.KeyValue("output", cfg.Log.Output)
	if cfg.Log.File != "" {
		out.KeyValue("file", cfg.Log.File)
	}
	return nil
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
