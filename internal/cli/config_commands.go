// Package cli configuration management commands.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drivelink/drivelink/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage drivelink configuration",
		Long: `Configuration management commands.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup.

Use --force to overwrite existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := cfgFile
			if configPath == "" {
				var err error
				configPath, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}

			if !force {
				if _, err := os.Stat(configPath); err == nil {
					fmt.Printf("Configuration already exists at: %s\n", configPath)
					fmt.Println("Use --force to overwrite or 'config show' to view it.")
					return nil
				}
			}

			fmt.Println("Drivelink Configuration Setup")
			fmt.Println("=============================")
			fmt.Println()

			reader := bufio.NewReader(os.Stdin)
			cfg := config.NewConfig()

			var serverInput string
			for serverInput == "" {
				fmt.Print("Server URL (required): ")
				input, _ := reader.ReadString('\n')
				serverInput = strings.TrimSpace(input)
				if serverInput == "" {
					fmt.Println("  Error: server URL is required")
				}
			}
			cfg.ServerURL = serverInput

			fmt.Print("Proxy mode [no-proxy/system/basic/ntlm] (default no-proxy): ")
			proxyInput, _ := reader.ReadString('\n')
			proxyInput = strings.TrimSpace(proxyInput)
			if proxyInput != "" {
				cfg.ProxyMode = proxyInput
			}

			if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
				fmt.Print("Proxy host: ")
				host, _ := reader.ReadString('\n')
				cfg.ProxyHost = strings.TrimSpace(host)

				fmt.Print("Proxy port: ")
				port, _ := reader.ReadString('\n')
				if v, err := strconv.Atoi(strings.TrimSpace(port)); err == nil {
					cfg.ProxyPort = v
				}

				fmt.Print("Proxy user (optional): ")
				user, _ := reader.ReadString('\n')
				cfg.ProxyUser = strings.TrimSpace(user)
			}

			if err := config.SaveConfig(cfg, configPath); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			fmt.Printf("\nConfiguration saved to: %s\n", configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				var err error
				path, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}

			cfg, err := config.LoadConfig(path)
			if err != nil {
				return err
			}

			fmt.Printf("Config file: %s\n", path)
			fmt.Printf("Server URL:  %s\n", valueOrUnset(cfg.ServerURL))
			fmt.Printf("Proxy mode:  %s\n", cfg.ProxyMode)
			if cfg.ProxyHost != "" {
				fmt.Printf("Proxy host:  %s:%d\n", cfg.ProxyHost, cfg.ProxyPort)
			}
			if cfg.NoProxy != "" {
				fmt.Printf("No proxy:    %s\n", cfg.NoProxy)
			}
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}

func valueOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}
