package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kayz/dogcmd/internal/service"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the dogcmd system service",
	Long:  `Install, uninstall, start, stop, or check the status of the dogcmd service.`,
}

var installCmd = &cobra.Command{
	Use:   "install [-- serve flags...]",
	Short: "Install dogcmd as a system service",
	Long: `Install dogcmd as a system service (requires root/admin privileges).
Arguments after -- replace the default "serve" command line, e.g.

  dogcmd service install -- serve --execute --addr 0.0.0.0:8686`,
	RunE: func(cmd *cobra.Command, args []string) error {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("error getting executable path: %w", err)
		}
		fmt.Println("Installing dogcmd service...")
		if err := service.Install(execPath, args); err != nil {
			return fmt.Errorf("error installing service: %w", err)
		}
		fmt.Println("Service installed successfully!")
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the dogcmd service",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Uninstalling dogcmd service...")
		if err := service.Uninstall(); err != nil {
			return fmt.Errorf("error uninstalling service: %w", err)
		}
		fmt.Println("Service uninstalled successfully!")
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the dogcmd service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := service.Start(); err != nil {
			return fmt.Errorf("error starting service: %w", err)
		}
		fmt.Println("Service started!")
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the dogcmd service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := service.Stop(); err != nil {
			return fmt.Errorf("error stopping service: %w", err)
		}
		fmt.Println("Service stopped!")
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the dogcmd service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := service.Restart(); err != nil {
			return fmt.Errorf("error restarting service: %w", err)
		}
		fmt.Println("Service restarted!")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the status of the dogcmd service",
	RunE: func(cmd *cobra.Command, args []string) error {
		binaryPath, configPath, err := service.Paths()
		if err != nil {
			return err
		}
		fmt.Println("=== dogcmd Service Status ===")
		fmt.Println()
		fmt.Printf("Installed: %v\n", service.IsInstalled())
		fmt.Printf("Running:   %v\n", service.IsRunning())
		fmt.Println()
		fmt.Printf("Binary:    %s\n", binaryPath)
		fmt.Printf("Config:    %s\n", configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serviceCmd)
	serviceCmd.AddCommand(installCmd)
	serviceCmd.AddCommand(uninstallCmd)
	serviceCmd.AddCommand(startCmd)
	serviceCmd.AddCommand(stopCmd)
	serviceCmd.AddCommand(restartCmd)
	serviceCmd.AddCommand(statusCmd)
}
