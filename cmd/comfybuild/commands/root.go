// Package commands provides the CLI commands for comfybuild.
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/effekt/comfybuild/internal/config"
	"github.com/effekt/comfybuild/internal/logging"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	baseDir    string
	configsDir string
	logLevel   string
	prettyLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "comfybuild",
	Short: "comfybuild - ComfyUI variant manager",
	Long: `comfybuild manages ComfyUI variants: named configurations bundling
custom nodes, model weights, Python requirements, and workflows, with
single-parent inheritance between variants.

Run 'comfybuild list' to see available variants, or 'comfybuild build'
to assemble one.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logging.Config{
			Level:  logLevel,
			Pretty: prettyLogs,
		})
		// Tokens for gated downloads may live in a .env file.
		_ = godotenv.Load()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseDir, "base-dir", "", "Base directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&configsDir, "configs-dir", "", "Directory containing variant documents (default: <base-dir>/configs)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&prettyLogs, "pretty", false, "Human-readable console logs")

	rootCmd.SetVersionTemplate(fmt.Sprintf("comfybuild %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(installNodesCmd)
	rootCmd.AddCommand(nodesCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(watchCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getBaseDir returns the base directory from flag or current directory.
func getBaseDir() (string, error) {
	if baseDir != "" {
		return baseDir, nil
	}
	return os.Getwd()
}

// newLoader creates a loader over the configs directory. The configs/
// subdirectory is preferred; the base directory itself is the fallback for
// flat layouts.
func newLoader() (*config.Loader, error) {
	if configsDir != "" {
		return config.NewLoader(configsDir), nil
	}
	base, err := getBaseDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(base, "configs")
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = base
	}
	return config.NewLoader(dir), nil
}
