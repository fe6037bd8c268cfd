package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/effekt/comfybuild/internal/config"
)

var createBaseImage string

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new variant",
	Long: `Write a new variant document extending the base variant. The template
starts with empty node, requirement, and model sections; inherited content
comes from the base variant at resolve time.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVarP(&createBaseImage, "base-image", "b", config.DefaultBaseImage, "Base Docker image")
}

func runCreate(cmd *cobra.Command, args []string) error {
	loader, err := newLoader()
	if err != nil {
		return err
	}

	path, err := loader.WriteTemplate(config.NormalizeName(args[0]), createBaseImage)
	if err != nil {
		return err
	}
	fmt.Printf("Created variant template: %s\n", path)
	return nil
}
