package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/effekt/comfybuild/internal/build"
	"github.com/effekt/comfybuild/internal/config"
	"github.com/effekt/comfybuild/pkg/types"
)

var (
	buildOutput  string
	buildCompose bool
)

var buildCmd = &cobra.Command{
	Use:   "build <variant>",
	Short: "Build a variant",
	Long: `Validate a variant and assemble its build artifacts: manifests, the
rendered config, workflows, and the startup script.

Examples:
  comfybuild build sdxl
  comfybuild build sdxl -o ./out --compose`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Output directory for build artifacts")
	buildCmd.Flags().BoolVar(&buildCompose, "compose", false, "Also write a docker-compose.yml")
}

func runBuild(cmd *cobra.Command, args []string) error {
	loader, err := newLoader()
	if err != nil {
		return err
	}
	base, err := getBaseDir()
	if err != nil {
		return err
	}

	name := config.NormalizeName(args[0])
	if err := validateVariant(loader, name); err != nil {
		return err
	}

	doc, err := loader.Resolve(name)
	if err != nil {
		return err
	}
	variant, err := types.FromDocument(doc)
	if err != nil {
		return err
	}

	result, err := build.NewBuilder(base).Build(variant, buildOutput, build.Options{Compose: buildCompose})
	if err != nil {
		return err
	}

	fmt.Printf("Built %s (%s) into %s\n", result.Name, result.ID, result.OutputDir)
	return nil
}
