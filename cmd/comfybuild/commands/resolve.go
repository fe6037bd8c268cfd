package commands

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/effekt/comfybuild/internal/config"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <variant>",
	Short: "Print a variant's resolved document",
	Long: `Resolve a variant's inheritance chain and print the flattened YAML
document to stdout. The output never contains an extends key.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	loader, err := newLoader()
	if err != nil {
		return err
	}

	doc, err := loader.Resolve(config.NormalizeName(args[0]))
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
