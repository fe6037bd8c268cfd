package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/effekt/comfybuild/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate <variant>",
	Short: "Validate a variant",
	Long: `Resolve a variant's inheritance chain and check the flattened document
against the schema. Every violation is reported, not just the first.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	loader, err := newLoader()
	if err != nil {
		return err
	}

	name := config.NormalizeName(args[0])
	if err := validateVariant(loader, name); err != nil {
		return err
	}
	fmt.Printf("Variant %s is valid\n", name)
	return nil
}

// validateVariant resolves and validates in one step, so both the validate
// and build paths apply the same missing-ancestor policy.
func validateVariant(loader *config.Loader, name string) error {
	doc, err := loader.Resolve(name)
	if err != nil {
		return err
	}
	if err := config.Validate(name, doc); err != nil {
		var ve *config.ValidationError
		if errors.As(err, &ve) {
			for _, v := range ve.Violations {
				fmt.Printf("  %s\n", v)
			}
		}
		return err
	}
	return nil
}
