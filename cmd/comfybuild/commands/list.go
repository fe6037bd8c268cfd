package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available variants",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	loader, err := newLoader()
	if err != nil {
		return err
	}

	names, err := loader.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No variants found")
		return nil
	}

	fmt.Println("Available variants:")
	for _, name := range names {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}
