package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/effekt/comfybuild/internal/config"
	"github.com/effekt/comfybuild/internal/nodes"
	"github.com/effekt/comfybuild/pkg/types"
)

var (
	installNodesFrom     string
	installNodesSkipReqs bool
)

var installNodesCmd = &cobra.Command{
	Use:   "install-nodes <variant>",
	Short: "Install custom nodes for a variant",
	Long: `Clone the custom node repositories declared by a variant into the
custom_nodes directory, then install their Python requirements. Existing
checkouts are updated in place.

Examples:
  comfybuild install-nodes sdxl
  comfybuild install-nodes --from nodes.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInstallNodes,
}

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Inspect installed custom nodes",
}

var nodesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed custom nodes",
	RunE:  runNodesList,
}

var nodesRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an installed custom node",
	Args:  cobra.ExactArgs(1),
	RunE:  runNodesRemove,
}

var nodesExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the installed node list as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runNodesExport,
}

func init() {
	installNodesCmd.Flags().StringVar(&installNodesFrom, "from", "", "Install from an exported node list instead of a variant")
	installNodesCmd.Flags().BoolVar(&installNodesSkipReqs, "skip-requirements", false, "Skip pip requirements installation")

	nodesCmd.AddCommand(nodesListCmd)
	nodesCmd.AddCommand(nodesRemoveCmd)
	nodesCmd.AddCommand(nodesExportCmd)
}

func newInstaller() (*nodes.Installer, error) {
	base, err := getBaseDir()
	if err != nil {
		return nil, err
	}
	return nodes.NewInstaller(base), nil
}

func runInstallNodes(cmd *cobra.Command, args []string) error {
	installer, err := newInstaller()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if installNodesFrom != "" {
		if err := installer.ImportList(ctx, installNodesFrom); err != nil {
			return err
		}
	} else {
		if len(args) == 0 {
			return fmt.Errorf("a variant name or --from is required")
		}
		loader, err := newLoader()
		if err != nil {
			return err
		}
		doc, err := loader.Resolve(config.NormalizeName(args[0]))
		if err != nil {
			return err
		}
		variant, err := types.FromDocument(doc)
		if err != nil {
			return err
		}
		if err := installer.InstallAll(ctx, variant.Nodes); err != nil {
			return err
		}
	}

	if installNodesSkipReqs {
		return nil
	}
	return installer.InstallAllRequirements(ctx)
}

func runNodesList(cmd *cobra.Command, args []string) error {
	installer, err := newInstaller()
	if err != nil {
		return err
	}

	installed, err := installer.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(installed) == 0 {
		fmt.Println("No custom nodes installed")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBRANCH\tCOMMIT\tURL\t")
	for _, node := range installed {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", node.Name, node.Branch, node.Commit, node.URL)
	}
	return w.Flush()
}

func runNodesRemove(cmd *cobra.Command, args []string) error {
	installer, err := newInstaller()
	if err != nil {
		return err
	}
	return installer.Remove(args[0])
}

func runNodesExport(cmd *cobra.Command, args []string) error {
	installer, err := newInstaller()
	if err != nil {
		return err
	}
	if err := installer.ExportList(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Exported node list to %s\n", args[0])
	return nil
}
