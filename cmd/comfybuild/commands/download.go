package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/effekt/comfybuild/internal/config"
	"github.com/effekt/comfybuild/internal/models"
	"github.com/effekt/comfybuild/pkg/types"
)

var (
	downloadOutput string
	downloadFrom   string
	downloadList   bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <variant>",
	Short: "Download models for a variant",
	Long: `Download every model declared by a variant into per-category
directories, consulting the local model cache before any network transfer.

Examples:
  comfybuild download sdxl
  comfybuild download sdxl -o ./models
  comfybuild download --from models.json
  comfybuild download --list`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "Output directory for models")
	downloadCmd.Flags().StringVar(&downloadFrom, "from", "", "Download from a models.json manifest instead of a variant")
	downloadCmd.Flags().BoolVar(&downloadList, "list", false, "List downloaded models instead of downloading")
}

func runDownload(cmd *cobra.Command, args []string) error {
	base, err := getBaseDir()
	if err != nil {
		return err
	}
	manager := models.NewManager(base)

	if downloadList {
		return printDownloaded(manager)
	}

	var refs map[string][]types.ModelRef
	switch {
	case downloadFrom != "":
		data, err := os.ReadFile(downloadFrom)
		if err != nil {
			return fmt.Errorf("failed to read models manifest: %w", err)
		}
		if err := json.Unmarshal(data, &refs); err != nil {
			return fmt.Errorf("failed to decode models manifest: %w", err)
		}
	case len(args) == 1:
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
		refs = variant.Models
	default:
		return fmt.Errorf("a variant name or --from is required")
	}

	if len(refs) == 0 {
		fmt.Println("No models to download")
		return nil
	}
	return manager.DownloadAll(cmd.Context(), refs, downloadOutput)
}

func printDownloaded(manager *models.Manager) error {
	downloaded, err := manager.ListDownloaded(downloadOutput)
	if err != nil {
		return err
	}
	if len(downloaded) == 0 {
		fmt.Println("No models downloaded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tNAME\tSIZE\t")
	for category, list := range downloaded {
		for _, m := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t\n", category, m.Name, humanize.Bytes(uint64(m.Size)))
		}
	}
	return w.Flush()
}
