package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/devinctl/internal/knowledge"
)

func init() {
	rootCmd.AddCommand(knowledgeCmd)
	knowledgeCmd.AddCommand(knowledgeImportCmd, knowledgeNamesCmd)

	for _, c := range []*cobra.Command{knowledgeImportCmd, knowledgeNamesCmd} {
		c.Flags().String("trigger-prefix", "", "text placed before the item name in each trigger (default from config)")
		c.Flags().StringSlice("ext", nil, "file extensions to import (default from config)")
	}
	knowledgeImportCmd.Flags().Bool("dry-run", false, "show what would be created without calling the API")
	knowledgeImportCmd.Flags().String("folder", "", "parent folder id for created items")
	knowledgeImportCmd.Flags().String("pinned-repo", "", "pin created items to this repository")
}

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Create knowledge items from local documents",
}

// importer builds an Importer from config and the shared flags.
func importer(cmd *cobra.Command) *knowledge.Importer {
	cfg := loadConfig()
	im := &knowledge.Importer{
		Extensions:    cfg.Knowledge.Extensions,
		TriggerPrefix: cfg.Knowledge.TriggerPrefix,
	}
	if v, _ := cmd.Flags().GetString("trigger-prefix"); v != "" {
		im.TriggerPrefix = v
	}
	if v, _ := cmd.Flags().GetStringSlice("ext"); len(v) > 0 {
		im.Extensions = v
	}
	return im
}

var knowledgeImportCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Create one knowledge item per document under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		im := importer(cmd)
		im.DryRun, _ = cmd.Flags().GetBool("dry-run")
		im.ParentFolderID, _ = cmd.Flags().GetString("folder")
		im.PinnedRepo, _ = cmd.Flags().GetString("pinned-repo")
		im.Counter = knowledge.NewTokenCounter()

		if !im.DryRun {
			client, err := newClient()
			if err != nil {
				return err
			}
			im.Creator = client
		}

		out := cmd.OutOrStdout()
		im.OnItem = func(i, total int, item knowledge.Item) {
			fmt.Fprintf(out, "[%d/%d] %s\n", i, total, item.RelPath)
			switch {
			case item.Err != nil:
				fmt.Fprintf(out, "  Skipped: %v\n", item.Err)
			case item.DryRun:
				fmt.Fprintf(out, "  Would create %q (%d chars, ~%d tokens)\n", item.Name, item.Chars, item.Tokens)
				fmt.Fprintf(out, "  Trigger: %s\n", item.Trigger)
			default:
				fmt.Fprintf(out, "  Created %q: %s\n", item.Name, item.ID)
			}
		}

		items, err := im.Import(cmd.Context(), dir)
		created, skipped := 0, 0
		for _, it := range items {
			switch {
			case it.Err != nil:
				skipped++
			case !it.DryRun:
				created++
			}
		}
		if im.DryRun {
			fmt.Fprintf(out, "\nDry run: %d item(s) would be created, %d skipped\n", len(items)-skipped, skipped)
		} else {
			fmt.Fprintf(out, "\nCreated %d knowledge item(s), %d skipped\n", created, skipped)
		}
		if err != nil {
			return fmt.Errorf("import knowledge: %w", err)
		}
		return nil
	},
}

var knowledgeNamesCmd = &cobra.Command{
	Use:   "names <dir>",
	Short: "Show the item name and trigger each document would get",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		im := importer(cmd)
		files, err := knowledge.FindSources(dir, im.Extensions)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No documents found in %s\n", dir)
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tNAME\tTRIGGER")
		for _, path := range files {
			src, err := knowledge.ParseSource(dir, path, im.TriggerPrefix)
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", src.RelPath, src.Name, src.Trigger)
		}
		return w.Flush()
	},
}
