package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/devinctl/internal/playbook"
)

func init() {
	rootCmd.AddCommand(playbookCmd)
	playbookCmd.AddCommand(playbookListCmd, playbookUpdateCmd)

	playbookUpdateCmd.Flags().String("macro", playbook.DefaultMacro, "macro of the playbook to update")
	playbookUpdateCmd.Flags().String("title", playbook.DefaultTitle, "new playbook title")
	playbookUpdateCmd.Flags().String("file", "", "markdown file with the new playbook body (required)")
	_ = playbookUpdateCmd.MarkFlagRequired("file")
}

var playbookCmd = &cobra.Command{
	Use:   "playbook",
	Short: "Manage playbooks",
}

var playbookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List playbooks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		list, err := client.ListPlaybooks(cmd.Context())
		if err != nil {
			return fmt.Errorf("list playbooks: %w", err)
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No playbooks found.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMACRO\tTITLE")
		for _, pb := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\n", pb.PlaybookID, pb.Macro, pb.Title)
		}
		return w.Flush()
	},
}

var playbookUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Replace the body of the playbook with a given macro",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		macro, _ := cmd.Flags().GetString("macro")
		title, _ := cmd.Flags().GetString("title")
		file, _ := cmd.Flags().GetString("file")

		body, err := playbook.LoadBody(file)
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Updating playbook %s from %s (%d chars)...\n", macro, file, len(body))
		upd, err := playbook.Replace(cmd.Context(), client, macro, title, body)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Playbook updated: %s\n", upd.Previous.PlaybookID)
		if upd.Previous.Title != title {
			fmt.Fprintf(out, "  Title: %s -> %s\n", upd.Previous.Title, title)
		}
		if !upd.Response.IsEmpty() {
			data, err := upd.Response.Indent()
			if err == nil {
				fmt.Fprintf(out, "\nResponse:\n%s\n", data)
			}
		}
		return nil
	},
}
