package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/user/devinctl/internal/deps"
	"github.com/user/devinctl/internal/state"
	"github.com/user/devinctl/pkg/artifactory"
)

func init() {
	rootCmd.AddCommand(artifactCmd)
	artifactCmd.AddCommand(artifactCopyCmd)

	artifactCopyCmd.Flags().String("dir", ".", "directory for downloaded files")
	artifactCopyCmd.Flags().Int("parallel", 1, "number of artifacts transferred at once")
	artifactCopyCmd.Flags().String("from-result", "", "also copy the upload candidates of a saved result file")
	artifactCopyCmd.Flags().String("version", "both", "with --from-result: current, target or both")
}

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Move artifacts between repositories",
}

var artifactCopyCmd = &cobra.Command{
	Use:   "copy [<path>...]",
	Short: "Download artifacts from the source repository and upload them to the target",
	Long: `Copy artifacts from the source repository to the target repository under the
same path, for example com/acme/core/1.2.3/core-1.2.3.jar. Source and target
are configured through ARTIFACTORY_SOURCE_* and ARTIFACTORY_TARGET_*.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		parallel, _ := cmd.Flags().GetInt("parallel")
		fromResult, _ := cmd.Flags().GetString("from-result")
		versionFlag, _ := cmd.Flags().GetString("version")

		paths := append([]string(nil), args...)
		if fromResult != "" {
			version, err := deps.ParseVersion(versionFlag)
			if err != nil {
				return err
			}
			doc, err := state.LoadResult(fromResult)
			if err != nil {
				return err
			}
			paths = append(paths, deps.CandidatePaths(doc, version)...)
		}
		paths = uniquePaths(paths)
		if len(paths) == 0 {
			cmd.SilenceUsage = false
			return fmt.Errorf("no artifacts to copy")
		}

		cfg := loadConfig()
		if err := cfg.RequireArtifactory(); err != nil {
			return err
		}
		var opts []artifactory.Option
		if cfg.Artifactory.Insecure {
			opts = append(opts, artifactory.WithInsecureTLS())
		}

		out := cmd.OutOrStdout()
		copier := &artifactory.Copier{
			Source:   artifactory.NewClient(artifactory.Endpoint(cfg.Artifactory.Source), opts...),
			Target:   artifactory.NewClient(artifactory.Endpoint(cfg.Artifactory.Target), opts...),
			Dir:      dir,
			Parallel: parallel,
			OnResult: func(r artifactory.CopyResult) {
				if r.Err != nil {
					fmt.Fprintf(out, "[ERROR] %s: %v\n", r.Path, r.Err)
					return
				}
				fmt.Fprintf(out, "[OK] %s (%s in %s)\n", r.Path, humanize.Bytes(uint64(r.Size)), r.Duration.Round(time.Millisecond))
				fmt.Fprintf(out, "     -> %s\n", r.TargetURL)
			},
		}

		fmt.Fprintf(out, "Transferring %d artifact(s)...\n", len(paths))
		results := copier.CopyAll(cmd.Context(), paths)

		var total int64
		for _, r := range results {
			if r.Err == nil {
				total += r.Size
			}
		}
		failed := artifactory.Failed(results)
		fmt.Fprintf(out, "\n%d transferred (%s), %d failed\n", len(results)-failed, humanize.Bytes(uint64(total)), failed)
		if failed > 0 {
			return fmt.Errorf("%d of %d artifact(s) failed", failed, len(results))
		}
		return nil
	},
}

// uniquePaths drops empty and repeated paths, keeping first-seen order.
func uniquePaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		p = strings.Trim(strings.TrimSpace(p), "/")
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
