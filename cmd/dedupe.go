package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	dedupeThreshold float32
	dedupeDryRun    bool
	dedupeOutput    string
)

func init() {
	dedupeCmd.Flags().Float32VarP(&dedupeThreshold, "threshold", "t", 0, "Merge distance in world units (0 = use config)")
	dedupeCmd.Flags().BoolVar(&dedupeDryRun, "dry-run", false, "Report what would be merged without writing")
	dedupeCmd.Flags().StringVarP(&dedupeOutput, "output", "o", "", "Output file (default: overwrite input)")
	rootCmd.AddCommand(dedupeCmd)
}

var dedupeCmd = &cobra.Command{
	Use:   "dedupe [config.xml]",
	Short: "Merge duplicate waypoints that lie within the merge threshold",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		threshold := dedupeThreshold
		if threshold == 0 {
			threshold = cfg.DedupThreshold
		}

		doc, err := loadDocument(args[0])
		if err != nil {
			return err
		}
		store := doc.Store

		if dedupeDryRun {
			removed, groups := store.CountDuplicates(threshold)
			fmt.Printf("would remove %d nodes in %d groups (threshold %g)\n", removed, groups, threshold)
			return nil
		}

		report := store.Deduplicate(threshold)
		if !report.HadDuplicates() {
			fmt.Println("no duplicates found")
			return nil
		}
		fmt.Printf("removed %d nodes in %d groups\n", report.RemovedNodes, report.DuplicateGroups)
		fmt.Printf("remapped %d connections, dropped %d self-connections, moved %d markers\n",
			report.RemappedConnections, report.RemovedSelfConnections, report.RemappedMarkers)

		output := dedupeOutput
		if output == "" {
			output = args[0]
		}
		return saveDocument(output, doc)
	},
}
