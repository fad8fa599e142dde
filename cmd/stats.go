package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats [config.xml]",
	Short: "Print counts and a duplicate-node summary for a route network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		doc, err := loadDocument(args[0])
		if err != nil {
			return err
		}
		store := doc.Store

		fmt.Printf("map:         %s\n", doc.Meta.MapName)
		fmt.Printf("nodes:       %d\n", store.NodeCount())
		fmt.Printf("connections: %d\n", store.ConnectionCount())
		fmt.Printf("markers:     %d\n", store.MarkerCount())

		removed, groups := store.CountDuplicates(cfg.DedupThreshold)
		if removed > 0 {
			fmt.Printf("duplicates:  %d nodes in %d groups (threshold %g)\n", removed, groups, cfg.DedupThreshold)
		} else {
			fmt.Printf("duplicates:  none (threshold %g)\n", cfg.DedupThreshold)
		}
		return nil
	},
}
