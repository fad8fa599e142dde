package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	routeFrom uint64
	routeTo   uint64
)

func init() {
	routeCmd.Flags().Uint64Var(&routeFrom, "from", 0, "Start waypoint id")
	routeCmd.Flags().Uint64Var(&routeTo, "to", 0, "Goal waypoint id")
	routeCmd.MarkFlagRequired("from")
	routeCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(routeCmd)
}

var routeCmd = &cobra.Command{
	Use:   "route [config.xml]",
	Short: "Find the shortest waypoint path between two nodes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadDocument(args[0])
		if err != nil {
			return err
		}

		path := doc.Store.ShortestPath(routeFrom, routeTo)
		if path == nil {
			return fmt.Errorf("no route from %d to %d", routeFrom, routeTo)
		}

		parts := make([]string, len(path))
		for i, id := range path {
			parts[i] = fmt.Sprintf("%d", id)
		}
		fmt.Printf("%d hops: %s\n", len(path)-1, strings.Join(parts, " -> "))
		return nil
	},
}
