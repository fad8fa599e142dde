package cmd

import (
	"fmt"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
)

var exportJSON bool

func init() {
	exportCmd.Flags().BoolVar(&exportJSON, "json", true, "Emit JSON (the only supported format for now)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [config.xml]",
	Short: "Export a route network as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !exportJSON {
			return fmt.Errorf("only JSON export is supported")
		}
		doc, err := loadDocument(args[0])
		if err != nil {
			return err
		}
		store := doc.Store

		nodes := make([]any, 0, store.NodeCount())
		for _, id := range store.NodeIDs() {
			n, _ := store.Node(id)
			nodes = append(nodes, map[string]any{
				"id":   n.ID,
				"x":    n.Pos.X,
				"z":    n.Pos.Y,
				"flag": n.Flag.String(),
			})
		}

		conns := make([]any, 0, store.ConnectionCount())
		for _, c := range store.Connections() {
			conns = append(conns, map[string]any{
				"start":     c.Start,
				"end":       c.End,
				"direction": c.Direction.String(),
				"priority":  c.Priority.String(),
			})
		}

		markers := make([]any, 0, store.MarkerCount())
		for _, m := range store.Markers() {
			markers = append(markers, map[string]any{
				"node":  m.NodeID,
				"name":  m.Name,
				"group": m.Group,
			})
		}

		payload := map[string]any{
			"map":         doc.Meta.MapName,
			"nodes":       nodes,
			"connections": conns,
			"markers":     markers,
		}
		fmt.Println(oj.JSON(payload, 2))
		return nil
	},
}
