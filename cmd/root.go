package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/route-studio/roadgraph/internal/adformat"
	"github.com/route-studio/roadgraph/internal/config"
)

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "roadgraph.hcl", "Path to tool config (HCL)")
}

var rootCmd = &cobra.Command{
	Use:          "roadgraph",
	Short:        "Roadgraph: inspect and edit AutoDrive waypoint networks",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

func loadDocument(path string) (*adformat.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open route config: %w", err)
	}
	defer f.Close()

	doc, err := adformat.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse route config: %w", err)
	}
	return doc, nil
}

func saveDocument(path string, doc *adformat.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	if err := adformat.Write(f, doc); err != nil {
		return fmt.Errorf("write route config: %w", err)
	}
	return nil
}
