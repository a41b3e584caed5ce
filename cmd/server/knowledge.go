package main

import (
	"context"
	"fmt"

	"github.com/aiphoto/backend/config"
	"github.com/spf13/cobra"
)

var seedFile string

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the knowledge store",
}

var knowledgeSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import knowledge entries from a YAML file (built-in defaults when no file is given)",
	RunE:  runKnowledgeSeed,
}

func init() {
	knowledgeSeedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Path to seed YAML file")
	knowledgeCmd.AddCommand(knowledgeSeedCmd)
	rootCmd.AddCommand(knowledgeCmd)
}

func runKnowledgeSeed(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg := config.GetConfig()

	store, db, err := newKnowledgeStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)
	path := seedFile
	if path == "" {
		path = cfg.Knowledge.SeedFile
	}
	n, err := store.SeedFromFile(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to seed knowledge: %w", err)
	}
	fmt.Printf("imported %d knowledge entries (existing entries skipped)\n", n)
	return nil
}
