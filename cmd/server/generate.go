package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aiphoto/backend/config"
	"github.com/aiphoto/backend/internal/service/orchestrator"
	"github.com/spf13/cobra"
)

var (
	generateNoImage       bool
	generateMaxIterations int
	generateOutput        string
)

var generateCmd = &cobra.Command{
	Use:   "generate [description]",
	Short: "Run the configuration pipeline once and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&generateNoImage, "no-image", false, "Skip cover and reference image generation")
	generateCmd.Flags().IntVar(&generateMaxIterations, "max-iterations", 0, "Review/optimize cycles (defaults to pipeline.max_iterations)")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Write the result to a file instead of stdout")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.GetConfig()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	if cfg.Knowledge.SeedOnStart {
		a.seedKnowledge(ctx)
	}

	opts := orchestrator.RunOptions{MaxIterations: generateMaxIterations}
	if generateNoImage {
		disabled := false
		opts.EnableImage = &disabled
	}
	result := a.orchestrator.Run(ctx, args[0], opts)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if generateOutput != "" {
		if err := os.WriteFile(generateOutput, data, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else {
		fmt.Println(string(data))
	}
	if !result.Success {
		return fmt.Errorf("generation failed: %s", result.Error)
	}
	return nil
}
