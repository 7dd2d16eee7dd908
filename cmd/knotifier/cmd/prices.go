package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	awscloud "github.com/patoarvizu/knotifier/internal/cloudapi/aws"
	"github.com/patoarvizu/knotifier/internal/config"
	"github.com/patoarvizu/knotifier/internal/pricing"
)

var outputFormat string

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Compute weighted spot prices once and print them",
	Long: `Fetch spot price history for the configured instance types and
availability zones, compute the weighted price for each, and print the
lowest weighted price per instance type.

Example:
  knotifier prices --config config/default.yaml
  knotifier prices --output json`,
	RunE: runPrices,
}

func init() {
	rootCmd.AddCommand(pricesCmd)

	pricesCmd.Flags().StringVar(&outputFormat, "output", "table",
		"Output format: table, json")
}

func runPrices(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if cfgFile == "" {
		cfgFile = "config/default.yaml"
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	history, err := awscloud.NewPriceHistoryClient(ctx, cfg.AWS.Region, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to initialize price history client: %w", err)
	}

	engine, err := pricing.NewEngine(pricing.EngineConfig{
		History:               history,
		InstanceTypes:         cfg.Pricing.InstanceTypes,
		AvailabilityZones:     cfg.Pricing.AvailabilityZones,
		Workers:               cfg.Pricing.Workers,
		EligibilityExpression: cfg.Pricing.EligibilityExpression,
		Logger:                slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to create price engine: %w", err)
	}

	engine.Refresh(ctx)

	records := make([]pricing.Record, 0)
	for _, record := range engine.Prices() {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].WeightedPrice < records[j].WeightedPrice
	})

	switch outputFormat {
	case "json":
		return outputJSON(records)
	default:
		return outputTable(records)
	}
}

func outputJSON(records []pricing.Record) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}

func outputTable(records []pricing.Record) error {
	fmt.Printf("%-15s %-15s %-12s\n", "TYPE", "ZONE", "WEIGHTED")
	fmt.Println("-------------------------------------------")

	for _, record := range records {
		fmt.Printf("%-15s %-15s %-12.4f\n",
			record.InstanceType, record.AvailabilityZone, record.WeightedPrice)
	}

	return nil
}
