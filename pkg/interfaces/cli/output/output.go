package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vsinha/lotalloc/pkg/application/dto"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
}

// Generate writes the report in the configured format
func Generate(report *dto.AllocationReport, config Config, w io.Writer) error {
	switch config.Format {
	case "text":
		return generateTextOutput(report, config, w)
	case "json":
		return generateJSONOutput(report, config, w)
	case "csv":
		return generateCSVOutput(report, config, w)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput creates human-readable text output
func generateTextOutput(report *dto.AllocationReport, config Config, w io.Writer) error {
	fmt.Fprintf(w, "📊 Lot Allocation Summary (%s)\n", report.Mode)
	fmt.Fprintf(w, "==============================\n\n")

	fmt.Fprintf(w, "Order Lines: %d\n", len(report.Lines))
	fmt.Fprintf(w, "Failed: %d\n", report.FailedLines())
	fmt.Fprintf(w, "Commit failures: %d\n", report.CommitFailures)
	fmt.Fprintf(w, "Events: %d\n", report.EventCount)
	fmt.Fprintf(w, "Elapsed: %v\n\n", report.Elapsed)

	if len(report.Lines) > 0 {
		fmt.Fprintf(w, "📋 Order Lines:\n")
		fmt.Fprintf(w, "%-6s %-8s %-10s %-10s %-10s %-10s %-10s %-20s %-16s\n",
			"Line", "Product", "Required", "Draft", "Hard", "Soft", "Shortfall", "Status", "Outcome")
		fmt.Fprintf(w, "%-6s %-8s %-10s %-10s %-10s %-10s %-10s %-20s %-16s\n",
			"------", "--------", "----------", "----------", "----------", "----------", "----------", "--------------------", "----------------")

		for _, line := range report.Lines {
			fmt.Fprintf(w, "%-6d %-8d %-10s %-10s %-10s %-10s %-10s %-20s %-16s\n",
				line.OrderLineID,
				line.ProductID,
				line.Totals.Required,
				line.Totals.TotalDraft,
				line.Totals.HardAllocated,
				line.Totals.SoftAllocated,
				line.Shortfall,
				statusOf(line),
				outcomeOf(line))
		}
		fmt.Fprintln(w)
	}

	var notes []string
	for _, line := range report.Lines {
		for _, notice := range line.Notices {
			notes = append(notes, fmt.Sprintf("line %d: %s", line.OrderLineID, notice))
		}
		if line.Error != "" {
			notes = append(notes, fmt.Sprintf("line %d: %s", line.OrderLineID, line.Error))
		}
	}
	if len(notes) > 0 {
		fmt.Fprintf(w, "⚠️  Notices:\n")
		for _, note := range notes {
			fmt.Fprintf(w, "  %s\n", note)
		}
		fmt.Fprintln(w)
	}

	if config.Verbose {
		for _, line := range report.Lines {
			if len(line.Draft) == 0 {
				continue
			}
			fmt.Fprintf(w, "📦 Line %d draft:\n", line.OrderLineID)
			for _, entry := range line.Draft {
				fmt.Fprintf(w, "  lot %-8d %s %s\n", entry.LotID, entry.Quantity, line.Unit)
			}
		}
	}

	return nil
}

// generateJSONOutput creates JSON output
func generateJSONOutput(report *dto.AllocationReport, config Config, w io.Writer) error {
	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		fmt.Fprintln(w, string(jsonData))
		return nil
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(config.OutputDir, "allocation_report.json")
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(w, "💾 JSON results saved to: %s\n", filename)
	}
	return nil
}

// generateCSVOutput writes one row per order line
func generateCSVOutput(report *dto.AllocationReport, config Config, w io.Writer) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for CSV format")
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(config.OutputDir, "allocation_report.csv")
	if err := writeLinesCSV(report.Lines, filename); err != nil {
		return fmt.Errorf("failed to write allocation report CSV: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(w, "💾 CSV results saved to: %s\n", filename)
	}
	return nil
}

func writeLinesCSV(lines []dto.LineReport, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{
		"order_line_id", "product_id", "required", "draft", "hard", "soft",
		"remaining", "shortfall", "status", "outcome", "allocation_ids", "failed_ids",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, line := range lines {
		record := []string{
			strconv.FormatInt(int64(line.OrderLineID), 10),
			strconv.FormatInt(int64(line.ProductID), 10),
			line.Totals.Required.String(),
			line.Totals.TotalDraft.String(),
			line.Totals.HardAllocated.String(),
			line.Totals.SoftAllocated.String(),
			line.Totals.Remaining.String(),
			line.Shortfall.String(),
			line.Status,
			outcomeOf(line),
			joinIDs(line.AllocationIDs),
			joinIDs(line.FailedIDs),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func outcomeOf(line dto.LineReport) string {
	switch {
	case line.Error != "" && line.Outcome == "":
		return "error"
	case line.Outcome == "":
		return "-"
	default:
		return line.Outcome
	}
}

func joinIDs[T ~int64](ids []T) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(int64(id), 10)
	}
	return strings.Join(parts, ";")
}

// statusOf prefers the badge text and falls back to the status code
func statusOf(line dto.LineReport) string {
	if line.StatusLabel != "" {
		return line.StatusLabel
	}
	return line.Status
}
