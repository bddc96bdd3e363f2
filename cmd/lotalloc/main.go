package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vsinha/lotalloc/pkg/interfaces/cli/commands"
)

func main() {
	// Command line flags
	var (
		scenarioDir = flag.String(
			"scenario",
			"",
			"Path to scenario directory containing CSV files",
		)
		linesFile       = flag.String("lines", "", "Path to order lines CSV file")
		lotsFile        = flag.String("lots", "", "Path to stock lots CSV file")
		allocationsFile = flag.String("allocations", "", "Path to persisted allocations CSV file")
		envFile         = flag.String("env", "", "Path to a .env file")
		mode            = flag.String("mode", commands.ModePreview, "Mode: preview, save, confirm, cancel")
		outputDir       = flag.String("output", "", "Output directory for results (optional)")
		format          = flag.String("format", "text", "Output format: text, json, csv")
		verbose         = flag.Bool("verbose", false, "Enable verbose output")
		help            = flag.Bool("help", false, "Show help message")
	)

	flag.Parse()

	config := commands.Config{
		ScenarioDir:     *scenarioDir,
		LinesFile:       *linesFile,
		LotsFile:        *lotsFile,
		AllocationsFile: *allocationsFile,
		EnvFile:         *envFile,
		Mode:            *mode,
		OutputDir:       *outputDir,
		Format:          *format,
		Verbose:         *verbose,
		Help:            *help,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := commands.NewAllocateCommand(config)
	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
