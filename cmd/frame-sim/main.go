package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/visage/internal/framesim"
)

// Default configuration constants.
const (
	defaultWorkers     = 4
	defaultTimeout     = 10 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		scenarioFile = flag.String("scenario", "", "YAML scenario file (default: built-in scenario)")
		workers      = flag.Int("workers", defaultWorkers, "Concurrent enrollment requests")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile   = flag.String("output", "", "Write the JSON report to this file")
		logFile      = flag.String("log", "", "Also write logs to this file")
		verbose      = flag.Bool("verbose", false, "Log every frame")
		quiet        = flag.Bool("quiet", false, "Hide the replay progress bar")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		framesim.ShowHelp()
		return
	}

	file, err := framesim.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if file != nil {
		defer file.Close()
	}

	scenario := framesim.DefaultScenario()
	if *scenarioFile != "" {
		if scenario, err = framesim.LoadScenario(*scenarioFile); err != nil {
			os.Stderr.WriteString("Invalid scenario: " + err.Error() + "\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &framesim.Config{
		BaseURL:    *baseURL,
		Scenario:   scenario,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}
	if !*quiet {
		cfg.Progress = os.Stderr
	}
	if _, err := framesim.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
