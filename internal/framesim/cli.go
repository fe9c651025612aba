package framesim

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/visage/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging logs to stdout and, when logFile is set, to that file too.
// The returned file is nil when no log file was requested.
func SetupLogging(logFile string, verbose bool) (*os.File, error) {
	var (
		out  io.Writer = os.Stdout
		file *os.File
	)
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		out, file = io.MultiWriter(os.Stdout, f), f
	}
	if err := logger.Init(logger.WithWriter(out)); err != nil {
		if file != nil {
			_ = file.Close()
		}
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return file, nil
}

// ShowHelp prints usage information for the frame simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Visage Frame Simulator
======================

Enrolls synthetic identities, replays noisy frames through the recognition
API, answers each result with ground-truth feedback and reports how accuracy
and the adaptive thresholds evolved.

Usage:
  go run ./cmd/frame-sim [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -scenario string   YAML scenario file (default: built-in four-identity scenario)
  -workers int       Concurrent enrollment requests (default 4)
  -timeout duration  HTTP request timeout (default 10s)
  -output string     Write the JSON report to this file
  -log string        Also write logs to this file
  -verbose           Log every frame
  -quiet             Hide the replay progress bar
  -help              Show this help message

Scenario file:
  seed: 7
  dimension: 128
  noise: 0.01
  frames_per_identity: 20
  identities:
    - {name: Alice, enrolled: true}
    - {name: Bob}
`)
}
