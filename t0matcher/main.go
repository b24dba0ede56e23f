package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	opreco "github.com/lartpc/opreco_go/pkg"
)

var configuration opreco.Configuration

var (
	logger         Logger
	VerbosityLevel int
)

func init() {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handlerStdOut := NewHandler(os.Stdout, opts)
	handlerStdErr := slog.NewJSONHandler(os.Stderr, opts)
	logger = Logger{
		InfoLog:  slog.New(handlerStdOut),
		ErrorLog: slog.New(handlerStdErr),
	}
}

// t0matcher runs truth matching alone over an event file, without the
// optical reconstruction chain. Useful for validating simulation samples.
func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	flag.Parse()

	var err error
	configuration, err = LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		return
	}
	opreco.SetConfiguration(configuration)
	opreco.SetLogger(logger)

	VerbosityLevel = configuration.Verbosity
	if VerbosityLevel > 0 {
		printConfiguration(configuration, logger)
	}

	file, err := os.Open(configuration.FileIn)
	if err != nil {
		message := fmt.Errorf("Error opening file: %w", err)
		logger.Error(message.Error())
		return
	}
	defer file.Close()

	writer := opreco.NewWriter(configuration.FileOut)
	defer writer.Close()

	evtCount := -1
	for {
		header, eventData, err := opreco.ReadEventFromFile(file)
		if err != nil {
			if err != io.EOF {
				message := fmt.Errorf("error reading event: %w", err)
				logger.Error(message.Error())
			}
			break
		}
		if !opreco.ValidEvent(header) {
			continue
		}
		evtCount++
		if evtCount >= configuration.MaxEvents {
			break
		}
		if evtCount < configuration.Skip {
			continue
		}

		event, err := opreco.DecodeEvent(header, eventData)
		if err != nil {
			logger.Error(err.Error())
			continue
		}
		if event.Truth == nil {
			if VerbosityLevel > 0 {
				message := fmt.Sprintf("Event %d has no truth block, skipping", event.EventID)
				logger.Info(message, "main")
			}
			continue
		}

		backTracker := opreco.NewEventBackTracker(event.Truth.Particles)
		matcher := opreco.NewMCTruthT0Matcher(backTracker)
		truth, err := matcher.Process(event.Truth)
		if err != nil {
			logger.Error(err.Error())
			continue
		}

		if VerbosityLevel > 0 {
			message := fmt.Sprintf("Event %d: %d T0 tags", event.EventID, len(truth.T0s))
			logger.Info(message, "main")
		}
		if configuration.WriteData {
			writer.WriteEvent(&event, &opreco.FlashFinderResult{}, &truth)
		}
	}
}
