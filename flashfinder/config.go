package main

import (
	"encoding/json"
	"fmt"
	"os"

	opreco "github.com/lartpc/opreco_go/pkg"
)

func LoadConfiguration(filename string) (opreco.Configuration, error) {
	var config opreco.Configuration

	// Set default values
	config.MaxEvents = 1000000000
	config.Verbosity = 0
	config.Skip = 0
	config.NumWorkers = 1
	config.WriteData = true
	config.Discard = true
	config.NoDB = false
	config.Host = "lartpc-db.fnal.gov"
	config.User = "opreader"
	config.Passwd = "readonly"
	config.DBName = "LARTPC"
	config.HitFinder = "threshold"
	config.ADCThreshold = 3
	config.NSigma = 5
	config.MinWidth = 2
	config.PedestalWindow = 20
	config.PedestalMaxSigma = 4
	config.PulsePolarity = 1
	config.TickPeriod = 15.625e-9
	config.FrameSize = 102400
	config.BinWidth = 1e-6
	config.HitSeparation = 1e-6
	config.FlashTimeWindow = 1e-6
	config.HitRefineWindow = 5e-6
	config.FlashMinPE = 2
	config.MinBinPE = 2
	config.LateLightWindow = 8e-6
	config.LateLightFraction = 0.1
	config.TriggerType = 2
	config.UseBlosc = false
	config.CompressionLevel = 4

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, nil
}

func printConfiguration(config opreco.Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Geometry file: %s", config.GeometryFile), "config")
	logger.Info(fmt.Sprintf("Hit finder: %s", config.HitFinder), "config")
	logger.Info(fmt.Sprintf("ADC threshold: %f", config.ADCThreshold), "config")
	logger.Info(fmt.Sprintf("N sigma: %f", config.NSigma), "config")
	logger.Info(fmt.Sprintf("Min width: %d", config.MinWidth), "config")
	logger.Info(fmt.Sprintf("Pedestal window: %d", config.PedestalWindow), "config")
	logger.Info(fmt.Sprintf("Pulse polarity: %d", config.PulsePolarity), "config")
	logger.Info(fmt.Sprintf("Tick period: %g", config.TickPeriod), "config")
	logger.Info(fmt.Sprintf("Frame size: %d", config.FrameSize), "config")
	logger.Info(fmt.Sprintf("Bin width: %g", config.BinWidth), "config")
	logger.Info(fmt.Sprintf("Flash time window: %g", config.FlashTimeWindow), "config")
	logger.Info(fmt.Sprintf("Hit refine window: %g", config.HitRefineWindow), "config")
	logger.Info(fmt.Sprintf("Flash min PE: %f", config.FlashMinPE), "config")
	logger.Info(fmt.Sprintf("Late light window: %g", config.LateLightWindow), "config")
	logger.Info(fmt.Sprintf("Late light fraction: %f", config.LateLightFraction), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Discard: %t", config.Discard), "config")
	logger.Info(fmt.Sprintf("Write data: %t", config.WriteData), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Use Blosc: %t", config.UseBlosc), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
}
