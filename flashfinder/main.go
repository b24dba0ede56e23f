package main

import (
	"flag"
	"fmt"
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
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		printConfiguration(configuration, logger)
	}

	file, err := os.Open(configuration.FileIn)
	if err != nil {
		message := fmt.Errorf("Error opening file: %w", err)
		logger.Error(message.Error())
		return
	}
	defer file.Close()

	evtCount, runNumber := countEvents(file)
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Number of events: %d", evtCount)
		logger.Info(message, "main")
	}

	if configuration.NoDB {
		geometry, err := opreco.LoadGeometryFile(configuration.GeometryFile)
		if err != nil {
			logger.Error(err.Error())
			return
		}
		opreco.SetDetector(geometry)
	} else {
		dbConn, err := opreco.ConnectToDatabase(configuration.User, configuration.Passwd,
			configuration.Host, configuration.DBName)
		if err != nil {
			message := fmt.Errorf("Error connecting to database: %w", err)
			logger.Error(message.Error())
			return
		}
		defer dbConn.Close()
		if err := opreco.LoadDatabase(dbConn, runNumber); err != nil {
			return
		}
		// SPE areas may come from the database
		configuration = opreco.GetConfiguration()
	}

	writer := opreco.NewWriter(configuration.FileOut)
	defer writer.Close()

	fileReader := NewFileReader(file)

	jobs := make(chan WorkerData, configuration.NumWorkers)
	results := make(chan WorkerResult, 1000)

	for w := 1; w <= configuration.NumWorkers; w++ {
		go worker(w, opreco.Detector(), jobs, results)
	}

	go sendEventsToWorkers(fileReader, jobs)

	evtsToRead := numberOfEventsToProcess(evtCount, configuration.Skip, configuration.MaxEvents)
	processWorkerResults(results, writer, evtsToRead)
}

func numberOfEventsToProcess(evtCount int, skip int, maxEvents int) int {
	evtsToRead := evtCount - skip
	if maxEvents < evtCount {
		evtsToRead = maxEvents - skip
	}
	if evtsToRead < 0 {
		evtsToRead = 0
	}
	return evtsToRead
}
