package main

import (
	"fmt"
	"io"
	"time"

	opreco "github.com/lartpc/opreco_go/pkg"
)

type WorkerData struct {
	Data   []byte
	Header opreco.EventHeaderStruct
}

type WorkerResult struct {
	Event opreco.EventType
	Reco  opreco.FlashFinderResult
	Truth *opreco.TruthMatchResult
	Error bool
}

// worker reconstructs events end to end. Each worker owns its pulse
// finder since the finder keeps per-waveform pedestal state.
func worker(id int, geometry opreco.Geometry, jobs <-chan WorkerData, results chan<- WorkerResult) {
	defer func() {
		if r := recover(); r != nil {
			message := fmt.Sprintf("Worker %d recovered from panic: %v", id, r)
			logger.Error(message)
			results <- WorkerResult{Error: true}
		}
	}()

	finder, err := opreco.NewPulseFinder(configuration.HitFinder)
	if err != nil {
		logger.Error(err.Error())
		return
	}
	manager := opreco.NewPulseRecoManager(finder)

	for job := range jobs {
		if VerbosityLevel > 1 {
			message := fmt.Sprintf("Worker %d processing event %d", id, job.Header.EventId)
			logger.Info(message, "worker")
		}
		results <- processEvent(job, manager, geometry)
	}
}

func processEvent(job WorkerData, manager *opreco.PulseRecoManager, geometry opreco.Geometry) WorkerResult {
	event, err := opreco.DecodeEvent(job.Header, job.Data)
	if err != nil {
		logger.Error(err.Error())
		return WorkerResult{Event: event, Error: true}
	}

	reco, err := opreco.RunFlashFinder(event.Channels, event.BeamGates, event.TriggerFrame, manager, geometry)
	if err != nil {
		logger.Error(err.Error())
		return WorkerResult{Event: event, Error: true}
	}

	result := WorkerResult{Event: event, Reco: reco}
	if event.Truth != nil {
		backTracker := opreco.NewEventBackTracker(event.Truth.Particles)
		matcher := opreco.NewMCTruthT0Matcher(backTracker)
		truth, err := matcher.Process(event.Truth)
		if err != nil {
			logger.Error(err.Error())
			return WorkerResult{Event: event, Reco: reco, Error: true}
		}
		result.Truth = &truth
	}
	return result
}

func sendEventsToWorkers(fileReader *FileReader, jobs chan<- WorkerData) {
	for {
		header, eventData, err := fileReader.getNextEvent()
		if err != nil {
			if err != io.EOF {
				message := fmt.Errorf("error reading event: %w", err)
				logger.Error(message.Error())
			}
			break
		}
		jobs <- WorkerData{Data: eventData, Header: header}
	}
	close(jobs)
}

func processWorkerResults(results chan WorkerResult, writer *opreco.Writer, evtsToRead int) {
	if evtsToRead <= 0 {
		return
	}
	evtsProcessed := 0
	var totalTime int64 = 0
	for result := range results {
		start := time.Now()
		if configuration.WriteData && !(result.Error && configuration.Discard) {
			writer.WriteEvent(&result.Event, &result.Reco, result.Truth)
		}

		evtsProcessed++
		if VerbosityLevel > 0 {
			message := fmt.Sprintf("Processed event %d with ID %d", evtsProcessed, result.Event.EventID)
			logger.Info(message, "writer")
		}
		if evtsProcessed >= evtsToRead {
			break
		}

		duration := time.Since(start)
		totalTime += duration.Milliseconds()
	}
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Total time writing: %d ms", totalTime)
		logger.Info(message, "writer")
	}
}
