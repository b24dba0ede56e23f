package opreco

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// FlashFinderResult is the per-event output of the flash finder: all hits,
// all flashes, and the flash-to-hit association table. Flashes are ordered
// by construction (PE-descending in bin-seed order), never by time;
// downstream association indices depend on this order.
type FlashFinderResult struct {
	Hits      []OpHit
	Flashes   []OpFlash
	FlashHits AssnSet
}

// FlashContext carries the trigger framing needed to build a flash.
type FlashContext struct {
	Frame        uint16
	TriggerFrame uint16
	Gate         BeamGate
	HasGate      bool
	TriggerTime  float64
}

// triggerGate selects the first beam gate whose start falls inside the
// trigger frame's time span.
func triggerGate(gates []BeamGate, triggerFrame uint16) (BeamGate, bool) {
	frameLength := float64(configuration.FrameSize) * configuration.TickPeriod
	frameStart := float64(triggerFrame) * frameLength
	for _, gate := range gates {
		if gate.Start >= frameStart && gate.Start < frameStart+frameLength {
			return gate, true
		}
	}
	return BeamGate{}, false
}

// GetTriggerTime resolves the absolute trigger time from the beam gates and
// the optical trigger frame. With no qualifying gate the frame start is used.
func GetTriggerTime(gates []BeamGate, triggerFrame uint16) (uint16, float64) {
	gate, ok := triggerGate(gates, triggerFrame)
	if !ok {
		frameLength := float64(configuration.FrameSize) * configuration.TickPeriod
		return triggerFrame, float64(triggerFrame) * frameLength
	}
	return triggerFrame, gate.Start
}

// RunFlashFinder reconstructs optical hits and flashes for one event.
// Channels are processed frame by frame in ascending frame order. A corrupt
// frame keeps its hits but emits no flashes; other frames continue.
func RunFlashFinder(channels []FIFOChannel, gates []BeamGate, triggerFrame uint16,
	manager *PulseRecoManager, geom Geometry) (FlashFinderResult, error) {
	var result FlashFinderResult
	if geom == nil {
		return result, fmt.Errorf("no geometry service")
	}
	if configuration.TickPeriod <= 0 || configuration.BinWidth <= 0 {
		return result, fmt.Errorf("bad timing configuration: tick period %g, bin width %g",
			configuration.TickPeriod, configuration.BinWidth)
	}

	_, triggerTime := GetTriggerTime(gates, triggerFrame)
	gate, hasGate := triggerGate(gates, triggerFrame)

	perFrame := make(map[uint16][]FIFOChannel)
	for _, record := range channels {
		perFrame[record.Frame] = append(perFrame[record.Frame], record)
	}
	frames := maps.Keys(perFrame)
	slices.Sort(frames)

	for _, frame := range frames {
		processor := newFrameProcessor(FlashContext{
			Frame:        frame,
			TriggerFrame: triggerFrame,
			Gate:         gate,
			HasGate:      hasGate,
			TriggerTime:  triggerTime,
		}, manager, geom)
		err := processor.process(perFrame[frame])

		offset := len(result.Hits)
		result.Hits = append(result.Hits, processor.hits...)
		if err != nil {
			logger.Warn(err.Error(), "flash")
			continue
		}
		for fi, cluster := range processor.flashHits {
			flashIndex := len(result.Flashes) + fi
			for _, ih := range cluster {
				result.FlashHits.Add(flashIndex, offset+ih)
			}
		}
		result.Flashes = append(result.Flashes, processor.flashes...)
	}
	return result, nil
}

type frameState int

const (
	frameIdle frameState = iota
	frameHitting
	frameBinning
	frameClustering
	frameRefining
	frameConstructing
	frameMerging
	frameDone
)

// frameProcessor holds the per-frame buckets. Everything here is scoped to
// one frame and released when the frame completes.
type frameProcessor struct {
	ctx     FlashContext
	manager *PulseRecoManager
	geom    Geometry
	state   frameState

	hits       []OpHit
	hitsPerBin map[int][]int
	binSumPE   map[int]float64
	candidates [][]int
	refined    [][]int
	flashes    []OpFlash
	flashHits  [][]int
}

func newFrameProcessor(ctx FlashContext, manager *PulseRecoManager, geom Geometry) *frameProcessor {
	return &frameProcessor{
		ctx:        ctx,
		manager:    manager,
		geom:       geom,
		state:      frameIdle,
		hitsPerBin: make(map[int][]int),
		binSumPE:   make(map[int]float64),
	}
}

func (p *frameProcessor) process(channels []FIFOChannel) error {
	for p.state != frameDone {
		var err error
		switch p.state {
		case frameIdle:
			p.state = frameHitting
		case frameHitting:
			p.constructHits(channels)
			p.state = frameBinning
		case frameBinning:
			err = p.binHits()
			p.state = frameClustering
		case frameClustering:
			p.assignHitsToFlash()
			p.state = frameRefining
		case frameRefining:
			p.refineHitsToFlash()
			p.state = frameConstructing
		case frameConstructing:
			p.constructFlashes()
			p.state = frameMerging
		case frameMerging:
			p.removeLateLight()
			p.state = frameDone
		}
		if err != nil {
			return &ErrFrameCorrupt{Frame: p.ctx.Frame, Err: err}
		}
	}
	return nil
}

// constructHits runs the pulse finder over every channel record of the
// frame. Waveforms failing pedestal estimation are skipped with a warning.
func (p *frameProcessor) constructHits(channels []FIFOChannel) {
	for _, record := range channels {
		if !p.geom.OpDetEnabled(record.ChannelID) {
			continue
		}
		pulses, err := p.manager.Reconstruct(record.Samples)
		if err != nil {
			message := fmt.Sprintf("skipping channel %d frame %d: %v", record.ChannelID, record.Frame, err)
			logger.Warn(message, "flash")
			continue
		}
		for _, pulse := range pulses {
			p.hits = append(p.hits, p.makeHit(record, pulse))
		}
	}
}

func (p *frameProcessor) makeHit(record FIFOChannel, pulse Pulse) OpHit {
	tick := configuration.TickPeriod
	sampleAbs := float64(uint64(p.ctx.Frame))*float64(configuration.FrameSize) +
		float64(record.FirstSample) + float64(pulse.TPeak)
	peakTimeAbs := sampleAbs * tick

	pe := pulse.Area
	if int(record.ChannelID) < len(configuration.SpeArea) {
		if spe := configuration.SpeArea[record.ChannelID]; spe > 0 {
			pe = pulse.Area / spe
		}
	}

	return OpHit{
		OpChannel:   record.ChannelID,
		Frame:       p.ctx.Frame,
		PeakTime:    peakTimeAbs - p.ctx.TriggerTime,
		PeakTimeAbs: peakTimeAbs,
		Width:       float64(pulse.TEnd-pulse.TStart) * tick,
		Area:        pulse.Area,
		Amplitude:   pulse.Peak,
		PE:          pe,
	}
}

func timeBin(t float64, width float64) int {
	return int(math.Floor(t / width))
}

// binHits fills the two parallel buckets: hit indices per bin, widened by
// the coincidence window so hits straddling a bin edge are discoverable
// from one bin, and accumulated PE, counted only in the bin holding the
// peak.
func (p *frameProcessor) binHits() error {
	binWidth := configuration.BinWidth
	eps := configuration.HitSeparation
	for i, hit := range p.hits {
		if math.IsNaN(hit.PE) || math.IsInf(hit.PE, 0) {
			return fmt.Errorf("hit %d on channel %d has PE %v", i, hit.OpChannel, hit.PE)
		}
		lo := timeBin(hit.PeakTime-eps, binWidth)
		hi := timeBin(hit.PeakTime+eps, binWidth)
		for b := lo; b <= hi; b++ {
			p.hitsPerBin[b] = append(p.hitsPerBin[b], i)
		}
		p.binSumPE[timeBin(hit.PeakTime, binWidth)] += hit.PE
	}
	return nil
}

// bestBin returns the unconsumed bin with the greatest PE; ties go to the
// earlier bin.
func bestBin(sums map[int]float64) (int, float64, bool) {
	bins := maps.Keys(sums)
	slices.Sort(bins)
	var best int
	var bestPE float64
	found := false
	for _, b := range bins {
		if !found || sums[b] > bestPE {
			best = b
			bestPE = sums[b]
			found = true
		}
	}
	return best, bestPE, found
}

// assignHitsToFlash clusters hits into candidate flashes, greedily seeded
// by the highest-PE bin.
func (p *frameProcessor) assignHitsToFlash() {
	binWidth := configuration.BinWidth
	window := configuration.FlashTimeWindow
	remaining := maps.Clone(p.binSumPE)
	consumed := make([]bool, len(p.hits))
	reach := int(math.Ceil(window/binWidth)) + 1

	for {
		seed, pe, ok := bestBin(remaining)
		if !ok || pe <= configuration.MinBinPE {
			break
		}
		center := (float64(seed) + 0.5) * binWidth
		cluster := make([]int, 0)
		for b := seed - reach; b <= seed+reach; b++ {
			for _, ih := range p.hitsPerBin[b] {
				if consumed[ih] {
					continue
				}
				if math.Abs(p.hits[ih].PeakTime-center) > window {
					continue
				}
				consumed[ih] = true
				remaining[timeBin(p.hits[ih].PeakTime, binWidth)] -= p.hits[ih].PE
				cluster = append(cluster, ih)
			}
		}
		if len(cluster) == 0 {
			// Float residue in a bin whose hits are all consumed or out of
			// reach; retire the bin so the loop terminates.
			delete(remaining, seed)
			continue
		}
		p.candidates = append(p.candidates, cluster)
	}
}

// refineHitsToFlash prunes every candidate against its highest-PE hit and
// drops candidates falling below the flash PE floor.
func (p *frameProcessor) refineHitsToFlash() {
	window := configuration.HitRefineWindow
	for _, cluster := range p.candidates {
		lead := cluster[0]
		for _, ih := range cluster {
			if p.hits[ih].PE > p.hits[lead].PE {
				lead = ih
			}
		}
		refined := make([]int, 0, len(cluster))
		var totalPE float64
		for _, ih := range cluster {
			if math.Abs(p.hits[ih].PeakTime-p.hits[lead].PeakTime) > window {
				continue
			}
			refined = append(refined, ih)
			totalPE += p.hits[ih].PE
		}
		if totalPE < configuration.FlashMinPE {
			continue
		}
		p.refined = append(p.refined, refined)
	}
}

func (p *frameProcessor) constructFlashes() {
	for _, cluster := range p.refined {
		flash, ok := constructFlash(cluster, p.hits, p.geom, p.ctx)
		if !ok {
			message := fmt.Sprintf("frame %d: dropping flash with %d hits, no opdet geometry for any contributor",
				p.ctx.Frame, len(cluster))
			logger.Warn(message, "flash")
			continue
		}
		p.flashes = append(p.flashes, flash)
		p.flashHits = append(p.flashHits, cluster)
	}
}

// constructFlash builds the flash record for one refined hit cluster.
// Channels without geometry are excluded from the centroid but keep their
// PE; ok is false when no contributor has a position.
func constructFlash(cluster []int, hits []OpHit, geom Geometry, ctx FlashContext) (OpFlash, bool) {
	if len(cluster) == 0 {
		return OpFlash{}, false
	}

	maxChannel := geom.NOpDets()
	for _, ih := range cluster {
		if int(hits[ih].OpChannel)+1 > maxChannel {
			maxChannel = int(hits[ih].OpChannel) + 1
		}
	}
	pePerOpDet := make([]float64, maxChannel)

	var sumPE, sumT, sumT2 float64
	for _, ih := range cluster {
		hit := hits[ih]
		sumPE += hit.PE
		sumT += hit.PE * hit.PeakTime
		sumT2 += hit.PE * hit.PeakTime * hit.PeakTime
		pePerOpDet[hit.OpChannel] += hit.PE
	}
	if sumPE <= 0 {
		return OpFlash{}, false
	}
	meanT := sumT / sumPE
	varT := sumT2/sumPE - meanT*meanT
	if varT < 0 {
		varT = 0
	}

	var wSum, ySum, y2Sum, zSum, z2Sum float64
	fibers := make([]float64, 0)
	for ch, pe := range pePerOpDet {
		if pe == 0 {
			continue
		}
		point, err := geom.OpDetPosition(uint16(ch))
		if err != nil {
			message := fmt.Sprintf("channel %d excluded from flash centroid: %v", ch, err)
			logger.Warn(message, "flash")
			continue
		}
		wSum += pe
		ySum += pe * point.Y
		y2Sum += pe * point.Y * point.Y
		zSum += pe * point.Z
		z2Sum += pe * point.Z * point.Z
		fibers = append(fibers, point.Z)
	}
	if wSum == 0 {
		return OpFlash{}, false
	}
	yMean := ySum / wSum
	yVar := y2Sum/wSum - yMean*yMean
	if yVar < 0 {
		yVar = 0
	}
	zMean := zSum / wSum
	zVar := z2Sum/wSum - zMean*zMean
	if zVar < 0 {
		zVar = 0
	}

	absTime := meanT + ctx.TriggerTime
	flash := OpFlash{
		Time:           meanT,
		TimeWidth:      math.Sqrt(varT),
		AbsTime:        absTime,
		Frame:          ctx.Frame,
		PEPerOpDet:     pePerOpDet,
		YCenter:        yMean,
		YWidth:         math.Sqrt(yVar),
		ZCenter:        zMean,
		ZWidth:         math.Sqrt(zVar),
		FiberPositions: fibers,
		InBeamFrame:    ctx.HasGate && ctx.Frame == ctx.TriggerFrame,
	}
	if ctx.HasGate {
		flash.OnBeamTime = absTime >= ctx.Gate.Start && absTime <= ctx.Gate.Start+ctx.Gate.Width
	}
	return flash, true
}

func (p *frameProcessor) removeLateLight() {
	p.flashes, p.flashHits = RemoveLateLight(p.flashes, p.flashHits, p.hits, p.geom, p.ctx)
}

// RemoveLateLight merges a later flash into an earlier one when the gap is
// inside the late-light window and its PE is below the configured fraction
// of the earlier flash's. This corrects over-segmentation from argon's slow
// scintillation component. The operation is idempotent.
func RemoveLateLight(flashes []OpFlash, flashHits [][]int, hits []OpHit,
	geom Geometry, ctx FlashContext) ([]OpFlash, [][]int) {
	window := configuration.LateLightWindow
	fraction := configuration.LateLightFraction
	if window <= 0 || len(flashes) < 2 {
		return flashes, flashHits
	}

	order := make([]int, len(flashes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return flashes[order[i]].Time < flashes[order[j]].Time
	})

	// currentPE tracks the absorber's PE including everything merged so
	// far, so a second application reproduces the same decisions.
	currentPE := make([]float64, len(flashes))
	for i := range flashes {
		currentPE[i] = flashes[i].TotalPE()
	}

	// Every later flash is tested against every earlier surviving flash;
	// when several qualify, the brightest one absorbs it.
	dropped := make([]bool, len(flashes))
	merged := make([]bool, len(flashes))
	for oi, fi := range order {
		best := -1
		for _, aj := range order[:oi] {
			if dropped[aj] {
				continue
			}
			gap := flashes[fi].Time - flashes[aj].Time
			if gap <= 0 || gap >= window {
				continue
			}
			if flashes[fi].TotalPE() >= fraction*currentPE[aj] {
				continue
			}
			if best < 0 || currentPE[aj] > currentPE[best] {
				best = aj
			}
		}
		if best < 0 {
			continue
		}
		flashHits[best] = append(flashHits[best], flashHits[fi]...)
		currentPE[best] += flashes[fi].TotalPE()
		merged[best] = true
		dropped[fi] = true
	}

	outFlashes := make([]OpFlash, 0, len(flashes))
	outHits := make([][]int, 0, len(flashes))
	for i := range flashes {
		if dropped[i] {
			continue
		}
		if merged[i] {
			if flash, ok := constructFlash(flashHits[i], hits, geom, ctx); ok {
				flashes[i] = flash
			}
		}
		outFlashes = append(outFlashes, flashes[i])
		outHits = append(outHits, flashHits[i])
	}
	return outFlashes, outHits
}
