package opreco

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// T0 is an interaction-time tag derived from MC truth. Index is the
// position of the record in the output collection.
type T0 struct {
	Time        float64
	TriggerType int
	TrackID     int32
	Index       int
}

// TruthMatchResult collects the T0 tags and every association table the
// truth matcher produces for one event.
type TruthMatchResult struct {
	T0s []T0

	TrackT0      AssnSet
	ShowerT0     AssnSet
	PFParticleT0 AssnSet

	TrackParticle      ObjectParticleAssns
	ShowerParticle     ObjectParticleAssns
	PFParticleParticle ObjectParticleAssns

	HitParticle HitParticleAssns
}

// MCTruthT0Matcher attributes reconstructed objects to the MC particles
// that deposited their charge and tags them with the particle's true time.
type MCTruthT0Matcher struct {
	bt BackTracker
}

func NewMCTruthT0Matcher(bt BackTracker) *MCTruthT0Matcher {
	return &MCTruthT0Matcher{bt: bt}
}

// Process matches every hit, track, shower and PFParticle in the truth
// block. Objects with no simulated charge are skipped with a warning and
// appear in no output table.
func (m *MCTruthT0Matcher) Process(truth *TruthBlock) (TruthMatchResult, error) {
	var result TruthMatchResult
	if truth == nil {
		return result, fmt.Errorf("no truth block")
	}

	particleIndex := make(map[int32]int, len(truth.Particles))
	for i, particle := range truth.Particles {
		particleIndex[particle.TrackID] = i
	}

	m.matchHits(truth, particleIndex, &result)
	m.matchObjects(truth.Tracks, "track", truth, particleIndex,
		&result.TrackT0, &result.TrackParticle, &result.T0s)
	m.matchObjects(truth.Showers, "shower", truth, particleIndex,
		&result.ShowerT0, &result.ShowerParticle, &result.T0s)
	m.matchPFParticles(truth, particleIndex, &result)
	return result, nil
}

// matchHits emits one association per (hit, contributing particle) with
// the energy and electron-count fractions of that particle's contribution.
func (m *MCTruthT0Matcher) matchHits(truth *TruthBlock, particleIndex map[int32]int, result *TruthMatchResult) {
	for hitIdx := range truth.Hits {
		ides := m.bt.HitToTrackIDEs(truth.Hits[hitIdx])
		if len(ides) == 0 {
			logger.Warn((&ErrZeroTotalEnergy{HitIndex: hitIdx}).Error(), "truth")
			continue
		}

		energyPerID := make(map[int32]float64)
		electronsPerID := make(map[int32]float64)
		var totalEnergy, totalElectrons float64
		for _, ide := range ides {
			energyPerID[ide.TrackID] += ide.Energy
			electronsPerID[ide.TrackID] += ide.NumElectrons
			totalEnergy += ide.Energy
			totalElectrons += ide.NumElectrons
		}

		ids := maps.Keys(energyPerID)
		slices.Sort(ids)
		maxEnergyID := ids[0]
		maxElectronsID := ids[0]
		for _, id := range ids {
			if energyPerID[id] > energyPerID[maxEnergyID] {
				maxEnergyID = id
			}
			if electronsPerID[id] > electronsPerID[maxElectronsID] {
				maxElectronsID = id
			}
		}

		for _, id := range ids {
			pIdx, known := particleIndex[id]
			if !known {
				message := fmt.Sprintf("hit %d: %v", hitIdx, &ErrNoTrueParticle{TrackID: id})
				logger.Warn(message, "truth")
				continue
			}
			result.HitParticle.Add(hitIdx, pIdx, BackTrackerHitMatchingData{
				IDEFraction:  energyPerID[id] / totalEnergy,
				IsMaxIDE:     id == maxEnergyID,
				IDENFraction: electronsPerID[id] / totalElectrons,
				IsMaxIDEN:    id == maxElectronsID,
			})
		}
	}
}

// dominantParticle sums deposited energy per track id over the object's
// hits and returns the winner. Ties go to the smallest track id.
func (m *MCTruthT0Matcher) dominantParticle(hitIndices []uint32, truth *TruthBlock) (int32, float64, bool) {
	energyPerID := make(map[int32]float64)
	var totalEnergy float64
	for _, hi := range hitIndices {
		if int(hi) >= len(truth.Hits) {
			continue
		}
		for _, ide := range m.bt.HitToTrackIDEs(truth.Hits[hi]) {
			energyPerID[ide.TrackID] += ide.Energy
			totalEnergy += ide.Energy
		}
	}
	if totalEnergy <= 0 {
		return 0, 0, false
	}

	ids := maps.Keys(energyPerID)
	slices.Sort(ids)
	best := ids[0]
	for _, id := range ids {
		if energyPerID[id] > energyPerID[best] {
			best = id
		}
	}
	return best, energyPerID[best] / totalEnergy, true
}

func (m *MCTruthT0Matcher) matchObjects(objects []RecoObject, kind string, truth *TruthBlock,
	particleIndex map[int32]int, t0Assns *AssnSet, particleAssns *ObjectParticleAssns, t0s *[]T0) {
	for objIdx := range objects {
		trackID, cleanliness, ok := m.dominantParticle(objects[objIdx].Hits, truth)
		if !ok {
			message := fmt.Sprintf("%s %d has no deposited energy, skipping", kind, objects[objIdx].ID)
			logger.Warn(message, "truth")
			continue
		}
		m.emitMatch(objIdx, kind, objects[objIdx].ID, trackID, cleanliness,
			particleIndex, t0Assns, particleAssns, t0s)
	}
}

func (m *MCTruthT0Matcher) matchPFParticles(truth *TruthBlock, particleIndex map[int32]int, result *TruthMatchResult) {
	for pfpIdx := range truth.PFParticles {
		pfp := truth.PFParticles[pfpIdx]
		hitIndices := make([]uint32, 0)
		for _, ci := range pfp.Clusters {
			if int(ci) >= len(truth.Clusters) {
				continue
			}
			hitIndices = append(hitIndices, truth.Clusters[ci].Hits...)
		}
		trackID, cleanliness, ok := m.dominantParticle(hitIndices, truth)
		if !ok {
			message := fmt.Sprintf("pfparticle %d has no deposited energy, skipping", pfp.ID)
			logger.Warn(message, "truth")
			continue
		}
		m.emitMatch(pfpIdx, "pfparticle", pfp.ID, trackID, cleanliness, particleIndex,
			&result.PFParticleT0, &result.PFParticleParticle, &result.T0s)
	}
}

func (m *MCTruthT0Matcher) emitMatch(objIdx int, kind string, objID int32, trackID int32,
	cleanliness float64, particleIndex map[int32]int,
	t0Assns *AssnSet, particleAssns *ObjectParticleAssns, t0s *[]T0) {
	particle := m.bt.TrackIDToParticle(trackID)
	if particle == nil {
		message := fmt.Sprintf("%s %d: %v", kind, objID, &ErrNoTrueParticle{TrackID: trackID})
		logger.Warn(message, "truth")
		return
	}
	pIdx, known := particleIndex[trackID]
	if !known {
		message := fmt.Sprintf("%s %d: %v", kind, objID, &ErrNoTrueParticle{TrackID: trackID})
		logger.Warn(message, "truth")
		return
	}

	t0 := T0{
		Time:        particle.Time,
		TriggerType: configuration.TriggerType,
		TrackID:     trackID,
		Index:       len(*t0s),
	}
	*t0s = append(*t0s, t0)

	t0Assns.Add(objIdx, t0.Index)
	particleAssns.Add(objIdx, pIdx, BackTrackerMatchingData{Cleanliness: cleanliness})
}
