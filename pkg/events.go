package opreco

// FIFOChannel is one channel's digitized readout within a frame.
type FIFOChannel struct {
	ChannelID   uint16
	Frame       uint16
	FirstSample uint32
	Samples     []int16
}

// BeamGate is one beam-gate window, in seconds.
type BeamGate struct {
	Start float64
	Width float64
}

type EventType struct {
	RunNumber    uint32
	EventID      uint32
	TriggerFrame uint16
	Channels     []FIFOChannel
	BeamGates    []BeamGate
	Truth        *TruthBlock
	Error        bool
}

// TruthBlock carries the simulation products needed for truth matching:
// the MC particle list, the reconstructed ionization hits with their
// per-IDE contributions, and the reco objects built on those hits.
type TruthBlock struct {
	Particles   []MCParticle
	Hits        []RecoHit
	Tracks      []RecoObject
	Showers     []RecoObject
	Clusters    []RecoObject
	PFParticles []PFParticle
}

type MCParticle struct {
	TrackID int32
	Pdg     int32
	Time    float64
}

// TrackIDE is one ionization deposit contribution to a hit.
type TrackIDE struct {
	TrackID      int32
	Energy       float64
	NumElectrons float64
}

// RecoHit is a reconstructed ionization (TPC) hit. The IDE list is what a
// back-tracker would deliver for it.
type RecoHit struct {
	Channel   uint32
	PeakTime  float64
	Integral  float64
	TrackIDEs []TrackIDE
}

// RecoObject is a track, shower or cluster: indices into the event hit list.
type RecoObject struct {
	ID   int32
	Hits []uint32
}

// PFParticle gathers its hits through clusters.
type PFParticle struct {
	ID       int32
	Clusters []uint32
}

// BackTracker maps reconstructed hits back to the simulated tracks that
// produced them.
type BackTracker interface {
	HitToTrackIDEs(hit RecoHit) []TrackIDE
	TrackIDToParticle(id int32) *MCParticle
}

// EventBackTracker is a BackTracker over one event's truth block.
type EventBackTracker struct {
	particles []MCParticle
	index     map[int32]int
}

func NewEventBackTracker(particles []MCParticle) *EventBackTracker {
	index := make(map[int32]int, len(particles))
	for i, p := range particles {
		index[p.TrackID] = i
	}
	return &EventBackTracker{particles: particles, index: index}
}

func (b *EventBackTracker) HitToTrackIDEs(hit RecoHit) []TrackIDE {
	return hit.TrackIDEs
}

func (b *EventBackTracker) TrackIDToParticle(id int32) *MCParticle {
	i, ok := b.index[id]
	if !ok {
		return nil
	}
	return &b.particles[i]
}
