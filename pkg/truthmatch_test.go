package opreco

import (
	"math"
	"testing"
)

func truthTestConfig() Configuration {
	return Configuration{TriggerType: 2}
}

func sampleTruth() *TruthBlock {
	return &TruthBlock{
		Particles: []MCParticle{
			{TrackID: 1, Pdg: 13, Time: 1.5e-6},
			{TrackID: 2, Pdg: 11, Time: 2.0e-6},
		},
		Hits: []RecoHit{
			{Channel: 100, PeakTime: 3200, Integral: 150, TrackIDEs: []TrackIDE{
				{TrackID: 1, Energy: 0.7, NumElectrons: 700},
				{TrackID: 2, Energy: 0.3, NumElectrons: 300},
			}},
			{Channel: 101, PeakTime: 3210, Integral: 90, TrackIDEs: []TrackIDE{
				{TrackID: 2, Energy: 0.9, NumElectrons: 900},
			}},
		},
		Tracks: []RecoObject{
			{ID: 10, Hits: []uint32{0}},
			{ID: 11, Hits: []uint32{1}},
		},
	}
}

func newTestMatcher(truth *TruthBlock) *MCTruthT0Matcher {
	return NewMCTruthT0Matcher(NewEventBackTracker(truth.Particles))
}

func TestTrackT0Matching(t *testing.T) {
	SetConfiguration(truthTestConfig())

	truth := sampleTruth()
	result, err := newTestMatcher(truth).Process(truth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.T0s) != 2 {
		t.Fatalf("expected 2 T0 tags, got %d", len(result.T0s))
	}

	// Track 0 is dominated by particle 1 with 70% of the energy.
	t0 := result.T0s[0]
	if t0.TrackID != 1 {
		t.Fatalf("track 0: expected dominant track id 1, got %d", t0.TrackID)
	}
	if t0.Time != 1.5e-6 {
		t.Fatalf("track 0: expected T0 time 1.5e-6, got %g", t0.Time)
	}
	if t0.TriggerType != 2 {
		t.Fatalf("expected trigger type 2, got %d", t0.TriggerType)
	}
	if t0.Index != 0 {
		t.Fatalf("T0 index must match its position, got %d", t0.Index)
	}

	if result.TrackT0.Len() != 2 {
		t.Fatalf("expected 2 track-T0 associations, got %d", result.TrackT0.Len())
	}
	if result.TrackT0.Left[0] != 0 || result.TrackT0.Right[0] != 0 {
		t.Fatalf("track 0 must point at T0 0: %+v", result.TrackT0)
	}

	if result.TrackParticle.Len() != 2 {
		t.Fatalf("expected 2 track-particle associations, got %d", result.TrackParticle.Len())
	}
	if result.TrackParticle.Right[0] != 0 {
		t.Fatalf("track 0 must match particle index 0, got %d", result.TrackParticle.Right[0])
	}
	if math.Abs(result.TrackParticle.Data[0].Cleanliness-0.7) > 1e-12 {
		t.Fatalf("track 0 cleanliness: expected 0.7, got %f", result.TrackParticle.Data[0].Cleanliness)
	}
	if result.TrackParticle.Data[1].Cleanliness != 1 {
		t.Fatalf("track 1 cleanliness: expected 1, got %f", result.TrackParticle.Data[1].Cleanliness)
	}
}

func TestHitParticleFractions(t *testing.T) {
	SetConfiguration(truthTestConfig())

	truth := sampleTruth()
	result, err := newTestMatcher(truth).Process(truth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Hit 0 has two contributors, hit 1 has one.
	if result.HitParticle.Len() != 3 {
		t.Fatalf("expected 3 hit-particle associations, got %d", result.HitParticle.Len())
	}

	// Contributors of one hit are emitted in ascending track id order.
	if result.HitParticle.Left[0] != 0 || result.HitParticle.Right[0] != 0 {
		t.Fatalf("first association must be hit 0 / particle 0: %+v", result.HitParticle.AssnSet)
	}
	data := result.HitParticle.Data[0]
	if math.Abs(data.IDEFraction-0.7) > 1e-12 || math.Abs(data.IDENFraction-0.7) > 1e-12 {
		t.Fatalf("unexpected fractions for particle 1: %+v", data)
	}
	if !data.IsMaxIDE || !data.IsMaxIDEN {
		t.Fatalf("particle 1 must carry the max flags: %+v", data)
	}

	data = result.HitParticle.Data[1]
	if math.Abs(data.IDEFraction-0.3) > 1e-12 {
		t.Fatalf("unexpected fraction for particle 2: %+v", data)
	}
	if data.IsMaxIDE || data.IsMaxIDEN {
		t.Fatalf("exactly one contributor per hit carries the max flags: %+v", data)
	}
}

func TestDominanceTieBreak(t *testing.T) {
	SetConfiguration(truthTestConfig())

	truth := &TruthBlock{
		Particles: []MCParticle{
			{TrackID: 1, Pdg: 13, Time: 1e-6},
			{TrackID: 2, Pdg: 13, Time: 2e-6},
		},
		Hits: []RecoHit{
			{TrackIDEs: []TrackIDE{
				{TrackID: 2, Energy: 0.5, NumElectrons: 500},
				{TrackID: 1, Energy: 0.5, NumElectrons: 500},
			}},
		},
		Tracks: []RecoObject{{ID: 10, Hits: []uint32{0}}},
	}

	result, err := newTestMatcher(truth).Process(truth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.T0s) != 1 {
		t.Fatalf("expected 1 T0, got %d", len(result.T0s))
	}
	if result.T0s[0].TrackID != 1 {
		t.Fatalf("tie must go to the smallest track id, got %d", result.T0s[0].TrackID)
	}

	// Max flags stay unique under the same tie-break.
	maxCount := 0
	for _, data := range result.HitParticle.Data {
		if data.IsMaxIDE {
			maxCount++
		}
	}
	if maxCount != 1 {
		t.Fatalf("expected exactly one max-IDE flag, got %d", maxCount)
	}
}

func TestUnknownParticleSkipped(t *testing.T) {
	SetConfiguration(truthTestConfig())

	truth := &TruthBlock{
		Particles: []MCParticle{{TrackID: 1, Pdg: 13, Time: 1e-6}},
		Hits: []RecoHit{
			{TrackIDEs: []TrackIDE{{TrackID: 99, Energy: 1, NumElectrons: 1000}}},
		},
		Tracks: []RecoObject{{ID: 10, Hits: []uint32{0}}},
	}

	result, err := newTestMatcher(truth).Process(truth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.T0s) != 0 {
		t.Fatalf("track dominated by an unknown particle must be skipped, got %d T0s", len(result.T0s))
	}
	if result.HitParticle.Len() != 0 {
		t.Fatalf("no hit association for an unknown particle, got %d", result.HitParticle.Len())
	}
}

func TestHitWithoutDepositsSkipped(t *testing.T) {
	SetConfiguration(truthTestConfig())

	truth := &TruthBlock{
		Particles: []MCParticle{{TrackID: 1, Pdg: 13, Time: 1e-6}},
		Hits:      []RecoHit{{Channel: 7}},
		Tracks:    []RecoObject{{ID: 10, Hits: []uint32{0}}},
	}

	result, err := newTestMatcher(truth).Process(truth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HitParticle.Len() != 0 {
		t.Fatalf("hit without deposits must produce no associations, got %d", result.HitParticle.Len())
	}
	if len(result.T0s) != 0 {
		t.Fatalf("track with no deposited energy must be skipped, got %d T0s", len(result.T0s))
	}
}

func TestShowerAndPFParticleMatching(t *testing.T) {
	SetConfiguration(truthTestConfig())

	truth := sampleTruth()
	truth.Showers = []RecoObject{{ID: 20, Hits: []uint32{1}}}
	truth.Clusters = []RecoObject{{ID: 30, Hits: []uint32{0, 1}}}
	truth.PFParticles = []PFParticle{{ID: 40, Clusters: []uint32{0}}}

	result, err := newTestMatcher(truth).Process(truth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ShowerT0.Len() != 1 {
		t.Fatalf("expected 1 shower-T0 association, got %d", result.ShowerT0.Len())
	}
	showerT0 := result.T0s[result.ShowerT0.Right[0]]
	if showerT0.TrackID != 2 {
		t.Fatalf("shower dominated by particle 2, got track id %d", showerT0.TrackID)
	}

	if result.PFParticleT0.Len() != 1 {
		t.Fatalf("expected 1 pfparticle-T0 association, got %d", result.PFParticleT0.Len())
	}
	// The PFParticle spans both hits: 0.7 + 0.3 + 0.9. Particle 2 wins
	// with 1.2 of 1.9 total.
	pfpT0 := result.T0s[result.PFParticleT0.Right[0]]
	if pfpT0.TrackID != 2 {
		t.Fatalf("pfparticle dominated by particle 2, got track id %d", pfpT0.TrackID)
	}
	cleanliness := result.PFParticleParticle.Data[0].Cleanliness
	if math.Abs(cleanliness-1.2/1.9) > 1e-12 {
		t.Fatalf("pfparticle cleanliness: expected %f, got %f", 1.2/1.9, cleanliness)
	}
}

func TestNilTruthRejected(t *testing.T) {
	SetConfiguration(truthTestConfig())

	matcher := NewMCTruthT0Matcher(NewEventBackTracker(nil))
	if _, err := matcher.Process(nil); err == nil {
		t.Fatalf("expected error for nil truth block")
	}
}
