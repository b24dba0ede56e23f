package opreco

import (
	"math"
	"testing"
)

// gaussianWaveform puts a Gaussian bump of the given amplitude and width
// (in samples) on a flat baseline.
func gaussianWaveform(n int, baseline int16, center int, amplitude float64, sigma float64) []int16 {
	wf := make([]int16, n)
	for i := range wf {
		d := float64(i-center) / sigma
		bump := amplitude * math.Exp(-0.5*d*d)
		wf[i] = baseline + int16(math.Round(bump))
	}
	return wf
}

func TestSinglePulseReconstruction(t *testing.T) {
	SetConfiguration(pulseTestConfig())

	wf := gaussianWaveform(150, 2048, 100, 50, 5)
	finder := NewAlgoThreshold()
	pulses, err := finder.Reconstruct(wf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pulses) != 1 {
		t.Fatalf("expected one pulse, got %d", len(pulses))
	}

	pulse := pulses[0]
	// With threshold 10 on a 50-count amplitude, the crossing samples are
	// 92..108 and the pulse closes on sample 109.
	if pulse.TStart != 92 {
		t.Fatalf("t_start: expected 92, got %d", pulse.TStart)
	}
	if pulse.TEnd != 109 {
		t.Fatalf("t_end: expected 109, got %d", pulse.TEnd)
	}
	if pulse.TPeak != 100 {
		t.Fatalf("t_peak: expected 100, got %d", pulse.TPeak)
	}
	if pulse.Peak != 50 {
		t.Fatalf("amplitude: expected 50, got %f", pulse.Peak)
	}
	if pulse.Area <= 0 {
		t.Fatalf("area must be positive, got %f", pulse.Area)
	}
	if pulse.Pedestal.Mean != 2048 {
		t.Fatalf("pedestal: expected 2048, got %f", pulse.Pedestal.Mean)
	}
}

// pileupWaveform is a double pulse: a first peak of 30 counts followed by
// a larger one of 50 counts within the same supra-threshold span.
func pileupWaveform() []int16 {
	devs := map[int]int16{
		97: 12, 98: 20, 99: 26, 100: 30, 101: 26, 102: 24,
		103: 40, 104: 50, 105: 30, 106: 12, 107: 8,
	}
	return waveform(120, 2048, devs)
}

func TestPileupGlobalExtremum(t *testing.T) {
	SetConfiguration(pulseTestConfig())

	finder := NewAlgoThreshold()
	pulses, err := finder.Reconstruct(pileupWaveform())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pulses) != 1 {
		t.Fatalf("expected one pulse, got %d", len(pulses))
	}
	pulse := pulses[0]
	if pulse.TPeak != 104 {
		t.Fatalf("t_peak: expected global extremum at 104, got %d", pulse.TPeak)
	}
	if pulse.Peak != 50 {
		t.Fatalf("amplitude: expected 50, got %f", pulse.Peak)
	}
	if pulse.TStart != 97 || pulse.TEnd != 107 {
		t.Fatalf("bounds: expected [97, 107], got [%d, %d]", pulse.TStart, pulse.TEnd)
	}
	if pulse.Area != 278 {
		t.Fatalf("area: expected 278, got %f", pulse.Area)
	}
}

func TestPileupFirstPeak(t *testing.T) {
	SetConfiguration(pulseTestConfig())

	finder := NewAlgoFirstPeak()
	pulses, err := finder.Reconstruct(pileupWaveform())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pulses) != 1 {
		t.Fatalf("expected one pulse, got %d", len(pulses))
	}
	pulse := pulses[0]
	if pulse.TPeak != 100 {
		t.Fatalf("t_peak: expected first local maximum at 100, got %d", pulse.TPeak)
	}
	// Only the time is taken from the first peak; the amplitude is still
	// the global extremum of the span.
	if pulse.Peak != 50 {
		t.Fatalf("amplitude: expected 50, got %f", pulse.Peak)
	}
	// Bounds and area must match the threshold finder on the same span.
	if pulse.TStart != 97 || pulse.TEnd != 107 {
		t.Fatalf("bounds: expected [97, 107], got [%d, %d]", pulse.TStart, pulse.TEnd)
	}
	if pulse.Area != 278 {
		t.Fatalf("area: expected 278, got %f", pulse.Area)
	}
}

func TestPulsesOrderedAndDisjoint(t *testing.T) {
	SetConfiguration(pulseTestConfig())

	devs := map[int]int16{
		30: 15, 31: 20, 32: 15,
		60: 14, 61: 25, 62: 14,
		90: 12, 91: 18, 92: 12,
	}
	wf := waveform(120, 2048, devs)

	for _, finder := range []PulseFinder{NewAlgoThreshold(), NewAlgoFirstPeak()} {
		pulses, err := finder.Reconstruct(wf)
		if err != nil {
			t.Fatalf("%T: unexpected error: %v", finder, err)
		}
		if len(pulses) != 3 {
			t.Fatalf("%T: expected 3 pulses, got %d", finder, len(pulses))
		}
		for i, pulse := range pulses {
			if pulse.TStart > pulse.TPeak || pulse.TPeak > pulse.TEnd {
				t.Fatalf("%T: peak outside pulse bounds: %+v", finder, pulse)
			}
			if pulse.TEnd >= len(wf) {
				t.Fatalf("%T: pulse end beyond waveform: %+v", finder, pulse)
			}
			if i > 0 && pulse.TStart <= pulses[i-1].TEnd {
				t.Fatalf("%T: pulses overlap: %+v then %+v", finder, pulses[i-1], pulse)
			}
		}
	}
}

func TestMinWidthCut(t *testing.T) {
	config := pulseTestConfig()
	config.MinWidth = 3
	SetConfiguration(config)

	// Supra-threshold span of two samples: closes at width 2, below the cut.
	wf := waveform(60, 2048, map[int]int16{30: 15, 31: 15})
	finder := NewAlgoThreshold()
	pulses, err := finder.Reconstruct(wf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pulses) != 0 {
		t.Fatalf("expected narrow pulse rejected, got %d pulses", len(pulses))
	}
}

func TestPulseClosedAtWaveformEnd(t *testing.T) {
	SetConfiguration(pulseTestConfig())

	// Waveform ends while still above threshold.
	wf := waveform(50, 2048, map[int]int16{45: 20, 46: 25, 47: 25, 48: 25, 49: 25})
	finder := NewAlgoThreshold()
	pulses, err := finder.Reconstruct(wf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pulses) != 1 {
		t.Fatalf("expected one pulse, got %d", len(pulses))
	}
	if pulses[0].TEnd != 49 {
		t.Fatalf("expected pulse closed at last sample 49, got %d", pulses[0].TEnd)
	}
}
