package opreco

import (
	"errors"
	"testing"
)

// waveform builds a flat baseline with the given deviations added on top.
func waveform(n int, baseline int16, devs map[int]int16) []int16 {
	wf := make([]int16, n)
	for i := range wf {
		wf[i] = baseline
	}
	for i, d := range devs {
		wf[i] += d
	}
	return wf
}

func pulseTestConfig() Configuration {
	return Configuration{
		ADCThreshold:   10,
		NSigma:         5,
		MinWidth:       2,
		PedestalWindow: 20,
		PulsePolarity:  1,
	}
}

func TestPedestalFlatBaseline(t *testing.T) {
	SetConfiguration(pulseTestConfig())

	finder := NewAlgoThreshold()
	wf := waveform(100, 2048, nil)
	pulses, err := finder.Reconstruct(wf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pulses) != 0 {
		t.Fatalf("expected no pulses on a flat baseline, got %d", len(pulses))
	}
	pedestal := finder.LastPedestal()
	if pedestal.Mean != 2048 {
		t.Fatalf("pedestal mean: expected 2048, got %f", pedestal.Mean)
	}
	if pedestal.Sigma != 0 {
		t.Fatalf("pedestal sigma: expected 0, got %f", pedestal.Sigma)
	}
}

func TestPedestalShortWaveform(t *testing.T) {
	SetConfiguration(pulseTestConfig())

	finder := NewAlgoThreshold()
	_, err := finder.Reconstruct(waveform(10, 2048, nil))
	var emptyErr *ErrEmptyWaveform
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected ErrEmptyWaveform, got %v", err)
	}
	if emptyErr.Samples != 10 || emptyErr.Window != 20 {
		t.Fatalf("unexpected error contents: %+v", emptyErr)
	}
}

func TestPedestalUnstable(t *testing.T) {
	config := pulseTestConfig()
	config.PedestalMaxSigma = 4
	SetConfiguration(config)

	// Channel pulsing from the first sample: alternating +-40 counts.
	wf := make([]int16, 50)
	for i := range wf {
		wf[i] = 2048
		if i%2 == 0 {
			wf[i] += 40
		} else {
			wf[i] -= 40
		}
	}

	finder := NewAlgoThreshold()
	_, err := finder.Reconstruct(wf)
	var unstableErr *ErrPedestalUnstable
	if !errors.As(err, &unstableErr) {
		t.Fatalf("expected ErrPedestalUnstable, got %v", err)
	}
	if unstableErr.Sigma != 40 {
		t.Fatalf("expected sigma 40, got %f", unstableErr.Sigma)
	}
}

func TestEffectiveThresholdIsMax(t *testing.T) {
	config := pulseTestConfig()
	config.ADCThreshold = 3
	config.NSigma = 5
	SetConfiguration(config)

	// Noisy-ish pedestal: sigma 2, so 5*sigma = 10 beats the absolute 3.
	wf := make([]int16, 60)
	for i := range wf {
		wf[i] = 2048
		if i < 20 && i%2 == 0 {
			wf[i] += 4
		}
	}
	// A bump of 8 counts above the mean must stay below 5*sigma.
	wf[40] = 2048 + 8
	wf[41] = 2048 + 8
	wf[42] = 2048 + 8

	finder := NewAlgoThreshold()
	pulses, err := finder.Reconstruct(wf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pulses) != 0 {
		t.Fatalf("bump below n-sigma threshold must not fire, got %d pulses", len(pulses))
	}
}

func TestNewPulseFinderSelection(t *testing.T) {
	finder, err := NewPulseFinder("threshold")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := finder.(*AlgoThreshold); !ok {
		t.Fatalf("expected AlgoThreshold, got %T", finder)
	}

	finder, err = NewPulseFinder("first_peak")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := finder.(*AlgoFirstPeak); !ok {
		t.Fatalf("expected AlgoFirstPeak, got %T", finder)
	}

	if finder, err = NewPulseFinder(""); err != nil {
		t.Fatalf("empty name must select the default finder: %v", err)
	} else if _, ok := finder.(*AlgoThreshold); !ok {
		t.Fatalf("expected AlgoThreshold for empty name, got %T", finder)
	}

	if _, err = NewPulseFinder("wavelet"); err == nil {
		t.Fatalf("expected error for unknown finder")
	}
}

func TestNegativePolarity(t *testing.T) {
	config := pulseTestConfig()
	config.PulsePolarity = -1
	SetConfiguration(config)

	// Downward-going pulse on a positive baseline.
	wf := waveform(60, 2048, map[int]int16{30: -20, 31: -30, 32: -20})

	finder := NewAlgoThreshold()
	pulses, err := finder.Reconstruct(wf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pulses) != 1 {
		t.Fatalf("expected one pulse, got %d", len(pulses))
	}
	if pulses[0].Peak != 30 {
		t.Fatalf("expected corrected peak 30, got %f", pulses[0].Peak)
	}
}
