package opreco

import (
	"fmt"
	"math"
)

type Pedestal struct {
	Mean  float64
	Sigma float64
}

// Pulse is one reconstructed pulse in sample space. Peak and Area are
// pedestal-subtracted and polarity-corrected.
type Pulse struct {
	TStart   int
	TEnd     int
	TPeak    int
	Peak     float64
	Area     float64
	Pedestal Pedestal
}

// PulseFinder reconstructs zero or more pulses from one channel's waveform.
type PulseFinder interface {
	Reconstruct(wf []int16) ([]Pulse, error)
	LastPedestal() Pedestal
}

// pulseRecoBase holds the pedestal estimation and threshold logic shared by
// the concrete finders.
type pulseRecoBase struct {
	pedestal Pedestal
}

func (b *pulseRecoBase) LastPedestal() Pedestal {
	return b.pedestal
}

func (b *pulseRecoBase) computePedestal(wf []int16) error {
	window := configuration.PedestalWindow
	if window <= 0 {
		window = 20
	}
	if len(wf) < window {
		return &ErrEmptyWaveform{Samples: len(wf), Window: window}
	}

	var sum, sum2 float64
	for _, s := range wf[:window] {
		v := float64(s)
		sum += v
		sum2 += v * v
	}
	mean := sum / float64(window)
	variance := sum2/float64(window) - mean*mean
	if variance < 0 {
		variance = 0
	}
	b.pedestal = Pedestal{Mean: mean, Sigma: math.Sqrt(variance)}

	if configuration.PedestalMaxSigma > 0 && b.pedestal.Sigma > configuration.PedestalMaxSigma {
		return &ErrPedestalUnstable{Sigma: b.pedestal.Sigma, MaxSigma: configuration.PedestalMaxSigma}
	}
	return nil
}

// threshold is the effective threshold above pedestal: the larger of the
// absolute ADC threshold and the sigma-based one.
func (b *pulseRecoBase) threshold() float64 {
	threshold := configuration.NSigma * b.pedestal.Sigma
	if configuration.ADCThreshold > threshold {
		threshold = configuration.ADCThreshold
	}
	return threshold
}

// deviation is the pedestal-subtracted sample value in the pulse polarity.
func (b *pulseRecoBase) deviation(sample int16) float64 {
	d := float64(sample) - b.pedestal.Mean
	if configuration.PulsePolarity < 0 {
		d = -d
	}
	return d
}

// PulseRecoManager drives one pulse finder over a stream of waveforms.
// The strategy may not be replaced during a batch.
type PulseRecoManager struct {
	finder PulseFinder
}

func NewPulseRecoManager(finder PulseFinder) *PulseRecoManager {
	return &PulseRecoManager{finder: finder}
}

func (m *PulseRecoManager) Reconstruct(wf []int16) ([]Pulse, error) {
	return m.finder.Reconstruct(wf)
}

func (m *PulseRecoManager) LastPedestal() Pedestal {
	return m.finder.LastPedestal()
}

// NewPulseFinder builds the finder named in the configuration.
func NewPulseFinder(name string) (PulseFinder, error) {
	switch name {
	case "", "threshold":
		return NewAlgoThreshold(), nil
	case "first_peak":
		return NewAlgoFirstPeak(), nil
	}
	return nil, fmt.Errorf("unknown hit finder %q", name)
}
