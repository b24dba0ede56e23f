package opreco

import "fmt"

// ErrEmptyWaveform reports a waveform too short for pedestal estimation.
type ErrEmptyWaveform struct {
	Samples int
	Window  int
}

func (e *ErrEmptyWaveform) Error() string {
	return fmt.Sprintf("waveform has %d samples, pedestal window needs %d", e.Samples, e.Window)
}

// ErrPedestalUnstable reports a pedestal sigma above the configured ceiling,
// meaning the channel was already pulsing at the start of the readout.
type ErrPedestalUnstable struct {
	Sigma    float64
	MaxSigma float64
}

func (e *ErrPedestalUnstable) Error() string {
	return fmt.Sprintf("pedestal sigma %.3f exceeds ceiling %.3f", e.Sigma, e.MaxSigma)
}

// ErrGeometryMissing reports a channel with no optical-detector position.
type ErrGeometryMissing struct {
	Channel uint16
}

func (e *ErrGeometryMissing) Error() string {
	return fmt.Sprintf("no opdet position for channel %d", e.Channel)
}

// ErrFrameCorrupt aborts flash building for one readout frame.
type ErrFrameCorrupt struct {
	Frame uint16
	Err   error
}

func (e *ErrFrameCorrupt) Error() string {
	return fmt.Sprintf("frame %d corrupt: %v", e.Frame, e.Err)
}

func (e *ErrFrameCorrupt) Unwrap() error {
	return e.Err
}

// ErrNoTrueParticle reports a dominant track id the back-tracker cannot resolve.
type ErrNoTrueParticle struct {
	TrackID int32
}

func (e *ErrNoTrueParticle) Error() string {
	return fmt.Sprintf("back-tracker has no particle for track id %d", e.TrackID)
}

// ErrZeroTotalEnergy reports a hit without ionization deposits.
type ErrZeroTotalEnergy struct {
	HitIndex int
}

func (e *ErrZeroTotalEnergy) Error() string {
	return fmt.Sprintf("hit %d has no IDE contributions", e.HitIndex)
}
