package opreco

type recoState int

const (
	stateBaseline recoState = iota
	stateRising
	stateFalling
)

// AlgoThreshold makes one pulse out of every supra-threshold span and
// assigns the pulse time to the global extremum of the span.
type AlgoThreshold struct {
	pulseRecoBase
}

func NewAlgoThreshold() *AlgoThreshold {
	return &AlgoThreshold{}
}

func (a *AlgoThreshold) Reconstruct(wf []int16) ([]Pulse, error) {
	if err := a.computePedestal(wf); err != nil {
		return nil, err
	}
	threshold := a.threshold()

	pulses := make([]Pulse, 0)
	state := stateBaseline
	var pulse Pulse

	for i, sample := range wf {
		v := a.deviation(sample)
		switch state {
		case stateBaseline:
			if v > threshold {
				pulse = Pulse{TStart: i, TPeak: i, Peak: v, Area: v, Pedestal: a.pedestal}
				state = stateRising
			}
		case stateRising, stateFalling:
			pulse.Area += v
			if v <= threshold {
				pulse.TEnd = i
				if pulse.TEnd-pulse.TStart >= configuration.MinWidth {
					pulses = append(pulses, pulse)
				}
				state = stateBaseline
				continue
			}
			// A sample above the running extremum re-opens the rise, so
			// piled-up pulses report the latest, highest peak.
			if v > pulse.Peak {
				pulse.Peak = v
				pulse.TPeak = i
				state = stateRising
			} else if v < pulse.Peak {
				state = stateFalling
			}
		}
	}

	// Waveform ended while still above threshold.
	if state != stateBaseline {
		pulse.TEnd = len(wf) - 1
		if pulse.TEnd-pulse.TStart >= configuration.MinWidth {
			pulses = append(pulses, pulse)
		}
	}
	return pulses, nil
}
