package opreco

// AlgoFirstPeak makes one pulse out of every supra-threshold span, like
// AlgoThreshold, but assigns the pulse time to the first local maximum.
// Only the time differs: amplitude and area still cover the full span, so
// piled-up pulses report the earliest arrival with the extremum's height.
type AlgoFirstPeak struct {
	pulseRecoBase
}

func NewAlgoFirstPeak() *AlgoFirstPeak {
	return &AlgoFirstPeak{}
}

func (a *AlgoFirstPeak) Reconstruct(wf []int16) ([]Pulse, error) {
	if err := a.computePedestal(wf); err != nil {
		return nil, err
	}
	threshold := a.threshold()

	pulses := make([]Pulse, 0)
	state := stateBaseline
	peakLocked := false
	var prev, firstPeak float64
	var pulse Pulse

	for i, sample := range wf {
		v := a.deviation(sample)
		switch state {
		case stateBaseline:
			if v > threshold {
				pulse = Pulse{TStart: i, TPeak: i, Peak: v, Area: v, Pedestal: a.pedestal}
				firstPeak = v
				peakLocked = false
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
				prev = v
				continue
			}
			// Amplitude follows the global extremum, as in AlgoThreshold.
			if v > pulse.Peak {
				pulse.Peak = v
				state = stateRising
			} else if v < pulse.Peak {
				state = stateFalling
			}
			if !peakLocked {
				if v < prev {
					// The previous sample was the first peak.
					peakLocked = true
				} else if v >= firstPeak {
					firstPeak = v
					pulse.TPeak = i
				}
			}
		}
		prev = v
	}

	if state != stateBaseline {
		pulse.TEnd = len(wf) - 1
		if pulse.TEnd-pulse.TStart >= configuration.MinWidth {
			pulses = append(pulses, pulse)
		}
	}
	return pulses, nil
}
