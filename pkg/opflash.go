package opreco

// OpFlash is a coincident group of optical hits across channels.
// Time is relative to the trigger, AbsTime is absolute. Widths are
// PE-weighted RMS values.
type OpFlash struct {
	Time      float64
	TimeWidth float64
	AbsTime   float64
	Frame     uint16

	PEPerOpDet []float64

	YCenter float64
	YWidth  float64
	ZCenter float64
	ZWidth  float64

	// Z positions of the contributing opdets, in channel order.
	FiberPositions []float64

	InBeamFrame bool
	OnBeamTime  bool
}

func (f *OpFlash) TotalPE() float64 {
	var total float64
	for _, pe := range f.PEPerOpDet {
		total += pe
	}
	return total
}

func (f *OpFlash) PE(channel uint16) float64 {
	if int(channel) >= len(f.PEPerOpDet) {
		return 0
	}
	return f.PEPerOpDet[channel]
}
