package opreco

// OpHit is a reconstructed optical hit on one channel. Times are in
// seconds; PeakTime is relative to the trigger, PeakTimeAbs is absolute.
type OpHit struct {
	OpChannel   uint16
	Frame       uint16
	PeakTime    float64
	PeakTimeAbs float64
	Width       float64
	Area        float64
	Amplitude   float64
	PE          float64
	FastToTotal float64
}
