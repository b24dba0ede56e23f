package opreco

// AssnSet is a plain many-to-many association table: two parallel slices
// of indices into the left and right collections.
type AssnSet struct {
	Left  []int
	Right []int
}

func (a *AssnSet) Add(left int, right int) {
	a.Left = append(a.Left, left)
	a.Right = append(a.Right, right)
}

func (a *AssnSet) Len() int {
	return len(a.Left)
}

// BackTrackerHitMatchingData is the payload of a hit-to-particle
// association. Fractions are exact floating divisions, no clamping.
type BackTrackerHitMatchingData struct {
	IDEFraction  float64
	IsMaxIDE     bool
	IDENFraction float64
	IsMaxIDEN    bool
}

// HitParticleAssns associates reconstructed hits with MC particles.
type HitParticleAssns struct {
	AssnSet
	Data []BackTrackerHitMatchingData
}

func (a *HitParticleAssns) Add(hit int, particle int, data BackTrackerHitMatchingData) {
	a.AssnSet.Add(hit, particle)
	a.Data = append(a.Data, data)
}

// BackTrackerMatchingData is the payload of an object-to-particle
// association.
type BackTrackerMatchingData struct {
	Cleanliness float64
}

// ObjectParticleAssns associates tracks, showers or PFParticles with MC
// particles.
type ObjectParticleAssns struct {
	AssnSet
	Data []BackTrackerMatchingData
}

func (a *ObjectParticleAssns) Add(object int, particle int, data BackTrackerMatchingData) {
	a.AssnSet.Add(object, particle)
	a.Data = append(a.Data, data)
}
