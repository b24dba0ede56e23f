package opreco

import (
	"encoding/json"
	"fmt"
	"os"
)

type OpDetPoint struct {
	X float64
	Y float64
	Z float64
}

// Geometry is the read-only optical-detector geometry collaborator.
type Geometry interface {
	NOpDets() int
	OpDetPosition(channel uint16) (OpDetPoint, error)
	OpDetEnabled(channel uint16) bool
}

// DetectorGeometry is a Geometry backed by a plain channel map, filled
// either from the database or from a JSON geometry file.
type DetectorGeometry struct {
	positions map[uint16]OpDetPoint
	enabled   map[uint16]bool
	nOpDets   int
}

func NewDetectorGeometry() *DetectorGeometry {
	return &DetectorGeometry{
		positions: make(map[uint16]OpDetPoint),
		enabled:   make(map[uint16]bool),
	}
}

func (g *DetectorGeometry) AddOpDet(channel uint16, point OpDetPoint, enabled bool) {
	g.positions[channel] = point
	g.enabled[channel] = enabled
	if int(channel)+1 > g.nOpDets {
		g.nOpDets = int(channel) + 1
	}
}

func (g *DetectorGeometry) NOpDets() int {
	return g.nOpDets
}

func (g *DetectorGeometry) OpDetPosition(channel uint16) (OpDetPoint, error) {
	point, ok := g.positions[channel]
	if !ok {
		return OpDetPoint{}, &ErrGeometryMissing{Channel: channel}
	}
	return point, nil
}

// OpDetEnabled reports whether a channel takes part in reconstruction.
// Channels never declared are treated as enabled; an unknown channel still
// produces hits, it is only excluded from flash centroids.
func (g *DetectorGeometry) OpDetEnabled(channel uint16) bool {
	enabled, ok := g.enabled[channel]
	if !ok {
		return true
	}
	return enabled
}

type opDetFileEntry struct {
	Channel uint16  `json:"channel"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	Enabled bool    `json:"enabled"`
}

// LoadGeometryFile reads the opdet layout from a JSON file. Used in no-DB mode.
func LoadGeometryFile(filename string) (*DetectorGeometry, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading geometry file %q: %w", filename, err)
	}
	var entries []opDetFileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("error parsing geometry file %q: %w", filename, err)
	}
	geometry := NewDetectorGeometry()
	for _, entry := range entries {
		geometry.AddOpDet(entry.Channel, OpDetPoint{X: entry.X, Y: entry.Y, Z: entry.Z}, entry.Enabled)
	}
	return geometry, nil
}
