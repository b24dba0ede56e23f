package opreco

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"
)

const (
	PHYSICS_EVENT     = 7
	CALIBRATION_EVENT = 8
)

// EventHeaderStruct is the fixed event header of the optical readout
// files. All fields are little-endian; the layout is padding-free so
// unsafe.Sizeof matches the on-disk size.
type EventHeaderStruct struct {
	EventSize     uint32
	EventMagic    uint32
	EventHeadSize uint32
	EventRunNb    uint32
	EventId       uint32
	EventType     uint16
	TriggerFrame  uint16
	NBeamGates    uint16
	NChannels     uint16
	NParticles    uint16
	NHits         uint16
	NTracks       uint16
	NShowers      uint16
	NClusters     uint16
	NPFParticles  uint16
}

const eventMagic = 0x4f505231 // "OPR1"

type BeamGateStruct struct {
	Start float64
	Width float64
}

type ChannelHeaderStruct struct {
	ChannelID   uint16
	Frame       uint16
	FirstSample uint32
	NSamples    uint32
}

type ParticleStruct struct {
	TrackID int32
	Pdg     int32
	Time    float64
}

type HitHeaderStruct struct {
	Channel  uint32
	NIDEs    uint32
	PeakTime float64
	Integral float64
}

type IDEStruct struct {
	TrackID      int32
	Energy       float32
	NumElectrons float32
}

type ObjectHeaderStruct struct {
	ID    int32
	NHits uint32
}

type PFParticleHeaderStruct struct {
	ID        int32
	NClusters uint32
}

func ValidEvent(header EventHeaderStruct) bool {
	if header.EventMagic != eventMagic {
		return false
	}
	return header.EventType == PHYSICS_EVENT || header.EventType == CALIBRATION_EVENT
}

// ReadEventFromFile reads the next event header and payload from the
// current file position.
func ReadEventFromFile(file *os.File) (EventHeaderStruct, []byte, error) {
	var header EventHeaderStruct
	headerSize := unsafe.Sizeof(header)
	headerBinary := make([]byte, headerSize)
	nRead, err := file.Read(headerBinary)
	if err != nil {
		return header, nil, err
	}
	if nRead == 0 {
		return header, nil, err
	}

	headerReader := bytes.NewReader(headerBinary)
	binary.Read(headerReader, binary.LittleEndian, &header)

	payloadSize := header.EventSize - uint32(headerSize)
	eventData := make([]byte, payloadSize)
	file.Read(eventData)
	return header, eventData, nil
}

// DecodeEvent parses the payload sections in file order: beam gates,
// channel records, then the truth block.
func DecodeEvent(header EventHeaderStruct, eventData []byte) (EventType, error) {
	event := EventType{
		RunNumber:    header.EventRunNb,
		EventID:      header.EventId,
		TriggerFrame: header.TriggerFrame,
	}

	reader := bytes.NewReader(eventData)
	for i := 0; i < int(header.NBeamGates); i++ {
		var gate BeamGateStruct
		if err := binary.Read(reader, binary.LittleEndian, &gate); err != nil {
			return event, fmt.Errorf("event %d: reading beam gate %d: %w", header.EventId, i, err)
		}
		event.BeamGates = append(event.BeamGates, BeamGate{Start: gate.Start, Width: gate.Width})
	}

	for i := 0; i < int(header.NChannels); i++ {
		var channelHeader ChannelHeaderStruct
		if err := binary.Read(reader, binary.LittleEndian, &channelHeader); err != nil {
			return event, fmt.Errorf("event %d: reading channel header %d: %w", header.EventId, i, err)
		}
		samples := make([]int16, channelHeader.NSamples)
		if err := binary.Read(reader, binary.LittleEndian, &samples); err != nil {
			return event, fmt.Errorf("event %d: reading channel %d samples: %w",
				header.EventId, channelHeader.ChannelID, err)
		}
		event.Channels = append(event.Channels, FIFOChannel{
			ChannelID:   channelHeader.ChannelID,
			Frame:       channelHeader.Frame,
			FirstSample: channelHeader.FirstSample,
			Samples:     samples,
		})
	}

	truth, err := decodeTruth(reader, header)
	if err != nil {
		return event, err
	}
	event.Truth = truth
	return event, nil
}

func decodeTruth(reader *bytes.Reader, header EventHeaderStruct) (*TruthBlock, error) {
	nTruth := int(header.NParticles) + int(header.NHits) + int(header.NTracks) +
		int(header.NShowers) + int(header.NClusters) + int(header.NPFParticles)
	if nTruth == 0 {
		return nil, nil
	}

	truth := &TruthBlock{}
	for i := 0; i < int(header.NParticles); i++ {
		var particle ParticleStruct
		if err := binary.Read(reader, binary.LittleEndian, &particle); err != nil {
			return nil, fmt.Errorf("event %d: reading particle %d: %w", header.EventId, i, err)
		}
		truth.Particles = append(truth.Particles, MCParticle{
			TrackID: particle.TrackID,
			Pdg:     particle.Pdg,
			Time:    particle.Time,
		})
	}

	for i := 0; i < int(header.NHits); i++ {
		var hitHeader HitHeaderStruct
		if err := binary.Read(reader, binary.LittleEndian, &hitHeader); err != nil {
			return nil, fmt.Errorf("event %d: reading hit %d: %w", header.EventId, i, err)
		}
		hit := RecoHit{
			Channel:  hitHeader.Channel,
			PeakTime: hitHeader.PeakTime,
			Integral: hitHeader.Integral,
		}
		for j := 0; j < int(hitHeader.NIDEs); j++ {
			var ide IDEStruct
			if err := binary.Read(reader, binary.LittleEndian, &ide); err != nil {
				return nil, fmt.Errorf("event %d: reading hit %d ide %d: %w", header.EventId, i, j, err)
			}
			hit.TrackIDEs = append(hit.TrackIDEs, TrackIDE{
				TrackID:      ide.TrackID,
				Energy:       float64(ide.Energy),
				NumElectrons: float64(ide.NumElectrons),
			})
		}
		truth.Hits = append(truth.Hits, hit)
	}

	var err error
	if truth.Tracks, err = decodeObjects(reader, int(header.NTracks), header.EventId, "track"); err != nil {
		return nil, err
	}
	if truth.Showers, err = decodeObjects(reader, int(header.NShowers), header.EventId, "shower"); err != nil {
		return nil, err
	}
	if truth.Clusters, err = decodeObjects(reader, int(header.NClusters), header.EventId, "cluster"); err != nil {
		return nil, err
	}

	for i := 0; i < int(header.NPFParticles); i++ {
		var pfpHeader PFParticleHeaderStruct
		if err := binary.Read(reader, binary.LittleEndian, &pfpHeader); err != nil {
			return nil, fmt.Errorf("event %d: reading pfparticle %d: %w", header.EventId, i, err)
		}
		clusters := make([]uint32, pfpHeader.NClusters)
		if err := binary.Read(reader, binary.LittleEndian, &clusters); err != nil {
			return nil, fmt.Errorf("event %d: reading pfparticle %d clusters: %w", header.EventId, i, err)
		}
		truth.PFParticles = append(truth.PFParticles, PFParticle{ID: pfpHeader.ID, Clusters: clusters})
	}
	return truth, nil
}

func decodeObjects(reader *bytes.Reader, count int, eventID uint32, kind string) ([]RecoObject, error) {
	objects := make([]RecoObject, 0, count)
	for i := 0; i < count; i++ {
		var objHeader ObjectHeaderStruct
		if err := binary.Read(reader, binary.LittleEndian, &objHeader); err != nil {
			return nil, fmt.Errorf("event %d: reading %s %d: %w", eventID, kind, i, err)
		}
		hits := make([]uint32, objHeader.NHits)
		if err := binary.Read(reader, binary.LittleEndian, &hits); err != nil {
			return nil, fmt.Errorf("event %d: reading %s %d hits: %w", eventID, kind, i, err)
		}
		objects = append(objects, RecoObject{ID: objHeader.ID, Hits: hits})
	}
	return objects, nil
}

// EncodeEvent serializes an event back to the file layout. Used by the
// tests and by fixture generators.
func EncodeEvent(event *EventType) ([]byte, error) {
	payload := new(bytes.Buffer)

	for _, gate := range event.BeamGates {
		binary.Write(payload, binary.LittleEndian, BeamGateStruct{Start: gate.Start, Width: gate.Width})
	}
	for _, channel := range event.Channels {
		binary.Write(payload, binary.LittleEndian, ChannelHeaderStruct{
			ChannelID:   channel.ChannelID,
			Frame:       channel.Frame,
			FirstSample: channel.FirstSample,
			NSamples:    uint32(len(channel.Samples)),
		})
		binary.Write(payload, binary.LittleEndian, channel.Samples)
	}

	header := EventHeaderStruct{
		EventMagic:   eventMagic,
		EventRunNb:   event.RunNumber,
		EventId:      event.EventID,
		EventType:    PHYSICS_EVENT,
		TriggerFrame: event.TriggerFrame,
		NBeamGates:   uint16(len(event.BeamGates)),
		NChannels:    uint16(len(event.Channels)),
	}

	if event.Truth != nil {
		truth := event.Truth
		header.NParticles = uint16(len(truth.Particles))
		header.NHits = uint16(len(truth.Hits))
		header.NTracks = uint16(len(truth.Tracks))
		header.NShowers = uint16(len(truth.Showers))
		header.NClusters = uint16(len(truth.Clusters))
		header.NPFParticles = uint16(len(truth.PFParticles))

		for _, particle := range truth.Particles {
			binary.Write(payload, binary.LittleEndian, ParticleStruct{
				TrackID: particle.TrackID,
				Pdg:     particle.Pdg,
				Time:    particle.Time,
			})
		}
		for _, hit := range truth.Hits {
			binary.Write(payload, binary.LittleEndian, HitHeaderStruct{
				Channel:  hit.Channel,
				NIDEs:    uint32(len(hit.TrackIDEs)),
				PeakTime: hit.PeakTime,
				Integral: hit.Integral,
			})
			for _, ide := range hit.TrackIDEs {
				binary.Write(payload, binary.LittleEndian, IDEStruct{
					TrackID:      ide.TrackID,
					Energy:       float32(ide.Energy),
					NumElectrons: float32(ide.NumElectrons),
				})
			}
		}
		encodeObjects(payload, truth.Tracks)
		encodeObjects(payload, truth.Showers)
		encodeObjects(payload, truth.Clusters)
		for _, pfp := range truth.PFParticles {
			binary.Write(payload, binary.LittleEndian, PFParticleHeaderStruct{
				ID:        pfp.ID,
				NClusters: uint32(len(pfp.Clusters)),
			})
			binary.Write(payload, binary.LittleEndian, pfp.Clusters)
		}
	}

	headerSize := uint32(unsafe.Sizeof(header))
	header.EventSize = headerSize + uint32(payload.Len())
	header.EventHeadSize = headerSize

	out := new(bytes.Buffer)
	if err := binary.Write(out, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	out.Write(payload.Bytes())
	return out.Bytes(), nil
}

func encodeObjects(payload *bytes.Buffer, objects []RecoObject) {
	for _, obj := range objects {
		binary.Write(payload, binary.LittleEndian, ObjectHeaderStruct{
			ID:    obj.ID,
			NHits: uint32(len(obj.Hits)),
		})
		binary.Write(payload, binary.LittleEndian, obj.Hits)
	}
}
