package opreco

import (
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

// Writer persists reconstruction output to HDF5. Layout:
//
//	/Run    events, runInfo
//	/Reco   ophits, opflashes, flash_pe
//	/Assns  flash_hits, hit_matches, track_matches, shower_matches, pfparticle_matches
//	/Truth  particles, t0s
type Writer struct {
	File     *hdf5.File
	Filename string
	FirstEvt bool

	RunGroup   *hdf5.Group
	RecoGroup  *hdf5.Group
	AssnsGroup *hdf5.Group
	TruthGroup *hdf5.Group

	EventTable   table
	RunInfoTable table

	OpHitTable   table
	OpFlashTable table
	FlashPETable table

	FlashHitTable    table
	HitMatchTable    table
	TrackMatchTable  table
	ShowerMatchTable table
	PFPMatchTable    table

	ParticleTable table
	T0Table       table
}

func NewWriter(filename string) *Writer {
	if configuration.UseBlosc {
		blosc_version, blosc_date, err := hdf5.RegisterBlosc()
		fmt.Println("Blosc version: ", blosc_version, " date: ", blosc_date)
		if err != nil {
			logger.Error(err.Error())
		}
	}

	writer := &Writer{}
	fmt.Println("hdf5writer: Creating file: ", filename)
	writer.File = openFile(filename)
	writer.Filename = filename
	writer.RunGroup = createGroup(writer.File, "Run")
	writer.RecoGroup = createGroup(writer.File, "Reco")
	writer.AssnsGroup = createGroup(writer.File, "Assns")
	writer.TruthGroup = createGroup(writer.File, "Truth")

	writer.EventTable = table{dset: createTable(writer.RunGroup, "events", EventDataHDF5{})}
	writer.RunInfoTable = table{dset: createTable(writer.RunGroup, "runInfo", RunInfoHDF5{})}
	writer.OpHitTable = table{dset: createTable(writer.RecoGroup, "ophits", OpHitHDF5{})}
	writer.OpFlashTable = table{dset: createTable(writer.RecoGroup, "opflashes", OpFlashHDF5{})}
	writer.FlashPETable = table{dset: createTable(writer.RecoGroup, "flash_pe", FlashPEHDF5{})}
	writer.FlashHitTable = table{dset: createTable(writer.AssnsGroup, "flash_hits", FlashHitAssnHDF5{})}
	writer.HitMatchTable = table{dset: createTable(writer.AssnsGroup, "hit_matches", HitMatchHDF5{})}
	writer.TrackMatchTable = table{dset: createTable(writer.AssnsGroup, "track_matches", ObjMatchHDF5{})}
	writer.ShowerMatchTable = table{dset: createTable(writer.AssnsGroup, "shower_matches", ObjMatchHDF5{})}
	writer.PFPMatchTable = table{dset: createTable(writer.AssnsGroup, "pfparticle_matches", ObjMatchHDF5{})}
	writer.ParticleTable = table{dset: createTable(writer.TruthGroup, "particles", ParticleHDF5{})}
	writer.T0Table = table{dset: createTable(writer.TruthGroup, "t0s", T0HDF5{})}
	return writer
}

// WriteEvent persists one event. The truth result may be nil for data
// without an MC block.
func (w *Writer) WriteEvent(event *EventType, result *FlashFinderResult, truth *TruthMatchResult) {
	evtNumber := int32(event.EventID)

	if !w.FirstEvt {
		appendRow(&w.RunInfoTable, RunInfoHDF5{run_number: int32(event.RunNumber)})
		w.FirstEvt = true
	}

	appendRow(&w.EventTable, EventDataHDF5{
		evt_number:    evtNumber,
		trigger_frame: int32(event.TriggerFrame),
	})

	w.writeHits(evtNumber, result.Hits)
	w.writeFlashes(evtNumber, result.Flashes)
	w.writeFlashHits(evtNumber, &result.FlashHits)

	if event.Truth != nil {
		w.writeParticles(evtNumber, event.Truth.Particles)
	}
	if truth != nil {
		w.writeTruthMatch(evtNumber, truth)
	}
}

func (w *Writer) writeHits(evtNumber int32, hits []OpHit) {
	rows := make([]OpHitHDF5, len(hits))
	for i, hit := range hits {
		rows[i] = OpHitHDF5{
			evt_number:    evtNumber,
			channel:       int32(hit.OpChannel),
			frame:         int32(hit.Frame),
			peak_time:     hit.PeakTime,
			peak_time_abs: hit.PeakTimeAbs,
			width:         hit.Width,
			area:          hit.Area,
			amplitude:     hit.Amplitude,
			pe:            hit.PE,
			fast_to_total: hit.FastToTotal,
		}
	}
	appendRows(&w.OpHitTable, &rows)
}

func (w *Writer) writeFlashes(evtNumber int32, flashes []OpFlash) {
	rows := make([]OpFlashHDF5, len(flashes))
	peRows := make([]FlashPEHDF5, 0)
	for i := range flashes {
		flash := &flashes[i]
		rows[i] = OpFlashHDF5{
			evt_number:    evtNumber,
			flash:         int32(i),
			frame:         int32(flash.Frame),
			time:          flash.Time,
			time_width:    flash.TimeWidth,
			abs_time:      flash.AbsTime,
			y_center:      flash.YCenter,
			y_width:       flash.YWidth,
			z_center:      flash.ZCenter,
			z_width:       flash.ZWidth,
			total_pe:      flash.TotalPE(),
			in_beam_frame: boolToInt32(flash.InBeamFrame),
			on_beam_time:  boolToInt32(flash.OnBeamTime),
		}
		for channel, pe := range flash.PEPerOpDet {
			if pe == 0 {
				continue
			}
			peRows = append(peRows, FlashPEHDF5{
				evt_number: evtNumber,
				flash:      int32(i),
				channel:    int32(channel),
				pe:         pe,
			})
		}
	}
	appendRows(&w.OpFlashTable, &rows)
	appendRows(&w.FlashPETable, &peRows)
}

func (w *Writer) writeFlashHits(evtNumber int32, assns *AssnSet) {
	rows := make([]FlashHitAssnHDF5, assns.Len())
	for i := 0; i < assns.Len(); i++ {
		rows[i] = FlashHitAssnHDF5{
			evt_number: evtNumber,
			flash:      int32(assns.Left[i]),
			hit:        int32(assns.Right[i]),
		}
	}
	appendRows(&w.FlashHitTable, &rows)
}

func (w *Writer) writeParticles(evtNumber int32, particles []MCParticle) {
	rows := make([]ParticleHDF5, len(particles))
	for i, particle := range particles {
		rows[i] = ParticleHDF5{
			evt_number: evtNumber,
			track_id:   particle.TrackID,
			pdg:        particle.Pdg,
			time:       particle.Time,
		}
	}
	appendRows(&w.ParticleTable, &rows)
}

func (w *Writer) writeTruthMatch(evtNumber int32, truth *TruthMatchResult) {
	t0Rows := make([]T0HDF5, len(truth.T0s))
	for i, t0 := range truth.T0s {
		t0Rows[i] = T0HDF5{
			evt_number:   evtNumber,
			t0:           int32(t0.Index),
			time:         t0.Time,
			trigger_type: int32(t0.TriggerType),
			track_id:     t0.TrackID,
		}
	}
	appendRows(&w.T0Table, &t0Rows)

	hitRows := make([]HitMatchHDF5, truth.HitParticle.Len())
	for i := 0; i < truth.HitParticle.Len(); i++ {
		data := truth.HitParticle.Data[i]
		hitRows[i] = HitMatchHDF5{
			evt_number:    evtNumber,
			hit:           int32(truth.HitParticle.Left[i]),
			particle:      int32(truth.HitParticle.Right[i]),
			ide_fraction:  data.IDEFraction,
			is_max_ide:    boolToInt32(data.IsMaxIDE),
			iden_fraction: data.IDENFraction,
			is_max_iden:   boolToInt32(data.IsMaxIDEN),
		}
	}
	appendRows(&w.HitMatchTable, &hitRows)

	w.writeObjectMatches(evtNumber, &w.TrackMatchTable, &truth.TrackParticle, &truth.TrackT0)
	w.writeObjectMatches(evtNumber, &w.ShowerMatchTable, &truth.ShowerParticle, &truth.ShowerT0)
	w.writeObjectMatches(evtNumber, &w.PFPMatchTable, &truth.PFParticleParticle, &truth.PFParticleT0)
}

// writeObjectMatches flattens the object-particle and object-T0 tables into
// one row per object. Both association sets are emitted in lockstep by the
// matcher, so row i of each refers to the same object.
func (w *Writer) writeObjectMatches(evtNumber int32, dst *table,
	particles *ObjectParticleAssns, t0s *AssnSet) {
	rows := make([]ObjMatchHDF5, particles.Len())
	for i := 0; i < particles.Len(); i++ {
		rows[i] = ObjMatchHDF5{
			evt_number:  evtNumber,
			object:      int32(particles.Left[i]),
			particle:    int32(particles.Right[i]),
			t0:          int32(t0s.Right[i]),
			cleanliness: particles.Data[i].Cleanliness,
		}
	}
	appendRows(dst, &rows)
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func (w *Writer) Close() {
	w.File.Close()
}
