package opreco

import (
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

type EventDataHDF5 struct {
	evt_number    int32
	trigger_frame int32
}

type RunInfoHDF5 struct {
	run_number int32
}

type OpHitHDF5 struct {
	evt_number    int32
	channel       int32
	frame         int32
	peak_time     float64
	peak_time_abs float64
	width         float64
	area          float64
	amplitude     float64
	pe            float64
	fast_to_total float64
}

type OpFlashHDF5 struct {
	evt_number    int32
	flash         int32
	frame         int32
	time          float64
	time_width    float64
	abs_time      float64
	y_center      float64
	y_width       float64
	z_center      float64
	z_width       float64
	total_pe      float64
	in_beam_frame int32
	on_beam_time  int32
}

type FlashHitAssnHDF5 struct {
	evt_number int32
	flash      int32
	hit        int32
}

type FlashPEHDF5 struct {
	evt_number int32
	flash      int32
	channel    int32
	pe         float64
}

type ParticleHDF5 struct {
	evt_number int32
	track_id   int32
	pdg        int32
	time       float64
}

type T0HDF5 struct {
	evt_number   int32
	t0           int32
	time         float64
	trigger_type int32
	track_id     int32
}

type HitMatchHDF5 struct {
	evt_number    int32
	hit           int32
	particle      int32
	ide_fraction  float64
	is_max_ide    int32
	iden_fraction float64
	is_max_iden   int32
}

type ObjMatchHDF5 struct {
	evt_number  int32
	object      int32
	particle    int32
	t0          int32
	cleanliness float64
}

func openFile(fname string) *hdf5.File {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		panic(err)
	}
	return f
}

func createGroup(file *hdf5.File, groupName string) *hdf5.Group {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		panic(err)
	}
	return g
}

func createTable(group *hdf5.Group, name string, datatype interface{}) *hdf5.Dataset {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	file_space, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		panic(err)
	}

	// create property list
	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		panic(err)
	}

	chunks := []uint{32768}
	plist.SetChunk(chunks)

	// Set compression level
	if configuration.UseBlosc {
		hdf5.ConfigureBloscFilter(plist, configuration.BloscAlgorithm.Code, configuration.CompressionLevel, configuration.BloscShuffle.Code)
	} else {
		plist.SetDeflate(configuration.CompressionLevel)
	}

	// create the memory data type
	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		panic(err)
	}

	// create the dataset
	dset, err := group.CreateDatasetWith(name, dtype, file_space, plist)
	if err != nil {
		panic(err)
	}
	return dset
}

// table couples a dataset with its running row count. Unlike the raw
// decoder output, reconstruction tables grow by a variable number of rows
// per event, so every table keeps its own offset.
type table struct {
	dset *hdf5.Dataset
	rows int
}

func appendRow[T any](t *table, data T) {
	array := []T{data}
	appendRows(t, &array)
}

func appendRows[T any](t *table, data *[]T) {
	if len(*data) == 0 {
		return
	}
	writeArrayToTable(t.dset, data, t.rows)
	t.rows += len(*data)
}

func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T, offset int) {
	length := uint(len(*data))
	dims := []uint{length}
	dataspace, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		fmt.Println("space")
		panic(err)
	}

	// extend
	rowsInFile := uint(offset)
	newsize := []uint{rowsInFile + length}
	dataset.Resize(newsize)
	filespace := dataset.Space()

	start := []uint{rowsInFile}
	count := []uint{length}
	filespace.SelectHyperslab(start, nil, count, nil)

	err = dataset.WriteSubset(data, dataspace, filespace)
	if err != nil {
		panic(err)
	}

	dataspace.Close()
	filespace.Close()
}
