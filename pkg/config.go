package opreco

type Configuration struct {
	MaxEvents  int    `json:"max_events"`
	Verbosity  int    `json:"verbosity"`
	Skip       int    `json:"skip"`
	NumWorkers int    `json:"num_workers"`
	FileIn     string `json:"file_in"`
	FileOut    string `json:"file_out"`
	WriteData  bool   `json:"write_data"`
	Discard    bool   `json:"discard"`

	NoDB         bool   `json:"no_db"`
	Host         string `json:"host"`
	User         string `json:"user"`
	Passwd       string `json:"pass"`
	DBName       string `json:"dbname"`
	GeometryFile string `json:"geometry_file"`

	HitFinder        string    `json:"hit_finder"`
	ADCThreshold     float64   `json:"adc_threshold_abs"`
	NSigma           float64   `json:"n_sigma"`
	MinWidth         int       `json:"min_width"`
	PedestalWindow   int       `json:"pedestal_window"`
	PedestalMaxSigma float64   `json:"pedestal_max_sigma"`
	PulsePolarity    int       `json:"pulse_polarity"`
	SpeArea          []float64 `json:"spe_area"`

	TickPeriod float64 `json:"tick_period"`
	FrameSize  int     `json:"frame_size"`

	BinWidth          float64 `json:"bin_width"`
	HitSeparation     float64 `json:"hit_separation"`
	FlashTimeWindow   float64 `json:"flash_time_window"`
	HitRefineWindow   float64 `json:"hit_refine_window"`
	FlashMinPE        float64 `json:"flash_min_pe"`
	MinBinPE          float64 `json:"min_bin_pe"`
	LateLightWindow   float64 `json:"late_light_window"`
	LateLightFraction float64 `json:"late_light_fraction"`

	TriggerType int `json:"trigger_type"`

	UseBlosc         bool           `json:"use_blosc"`
	CompressionLevel int            `json:"compression_level"`
	BloscAlgorithm   BloscAlgorithm `json:"blosc_algorithm"`
	BloscShuffle     BloscShuffle   `json:"blosc_shuffle"`
}

var configuration Configuration

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}
