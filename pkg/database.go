package opreco

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
)

var detector *DetectorGeometry

// Detector returns the geometry loaded by LoadDatabase or SetDetector.
func Detector() *DetectorGeometry {
	return detector
}

// SetDetector installs a geometry built outside the database path, for
// example from a geometry file in no-DB mode.
func SetDetector(geometry *DetectorGeometry) {
	detector = geometry
}

// LoadDatabase reads the opdet geometry and SPE calibration valid for the
// given run. SPE areas from the database are used only when the
// configuration does not set them explicitly.
func LoadDatabase(dbConn *sqlx.DB, runNumber int) error {
	var err error
	detector, err = getOpDetsFromDB(dbConn, runNumber)
	if err != nil {
		errMessage := fmt.Errorf("error getting opdet geometry from database: %w", err)
		logger.Error(errMessage.Error())
		return errMessage
	}
	if len(configuration.SpeArea) == 0 {
		speAreas, err := getSpeAreasFromDB(dbConn, runNumber)
		if err != nil {
			errMessage := fmt.Errorf("error getting SPE calibration from database: %w", err)
			logger.Error(errMessage.Error())
			return errMessage
		}
		configuration.SpeArea = speAreas
	}
	return nil
}

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

type opDetEntry struct {
	Channel int     `db:"Channel"`
	X       float64 `db:"X"`
	Y       float64 `db:"Y"`
	Z       float64 `db:"Z"`
	Enabled bool    `db:"Enabled"`
}

type speEntry struct {
	Channel int     `db:"Channel"`
	Area    float64 `db:"Area"`
}

func getOpDetsFromDB(db *sqlx.DB, runNumber int) (*DetectorGeometry, error) {
	query := "SELECT Channel, X, Y, Z, Enabled FROM OpDetGeometry WHERE MinRun <= %d and MaxRun >= %d ORDER BY Channel"
	query = fmt.Sprintf(query, runNumber, runNumber)

	if configuration.Verbosity > 0 {
		logger.Info("Reading opdet geometry from database", "database")
	}
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}
	rows, err := db.Queryx(query)
	if err != nil {
		errMessage := fmt.Errorf("error querying database: %w", err)
		return nil, errMessage
	}

	geometry := NewDetectorGeometry()
	for rows.Next() {
		result := opDetEntry{}
		err := rows.StructScan(&result)
		if err != nil {
			errMessage := fmt.Errorf("error scanning DB row: %w", err)
			return nil, errMessage
		}
		point := OpDetPoint{X: result.X, Y: result.Y, Z: result.Z}
		geometry.AddOpDet(uint16(result.Channel), point, result.Enabled)
	}
	return geometry, nil
}

func getSpeAreasFromDB(db *sqlx.DB, runNumber int) ([]float64, error) {
	query := "SELECT Channel, Area FROM SpeCalibration WHERE MinRun <= %d and MaxRun >= %d ORDER BY Channel"
	query = fmt.Sprintf(query, runNumber, runNumber)

	if configuration.Verbosity > 0 {
		logger.Info("Reading SPE calibration from database", "database")
	}
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}
	rows, err := db.Queryx(query)
	if err != nil {
		errMessage := fmt.Errorf("error querying database: %w", err)
		return nil, errMessage
	}

	speAreas := make([]float64, 0)
	for rows.Next() {
		result := speEntry{}
		err := rows.StructScan(&result)
		if err != nil {
			errMessage := fmt.Errorf("error scanning DB row: %w", err)
			return nil, errMessage
		}
		for len(speAreas) <= result.Channel {
			speAreas = append(speAreas, 0)
		}
		speAreas[result.Channel] = result.Area
	}
	return speAreas, nil
}
