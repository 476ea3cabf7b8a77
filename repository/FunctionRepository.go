package repository

import (
	"backend/models"
	"database/sql"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

func GenerateRandomCode() string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	letters := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	prefix := string(letters[rng.Intn(len(letters))]) + string(letters[rng.Intn(len(letters))])
	number := rng.Intn(90000) + 10000

	return fmt.Sprintf("%s%d", prefix, number)
}

// GenerateRFINumber builds the display number in the format "RFI/CODE/0001".
func GenerateRFINumber(projectCode string, sequenceNumber int) string {
	formattedCode := strings.ToUpper(projectCode)
	formattedSequence := fmt.Sprintf("%04d", sequenceNumber)

	return "RFI/" + formattedCode + "/" + formattedSequence
}

// NextRFISequence returns the next per-project RFI sequence number.
func NextRFISequence(db *sql.DB, projectID int) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM rfi WHERE project_id = $1`, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count RFIs for project %d: %w", projectID, err)
	}
	return count + 1, nil
}

// GenerateRevisionCode advances a drawing revision code: "" -> "RV-01",
// "RV-01" -> "RV-02", ...
func GenerateRevisionCode(previousVersion string) (string, error) {
	if previousVersion == "" {
		return "RV-01", nil
	}

	if !strings.HasPrefix(previousVersion, "RV-") {
		return "", fmt.Errorf("invalid revision code %q", previousVersion)
	}

	versionNumber, err := strconv.Atoi(strings.TrimPrefix(previousVersion, "RV-"))
	if err != nil {
		return "", fmt.Errorf("invalid revision number in %q: %w", previousVersion, err)
	}

	return "RV-" + fmt.Sprintf("%02d", versionNumber+1), nil
}

// FetchBuilding retrieves one building row without its floors.
func FetchBuilding(db *sql.DB, buildingID string) (*models.Building, error) {
	query := `
		SELECT building_id, project_id, name, application_type, twin_of_building_name, society_id,
		       gf_entrance_lobby_area, passenger_lifts, passenger_fire_lifts, firemen_lifts,
		       staircase_count, parking_count, parking_area, mech_ventilation,
		       booster_pump_kw, sewage_pump_kw, wet_riser_pump_kw,
		       pump_working_sets, pump_standby_sets, villa_units, villa_area_sqm
		FROM building
		WHERE building_id = $1
	`
	row := db.QueryRow(query, buildingID)

	var b models.Building
	err := row.Scan(
		&b.BuildingID, &b.ProjectID, &b.Name, &b.ApplicationType, &b.TwinOfBuildingName, &b.SocietyID,
		&b.GFEntranceLobbyArea, &b.PassengerLifts, &b.PassengerFireLifts, &b.FiremenLifts,
		&b.StaircaseCount, &b.ParkingCount, &b.ParkingArea, &b.MechVentilation,
		&b.BoosterPumpKW, &b.SewagePumpKW, &b.WetRiserPumpKW,
		&b.PumpWorkingSets, &b.PumpStandbySets, &b.VillaUnits, &b.VillaAreaSqm,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch building %s: %w", buildingID, err)
	}
	return &b, nil
}

// FetchBuildingFloors loads the floor and flat tree for one building, floors
// ordered by sequence.
func FetchBuildingFloors(db *sql.DB, buildingID string) ([]models.Floor, error) {
	floorQuery := `
		SELECT floor_id, sequence, name, height_m, twin_of_floor_name, lobby_area
		FROM floor
		WHERE building_id = $1
		ORDER BY sequence
	`
	rows, err := db.Query(floorQuery, buildingID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch floors for building %s: %w", buildingID, err)
	}
	defer rows.Close()

	var floors []models.Floor
	for rows.Next() {
		var fl models.Floor
		if err := rows.Scan(&fl.FloorID, &fl.Sequence, &fl.Name, &fl.HeightM, &fl.TwinOfFloorName, &fl.LobbyArea); err != nil {
			return nil, fmt.Errorf("failed to scan floor: %w", err)
		}
		floors = append(floors, fl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	flatQuery := `
		SELECT flat_id, flat_type, area_sqm, count
		FROM flat
		WHERE floor_id = $1
		ORDER BY flat_type
	`
	for i := range floors {
		flatRows, err := db.Query(flatQuery, floors[i].FloorID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch flats for floor %s: %w", floors[i].FloorID, err)
		}
		for flatRows.Next() {
			var u models.Flat
			if err := flatRows.Scan(&u.FlatID, &u.FlatType, &u.AreaSqm, &u.Count); err != nil {
				flatRows.Close()
				return nil, fmt.Errorf("failed to scan flat: %w", err)
			}
			floors[i].Flats = append(floors[i].Flats, u)
		}
		flatRows.Close()
		if err := flatRows.Err(); err != nil {
			return nil, err
		}
	}

	return floors, nil
}

// FetchBuildingWithFloors loads one building together with its full
// floor/flat tree.
func FetchBuildingWithFloors(db *sql.DB, buildingID string) (*models.Building, error) {
	b, err := FetchBuilding(db, buildingID)
	if err != nil {
		return nil, err
	}
	floors, err := FetchBuildingFloors(db, buildingID)
	if err != nil {
		return nil, err
	}
	b.Floors = floors
	return b, nil
}

// FetchProjectBuildings loads every building of a project with its floor
// tree, ordered by name.
func FetchProjectBuildings(db *sql.DB, projectID int) ([]models.Building, error) {
	rows, err := db.Query(`SELECT building_id FROM building WHERE project_id = $1 ORDER BY name`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list buildings for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	buildings := make([]models.Building, 0, len(ids))
	for _, id := range ids {
		b, err := FetchBuildingWithFloors(db, id)
		if err != nil {
			return nil, err
		}
		buildings = append(buildings, *b)
	}
	return buildings, nil
}

// FetchProjectCode returns the short code used in RFI numbers and exports.
func FetchProjectCode(db *sql.DB, projectID int) (string, error) {
	var code string
	err := db.QueryRow(`SELECT code FROM project WHERE project_id = $1`, projectID).Scan(&code)
	if err != nil {
		return "", fmt.Errorf("failed to fetch project code for project %d: %w", projectID, err)
	}
	return code, nil
}
