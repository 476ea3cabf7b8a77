// Package loadcalc implements the electrical load calculation engine: it
// walks a building -> floor -> flat hierarchy, applies MSEDCL-style load
// density and demand factors per category, and rolls itemized loads up into
// building, society and project totals. The package performs no I/O; callers
// materialize buildings and the factor table before invoking Calculate.
package loadcalc

import (
	"errors"
	"fmt"
	"sort"

	"backend/models"
)

var (
	// ErrUnresolvedTwin marks a twin building/floor reference that does not
	// resolve to an existing non-twin sibling.
	ErrUnresolvedTwin = errors.New("unresolved twin reference")
	// ErrMissingFactor marks a category present in the data with no matching
	// factor table row.
	ErrMissingFactor = errors.New("missing factor table entry")
	// ErrInvalidHierarchy marks structurally inconsistent input data.
	ErrInvalidHierarchy = errors.New("invalid hierarchy")
)

// Discipline/area constants for factor table keys.
const (
	DisciplineElectrical = "Electrical"
	DisciplineMechanical = "Mechanical"
	DisciplinePlumbing   = "Plumbing"
	DisciplineFire       = "Fire"

	AreaCommon         = "Common Area"
	AreaLifts          = "Lifts"
	AreaPressurization = "Pressurization"
	AreaVentilation    = "Ventilation"
	AreaPHE            = "PHE"
	AreaSociety        = "Society"
)

// FactorTable is a read-only lookup of factor rows keyed by the composite
// "{discipline}/{area}/{description}". It is safe to share across concurrent
// calculations.
type FactorTable struct {
	rows map[string]models.Factor
}

// NewFactorTable builds a table from rows. Later duplicates of the same key
// win, matching the standards table's latest-revision-wins convention.
func NewFactorTable(rows []models.Factor) FactorTable {
	m := make(map[string]models.Factor, len(rows))
	for _, r := range rows {
		m[r.Key()] = r
	}
	return FactorTable{rows: m}
}

// Lookup returns the factor for the composite key, if present.
func (t FactorTable) Lookup(discipline, area, description string) (models.Factor, bool) {
	f, ok := t.rows[discipline+"/"+area+"/"+description]
	return f, ok
}

// Len reports the number of rows in the table.
func (t FactorTable) Len() int { return len(t.rows) }

// Rows returns all factor rows sorted by composite key.
func (t FactorTable) Rows() []models.Factor {
	out := make([]models.Factor, 0, len(t.rows))
	for _, f := range t.rows {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Config carries the scalar configuration and sizing maps injected into the
// engine. All values are effectively constants per regulatory revision; they
// are injectable so tests can pin them.
type Config struct {
	PowerFactor float64

	// Fixed kW per lift class, keyed by LiftClass* constants.
	LiftKW map[string]float64

	// Fixed kW per EV charger type, keyed by charger type string.
	EVChargerKW map[string]float64

	// One staircase pressurization fan per staircase once the building
	// exceeds PressurizationHeightM.
	PressurizationFanKW   float64
	PressurizationHeightM float64

	// Mechanical (basement/parking) ventilation: one fan per
	// MechVentAreaPerFanSqm of parking area, rounded up.
	MechVentFanKW         float64
	MechVentAreaPerFanSqm float64
}

// Lift class keys for Config.LiftKW.
const (
	LiftClassPassenger     = "passenger"
	LiftClassPassengerFire = "passenger_fire"
	LiftClassFiremen       = "firemen"
)

// EV charger type keys for Config.EVChargerKW.
const (
	EVChargerSlow     = "slow"
	EVChargerStandard = "standard"
	EVChargerFast     = "fast"
	EVChargerDCFast   = "dc_fast"
)

// DefaultConfig returns the production configuration: 0.9 assumed power
// factor, standard lift motor ratings and AIS-138 charger ratings.
func DefaultConfig() Config {
	return Config{
		PowerFactor: 0.9,
		LiftKW: map[string]float64{
			LiftClassPassenger:     15.0,
			LiftClassPassengerFire: 18.5,
			LiftClassFiremen:       22.5,
		},
		EVChargerKW: map[string]float64{
			EVChargerSlow:     3.3,
			EVChargerStandard: 7.4,
			EVChargerFast:     22.0,
			EVChargerDCFast:   60.0,
		},
		PressurizationFanKW:   11.0,
		PressurizationHeightM: 24.0,
		MechVentFanKW:         7.5,
		MechVentAreaPerFanSqm: 1000.0,
	}
}

func density(w float64) *float64 { return &w }

// DefaultFactors returns the seed standards table used when a project has not
// customized its factors. Densities in W/m², demand ratios in [0,1].
func DefaultFactors() []models.Factor {
	return []models.Factor{
		// Flat loads by type
		{Discipline: DisciplineElectrical, Area: "Residential", Description: "1BHK", DensityWPerM2: density(75), MDF: 0.60, EDF: 0.10, FDF: 0, Reference: "MSEDCL residential norm 75 W/sqm"},
		{Discipline: DisciplineElectrical, Area: "Residential", Description: "2BHK", DensityWPerM2: density(75), MDF: 0.60, EDF: 0.10, FDF: 0, Reference: "MSEDCL residential norm 75 W/sqm"},
		{Discipline: DisciplineElectrical, Area: "Residential", Description: "3BHK", DensityWPerM2: density(75), MDF: 0.60, EDF: 0.10, FDF: 0, Reference: "MSEDCL residential norm 75 W/sqm"},
		{Discipline: DisciplineElectrical, Area: "Villa", Description: "Villa", DensityWPerM2: density(75), MDF: 0.60, EDF: 0.10, FDF: 0, Reference: "MSEDCL residential norm 75 W/sqm"},
		{Discipline: DisciplineElectrical, Area: "Commercial", Description: "Shop", DensityWPerM2: density(150), MDF: 0.70, EDF: 0.20, FDF: 0, Reference: "MSEDCL commercial norm 150 W/sqm"},
		{Discipline: DisciplineElectrical, Area: "Commercial", Description: "Office", DensityWPerM2: density(150), MDF: 0.70, EDF: 0.20, FDF: 0, Reference: "MSEDCL commercial norm 150 W/sqm"},

		// Common area lighting
		{Discipline: DisciplineElectrical, Area: AreaCommon, Description: "Entrance Lobby", DensityWPerM2: density(10), MDF: 0.90, EDF: 1.00, FDF: 0, Reference: "NBC 2016 Part 8, lobby lighting"},
		{Discipline: DisciplineElectrical, Area: AreaCommon, Description: "Typical Lobby", DensityWPerM2: density(8), MDF: 0.90, EDF: 1.00, FDF: 0, Reference: "NBC 2016 Part 8, lobby lighting"},
		{Discipline: DisciplineElectrical, Area: AreaCommon, Description: "Parking", DensityWPerM2: density(5), MDF: 0.80, EDF: 0.50, FDF: 0, Reference: "NBC 2016 Part 8, covered parking"},

		// Lifts: passenger lifts ride essential supply only, fire lifts feed
		// the fire circuit at full weight.
		{Discipline: DisciplineElectrical, Area: AreaLifts, Description: "Passenger Lift", MDF: 0.70, EDF: 1.00, FDF: 0, Reference: "IS 14665 duty cycle"},
		{Discipline: DisciplineElectrical, Area: AreaLifts, Description: "Passenger cum Fire Lift", MDF: 0.70, EDF: 1.00, FDF: 1.00, Reference: "NBC 2016 Part 4, fire lift"},
		{Discipline: DisciplineElectrical, Area: AreaLifts, Description: "Firemen Lift", MDF: 0.70, EDF: 1.00, FDF: 1.00, Reference: "NBC 2016 Part 4, firemen evacuation lift"},

		// Mechanical
		{Discipline: DisciplineMechanical, Area: AreaPressurization, Description: "Staircase Pressurization Fan", MDF: 1.00, EDF: 1.00, FDF: 1.00, Reference: "NBC 2016 Part 4, staircase pressurization above 24m"},
		{Discipline: DisciplineMechanical, Area: AreaVentilation, Description: "Basement Ventilation Fan", MDF: 0.80, EDF: 1.00, FDF: 1.00, Reference: "NBC 2016 Part 8, basement smoke extraction"},

		// Plumbing (building level)
		{Discipline: DisciplinePlumbing, Area: AreaPHE, Description: "Booster Pump", MDF: 0.80, EDF: 1.00, FDF: 0, Reference: "CPHEEO manual, domestic water boosting"},
		{Discipline: DisciplinePlumbing, Area: AreaPHE, Description: "Sewage Pump", MDF: 0.80, EDF: 1.00, FDF: 0, Reference: "CPHEEO manual, sewage pumping"},
		{Discipline: DisciplinePlumbing, Area: AreaPHE, Description: "Wet Riser Pump", MDF: 0.50, EDF: 1.00, FDF: 1.00, Reference: "IS 3844, wet riser installation"},

		// Fire fighting (society level)
		{Discipline: DisciplineFire, Area: AreaSociety, Description: "Main Hydrant Pump", MDF: 0.50, EDF: 1.00, FDF: 1.00, Reference: "IS 13039 hydrant system"},
		{Discipline: DisciplineFire, Area: AreaSociety, Description: "Sprinkler Pump", MDF: 0.50, EDF: 1.00, FDF: 1.00, Reference: "IS 15105 sprinkler system"},
		{Discipline: DisciplineFire, Area: AreaSociety, Description: "Jockey Pump", MDF: 1.00, EDF: 1.00, FDF: 1.00, Reference: "IS 13039, pressure maintenance"},

		// Society infrastructure
		{Discipline: DisciplineElectrical, Area: AreaSociety, Description: "Clubhouse", DensityWPerM2: density(60), MDF: 0.70, EDF: 0.30, FDF: 0, Reference: "NBC 2016, assembly occupancy"},
		{Discipline: DisciplineElectrical, Area: AreaSociety, Description: "Street Lighting", MDF: 0.90, EDF: 1.00, FDF: 0, Reference: "IS 1944 street lighting"},
		{Discipline: DisciplineElectrical, Area: AreaSociety, Description: "EV Charger", MDF: 0.50, EDF: 0, FDF: 0, Reference: "MSEDCL EV tariff circular"},
		{Discipline: DisciplineElectrical, Area: AreaSociety, Description: "STP", MDF: 0.80, EDF: 0.50, FDF: 0, Reference: "CPHEEO manual, sewage treatment"},
		{Discipline: DisciplineElectrical, Area: AreaSociety, Description: "Security", MDF: 1.00, EDF: 1.00, FDF: 0, Reference: "CCTV, boom barriers, intercom"},
		{Discipline: DisciplineElectrical, Area: AreaSociety, Description: "Small Power", MDF: 0.60, EDF: 0.20, FDF: 0, Reference: "Society office and maintenance sockets"},
	}
}

// requireFactor is the common lookup for evaluators: a category present in the
// data without its factor row is a configuration error.
func (t FactorTable) requireFactor(discipline, area, description string) (models.Factor, error) {
	f, ok := t.Lookup(discipline, area, description)
	if !ok {
		return models.Factor{}, fmt.Errorf("%w: %s/%s/%s", ErrMissingFactor, discipline, area, description)
	}
	return f, nil
}
