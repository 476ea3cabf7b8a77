package models

import "time"

// Factor is one row of the regulatory standards table. Category key is the
// composite "{discipline}/{area}/{description}". Density is nil for
// fixed-load categories (pumps, lifts) that are not area-driven.
type Factor struct {
	Discipline    string   `json:"discipline" example:"Electrical"`
	Area          string   `json:"area" example:"Residential"`
	Description   string   `json:"description" example:"2BHK"`
	DensityWPerM2 *float64 `json:"density_w_per_m2,omitempty" example:"75"`
	MDF           float64  `json:"mdf" example:"0.6"`
	EDF           float64  `json:"edf" example:"0.2"`
	FDF           float64  `json:"fdf" example:"0"`
	Reference     string   `json:"reference" example:"MSEDCL Annexure-A Cl. 4.2"`
}

// Key returns the composite category key used for factor lookups.
func (f Factor) Key() string {
	return f.Discipline + "/" + f.Area + "/" + f.Description
}

// LoadItem is the elementary unit of calculation output. Exactly one of
// AreaSqm or ConnectedKW drives TCL; Count is informational for count-scaled
// items such as lifts and EV chargers.
type LoadItem struct {
	Description string   `json:"description" example:"2BHK flats"`
	AreaSqm     *float64 `json:"area_sqm,omitempty" example:"3400"`
	ConnectedKW *float64 `json:"connected_kw,omitempty"`
	Count       *int     `json:"count,omitempty" example:"40"`
	TCL         float64  `json:"tcl_kw" example:"255"`
	MaxDemand   float64  `json:"max_demand_kw" example:"153"`
	Essential   float64  `json:"essential_kw" example:"51"`
	Fire        float64  `json:"fire_kw" example:"0"`
	Reference   string   `json:"reference,omitempty" example:"MSEDCL Annexure-A Cl. 4.2"`
}

// LoadTotals carries the four summary axes at any rollup level.
type LoadTotals struct {
	TCL       float64 `json:"tcl_kw" example:"540.5"`
	MaxDemand float64 `json:"max_demand_kw" example:"362.2"`
	Essential float64 `json:"essential_kw" example:"120.8"`
	Fire      float64 `json:"fire_kw" example:"64.3"`
}

// LoadCategory is a named group of items with summed totals.
type LoadCategory struct {
	Name   string     `json:"name" example:"Flat Loads"`
	Items  []LoadItem `json:"items"`
	Totals LoadTotals `json:"totals"`
}

// BuildingBreakdown is the per-building calculation output. SimilarTo is set
// for twin buildings and names the parent whose layout was inherited.
type BuildingBreakdown struct {
	BuildingID      string         `json:"building_id" example:"b-1"`
	BuildingName    string         `json:"building_name" example:"Tower A"`
	ApplicationType string         `json:"application_type" example:"Residential"`
	SimilarTo       string         `json:"similar_to,omitempty" example:""`
	FloorCount      int            `json:"floor_count" example:"14"`
	TotalHeightM    float64        `json:"total_height_m" example:"42"`
	CarpetAreaSqm   float64        `json:"carpet_area_sqm" example:"9520"`
	Categories      []LoadCategory `json:"categories"`
	Totals          LoadTotals     `json:"totals"`
}

// BuildingTotals is one row of the per-building rollup table. A twin whose
// parent is in the same selection is excluded from the grand subtotal but its
// own numbers remain available for display.
type BuildingTotals struct {
	BuildingName         string     `json:"building_name" example:"Tower B"`
	SimilarTo            string     `json:"similar_to,omitempty" example:"Tower A"`
	Totals               LoadTotals `json:"totals"`
	ExcludedFromSubtotal bool       `json:"excluded_from_subtotal" example:"true"`
}

// GrandTotals is the project-level summary.
type GrandTotals struct {
	GrandTotalTCL      float64          `json:"grand_total_tcl_kw" example:"1650.4"`
	TotalMaxDemand     float64          `json:"total_max_demand_kw" example:"990.2"`
	TotalEssential     float64          `json:"total_essential_kw" example:"310.5"`
	TotalFire          float64          `json:"total_fire_kw" example:"140.2"`
	TransformerSizeKVA int              `json:"transformer_size_kva" example:"1101"`
	PowerFactor        float64          `json:"power_factor" example:"0.9"`
	PerBuilding        []BuildingTotals `json:"per_building"`
}

// ComplianceReport carries the advisory regulatory checks. A breach never
// invalidates the result; it is surfaced for human review.
type ComplianceReport struct {
	AreaType                  string   `json:"area_type" example:"URBAN"`
	OccupancyClass            string   `json:"occupancy_class" example:"Residential"`
	MinimumDensityWPerM2      float64  `json:"minimum_density_w_per_m2" example:"75"`
	MinimumRequiredKW         float64  `json:"minimum_required_kw" example:"750"`
	BelowMinimumLoad          bool     `json:"below_minimum_load" example:"false"`
	DTCThresholdKVA           float64  `json:"dtc_threshold_kva" example:"315"`
	DTCThresholdExceeded      bool     `json:"dtc_threshold_exceeded" example:"true"`
	SanctionedCeilingKW       float64  `json:"sanctioned_ceiling_kw" example:"150"`
	SanctionedCeilingExceeded bool     `json:"sanctioned_ceiling_exceeded" example:"true"`
	Notes                     []string `json:"notes,omitempty"`
}

// SelectedBuilding records how the normalizer resolved one selection entry,
// for traceability of twin groupings.
type SelectedBuilding struct {
	BuildingID   string `json:"building_id" example:"b-2"`
	BuildingName string `json:"building_name" example:"Tower B"`
	SimilarTo    string `json:"similar_to,omitempty" example:"Tower A"`
}

// CalculationResult is the complete, immutable output of one calculation run.
type CalculationResult struct {
	GeneratedAt          time.Time           `json:"generated_at" example:"2024-01-15T10:30:00Z"`
	Valid                bool                `json:"valid" example:"true"`
	InvalidReason        string              `json:"invalid_reason,omitempty" example:""`
	SelectedBuildings    []SelectedBuilding  `json:"selected_buildings"`
	BuildingBreakdowns   []BuildingBreakdown `json:"building_breakdowns"`
	SocietyCALoads       []LoadCategory      `json:"society_ca_loads"`
	Totals               GrandTotals         `json:"totals"`
	RegulatoryCompliance ComplianceReport    `json:"regulatory_compliance"`
	FactorsUsed          []Factor            `json:"factors_used"`
}

// ElectricalLoadRequest is the body of POST /api/electrical_load_calculate.
// Buildings and factors are loaded from the project; the request only selects
// and parameterizes.
type ElectricalLoadRequest struct {
	ProjectID         int           `json:"project_id" binding:"required" example:"1"`
	BuildingIDs       []string      `json:"building_ids" binding:"required"`
	SocietyCommon     SocietyCommon `json:"society_common"`
	AreaType          string        `json:"area_type" example:"URBAN"`
	OccupancyClass    string        `json:"occupancy_class" example:"Residential"`
	PowerFactor       float64       `json:"power_factor" example:"0.9"`
	SaveAs            string        `json:"save_as,omitempty" example:"Rev C - with EV chargers"`
	OverwriteExisting bool          `json:"overwrite_existing" example:"true"`
}
