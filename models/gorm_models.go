package models

import (
	"time"
)

// GORM-compatible models with proper tags

// CalculationStandardGorm represents the calculation_standards table with GORM
// tags. One row per factor category; the composite of discipline/area/
// description must be unique.
type CalculationStandardGorm struct {
	ID            uint      `gorm:"primaryKey;column:id" json:"id"`
	Discipline    string    `gorm:"column:discipline;not null;uniqueIndex:idx_standard_key" json:"discipline"`
	Area          string    `gorm:"column:area;not null;uniqueIndex:idx_standard_key" json:"area"`
	Description   string    `gorm:"column:description;not null;uniqueIndex:idx_standard_key" json:"description"`
	DensityWPerM2 *float64  `gorm:"column:density_w_per_m2;type:numeric(10,2)" json:"density_w_per_m2,omitempty"`
	MDF           float64   `gorm:"column:mdf;type:numeric(5,3);not null" json:"mdf"`
	EDF           float64   `gorm:"column:edf;type:numeric(5,3);not null" json:"edf"`
	FDF           float64   `gorm:"column:fdf;type:numeric(5,3);not null" json:"fdf"`
	Reference     string    `gorm:"column:reference" json:"reference"`
	CreatedBy     string    `gorm:"column:created_by" json:"created_by"`
	CreatedAt     time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName specifies the table name for CalculationStandardGorm
func (CalculationStandardGorm) TableName() string {
	return "calculation_standards"
}

// ToFactor converts a standards row into the calculation-facing Factor.
func (s CalculationStandardGorm) ToFactor() Factor {
	return Factor{
		Discipline:    s.Discipline,
		Area:          s.Area,
		Description:   s.Description,
		DensityWPerM2: s.DensityWPerM2,
		MDF:           s.MDF,
		EDF:           s.EDF,
		FDF:           s.FDF,
		Reference:     s.Reference,
	}
}

// SavedCalculationGorm represents the saved_calculations table with GORM tags.
// The JSON columns store the CalculationResult sections verbatim; a save is
// always a full overwrite of a named record, never a field-level patch.
type SavedCalculationGorm struct {
	ID                 uint      `gorm:"primaryKey;column:id" json:"id"`
	ProjectID          int       `gorm:"column:project_id;not null;index" json:"project_id"`
	Name               string    `gorm:"column:name;not null" json:"name"`
	AreaType           string    `gorm:"column:area_type;not null" json:"area_type"`
	BuildingCALoads    []byte    `gorm:"column:building_ca_loads;type:jsonb" json:"building_ca_loads"`
	SocietyCALoads     []byte    `gorm:"column:society_ca_loads;type:jsonb" json:"society_ca_loads"`
	TotalLoads         []byte    `gorm:"column:total_loads;type:jsonb" json:"total_loads"`
	BuildingBreakdowns []byte    `gorm:"column:building_breakdowns;type:jsonb" json:"building_breakdowns"`
	ResultJSON         []byte    `gorm:"column:result_json;type:jsonb" json:"result_json"`
	CreatedBy          string    `gorm:"column:created_by" json:"created_by"`
	CreatedAt          time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName specifies the table name for SavedCalculationGorm
func (SavedCalculationGorm) TableName() string {
	return "saved_calculations"
}
