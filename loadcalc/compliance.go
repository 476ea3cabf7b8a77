package loadcalc

import (
	"fmt"

	"backend/models"
)

// Area type classification per the MSEDCL supply-area schedule.
const (
	AreaTypeRural       = "RURAL"
	AreaTypeUrban       = "URBAN"
	AreaTypeMetro       = "METRO"
	AreaTypeMajorCities = "MAJOR_CITIES"
)

// Occupancy classes for the minimum-density table.
const (
	OccupancyResidential = "Residential"
	OccupancyCommercial  = "Commercial"
)

// Sanctioned-load ceilings for LT supply; demand beyond the ceiling requires
// an HT connection. Fixed constants per the current regulatory revision.
const (
	singleConsumerCeilingKW = 80.0
	multiConsumerCeilingKW  = 150.0
)

// minimumDensityWPerM2 returns the carpet-area minimum load density for the
// area type and occupancy class.
func minimumDensityWPerM2(areaType, occupancy string) float64 {
	if occupancy == OccupancyCommercial {
		switch areaType {
		case AreaTypeMetro, AreaTypeMajorCities:
			return 200
		default:
			return 150
		}
	}
	// Residential minimum is uniform across area types.
	return 75
}

// dtcThresholdKVA returns the kVA above which a dedicated DTC/substation is
// required for the area type.
func dtcThresholdKVA(areaType string) float64 {
	switch areaType {
	case AreaTypeRural:
		return 100
	case AreaTypeUrban:
		return 315
	case AreaTypeMetro, AreaTypeMajorCities:
		return 500
	default:
		return 315
	}
}

// checkCompliance cross-checks the aggregate totals against the area-type
// rules. Every check is advisory: a breach is flagged for human review, never
// blocks the calculation.
func checkCompliance(areaType, occupancy string, carpetAreaSqm float64, totals models.GrandTotals) models.ComplianceReport {
	if areaType == "" {
		areaType = AreaTypeUrban
	}
	if occupancy == "" {
		occupancy = OccupancyResidential
	}

	rep := models.ComplianceReport{
		AreaType:       areaType,
		OccupancyClass: occupancy,
	}

	rep.MinimumDensityWPerM2 = minimumDensityWPerM2(areaType, occupancy)
	rep.MinimumRequiredKW = round2(carpetAreaSqm * rep.MinimumDensityWPerM2 / 1000.0)
	rep.BelowMinimumLoad = totals.GrandTotalTCL < rep.MinimumRequiredKW
	if rep.BelowMinimumLoad {
		rep.Notes = append(rep.Notes, fmt.Sprintf(
			"connected load %.2f kW is below the %s minimum of %.2f kW (%.0f W/m² over %.0f m² carpet area); the utility will sanction the minimum",
			totals.GrandTotalTCL, areaType, rep.MinimumRequiredKW, rep.MinimumDensityWPerM2, carpetAreaSqm))
	}

	// DTC sizing uses the after-diversity kVA, never the billing-facing TCL.
	rep.DTCThresholdKVA = dtcThresholdKVA(areaType)
	rep.DTCThresholdExceeded = float64(totals.TransformerSizeKVA) > rep.DTCThresholdKVA
	if rep.DTCThresholdExceeded {
		rep.Notes = append(rep.Notes, fmt.Sprintf(
			"derived transformer size %d kVA exceeds the %s DTC threshold of %.0f kVA; a dedicated substation is required",
			totals.TransformerSizeKVA, areaType, rep.DTCThresholdKVA))
	}

	rep.SanctionedCeilingKW = multiConsumerCeilingKW
	if len(totals.PerBuilding) == 1 {
		rep.SanctionedCeilingKW = singleConsumerCeilingKW
	}
	rep.SanctionedCeilingExceeded = totals.TotalMaxDemand > rep.SanctionedCeilingKW
	if rep.SanctionedCeilingExceeded {
		rep.Notes = append(rep.Notes, fmt.Sprintf(
			"maximum demand %.2f kW exceeds the LT sanctioned-load ceiling of %.0f kW; an HT connection is required",
			totals.TotalMaxDemand, rep.SanctionedCeilingKW))
	}

	return rep
}
