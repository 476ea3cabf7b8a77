package loadcalc

import (
	"testing"

	"backend/models"
	"github.com/stretchr/testify/assert"
)

func TestMinimumDensityTable(t *testing.T) {
	// Residential minimum is uniform; commercial steps up in metro areas.
	assert.InDelta(t, 75.0, minimumDensityWPerM2(AreaTypeRural, OccupancyResidential), 1e-9)
	assert.InDelta(t, 75.0, minimumDensityWPerM2(AreaTypeMetro, OccupancyResidential), 1e-9)
	assert.InDelta(t, 150.0, minimumDensityWPerM2(AreaTypeUrban, OccupancyCommercial), 1e-9)
	assert.InDelta(t, 200.0, minimumDensityWPerM2(AreaTypeMetro, OccupancyCommercial), 1e-9)
	assert.InDelta(t, 200.0, minimumDensityWPerM2(AreaTypeMajorCities, OccupancyCommercial), 1e-9)
}

func TestDTCThresholdTable(t *testing.T) {
	assert.InDelta(t, 100.0, dtcThresholdKVA(AreaTypeRural), 1e-9)
	assert.InDelta(t, 315.0, dtcThresholdKVA(AreaTypeUrban), 1e-9)
	assert.InDelta(t, 500.0, dtcThresholdKVA(AreaTypeMetro), 1e-9)
	assert.InDelta(t, 500.0, dtcThresholdKVA(AreaTypeMajorCities), 1e-9)
	assert.InDelta(t, 315.0, dtcThresholdKVA("unknown"), 1e-9, "unknown area types fall back to URBAN")
}

func TestCheckCompliance_MinimumLoad(t *testing.T) {
	// 10,000 sqm URBAN residential: minimum is 750 kW.
	totals := models.GrandTotals{
		GrandTotalTCL:  500,
		TotalMaxDemand: 300,
		PerBuilding:    make([]models.BuildingTotals, 2),
	}
	rep := checkCompliance(AreaTypeUrban, OccupancyResidential, 10000, totals)
	assert.InDelta(t, 750.0, rep.MinimumRequiredKW, 1e-9)
	assert.True(t, rep.BelowMinimumLoad)
	assert.NotEmpty(t, rep.Notes)

	// At exactly the minimum the flag must not fire.
	totals.GrandTotalTCL = 750
	rep = checkCompliance(AreaTypeUrban, OccupancyResidential, 10000, totals)
	assert.False(t, rep.BelowMinimumLoad)
}

func TestCheckCompliance_DTCThreshold(t *testing.T) {
	totals := models.GrandTotals{
		GrandTotalTCL:  400,
		TotalMaxDemand: 120,
		PerBuilding:    make([]models.BuildingTotals, 2),
	}
	totals.TransformerSizeKVA = 400

	rep := checkCompliance(AreaTypeUrban, OccupancyResidential, 1000, totals)
	assert.True(t, rep.DTCThresholdExceeded, "400 kVA past the 315 kVA URBAN limit")

	rep = checkCompliance(AreaTypeMetro, OccupancyResidential, 1000, totals)
	assert.False(t, rep.DTCThresholdExceeded, "METRO allows up to 500 kVA")
}

func TestCheckCompliance_SanctionedCeiling(t *testing.T) {
	single := models.GrandTotals{
		TotalMaxDemand: 90,
		PerBuilding:    make([]models.BuildingTotals, 1),
	}
	rep := checkCompliance(AreaTypeUrban, OccupancyResidential, 0, single)
	assert.InDelta(t, 80.0, rep.SanctionedCeilingKW, 1e-9)
	assert.True(t, rep.SanctionedCeilingExceeded)

	multi := single
	multi.PerBuilding = make([]models.BuildingTotals, 2)
	rep = checkCompliance(AreaTypeUrban, OccupancyResidential, 0, multi)
	assert.InDelta(t, 150.0, rep.SanctionedCeilingKW, 1e-9)
	assert.False(t, rep.SanctionedCeilingExceeded, "90 kW across two buildings stays under 150 kW")
}

func TestCheckCompliance_Defaults(t *testing.T) {
	rep := checkCompliance("", "", 100, models.GrandTotals{GrandTotalTCL: 50})
	assert.Equal(t, AreaTypeUrban, rep.AreaType)
	assert.Equal(t, OccupancyResidential, rep.OccupancyClass)
}
