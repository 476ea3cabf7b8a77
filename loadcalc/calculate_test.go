package loadcalc

import (
	"encoding/json"
	"fmt"
	"testing"

	"backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSociety() models.SocietyCommon {
	return models.SocietyCommon{
		HydrantPumpKW:   110,
		SprinklerPumpKW: 90,
		JockeyPumpKW:    7.5,
		ClubhouseArea:   500,
		StreetLightKW:   12,
		STPKW:           30,
		SecurityKW:      5,
		SmallPowerKW:    8,
		EVChargers: []models.EVChargerGroup{
			{ChargerType: EVChargerFast, Count: 2},
			{ChargerType: EVChargerSlow, Count: 10},
		},
	}
}

func defaultEngine(ids IDGenerator) *Engine {
	return NewEngine(NewFactorTable(DefaultFactors()), DefaultConfig(), ids)
}

// A deliberately minimal table so the transformer arithmetic is exact:
// 6 x 1000 sqm at 75 W/sqm with MDF 1.0 is 450 kW, ceil(450/0.9) = 500 kVA.
func transformerFixture() (*Engine, Input) {
	table := NewFactorTable([]models.Factor{
		{Discipline: DisciplineElectrical, Area: "Residential", Description: "2BHK", DensityWPerM2: density(75), MDF: 1.0},
	})
	eng := NewEngine(table, Config{PowerFactor: 0.9}, NewSequentialIDGenerator("gen"))
	in := Input{
		Buildings: []models.Building{{
			BuildingID:      "b-1",
			Name:            "Tower A",
			ApplicationType: "Residential",
			Floors: []models.Floor{{
				FloorID: "f-1", Name: "First Floor", HeightM: 3,
				Flats: []models.Flat{{FlatID: "u-1", FlatType: "2BHK", AreaSqm: 1000, Count: 6}},
			}},
		}},
		AreaType:       AreaTypeUrban,
		OccupancyClass: OccupancyResidential,
	}
	return eng, in
}

func TestCalculate_TransformerSizing(t *testing.T) {
	eng, in := transformerFixture()

	res, err := eng.Calculate(in)
	require.NoError(t, err)
	require.True(t, res.Valid)

	assert.InDelta(t, 450.0, res.Totals.GrandTotalTCL, 1e-9)
	assert.InDelta(t, 450.0, res.Totals.TotalMaxDemand, 1e-9)
	assert.Equal(t, 500, res.Totals.TransformerSizeKVA)
	assert.InDelta(t, 0.9, res.Totals.PowerFactor, 1e-9)

	// 6000 sqm carpet at the URBAN residential minimum of 75 W/sqm is exactly
	// 450 kW, which is not below.
	comp := res.RegulatoryCompliance
	assert.InDelta(t, 450.0, comp.MinimumRequiredKW, 1e-9)
	assert.False(t, comp.BelowMinimumLoad)
	assert.True(t, comp.DTCThresholdExceeded, "500 kVA is past the 315 kVA URBAN DTC threshold")
	assert.True(t, comp.SanctionedCeilingExceeded, "450 kW demand is past the 80 kW single-consumer ceiling")
	assert.InDelta(t, 80.0, comp.SanctionedCeilingKW, 1e-9)
}

func TestCalculate_Deterministic(t *testing.T) {
	run := func() *models.CalculationResult {
		eng := defaultEngine(NewSequentialIDGenerator("gen"))
		twin := models.Building{BuildingID: "b-Tower B", Name: "Tower B", TwinOfBuildingName: strPtr("Tower A")}
		res, err := eng.Calculate(Input{
			Buildings:      []models.Building{testTower("Tower A"), twin},
			Society:        testSociety(),
			AreaType:       AreaTypeMetro,
			OccupancyClass: OccupancyResidential,
		})
		require.NoError(t, err)
		return res
	}

	assert.Equal(t, run(), run(), "same input must yield a byte-identical result")
}

func TestCalculate_TwinBuildingEquivalence(t *testing.T) {
	eng := defaultEngine(NewSequentialIDGenerator("gen"))
	twin := models.Building{BuildingID: "b-Tower B", Name: "Tower B", TwinOfBuildingName: strPtr("Tower A")}

	resPair, err := eng.Calculate(Input{Buildings: []models.Building{testTower("Tower A"), twin}})
	require.NoError(t, err)
	require.True(t, resPair.Valid)
	require.Len(t, resPair.BuildingBreakdowns, 2)

	a, b := resPair.BuildingBreakdowns[0], resPair.BuildingBreakdowns[1]
	assert.Equal(t, "Tower A", b.SimilarTo)
	assert.Equal(t, a.Categories, b.Categories, "twin's itemized loads mirror the parent's")
	assert.Equal(t, a.Totals, b.Totals)

	// The twin reports but does not double-count while its parent is selected.
	require.Len(t, resPair.Totals.PerBuilding, 2)
	assert.False(t, resPair.Totals.PerBuilding[0].ExcludedFromSubtotal)
	assert.True(t, resPair.Totals.PerBuilding[1].ExcludedFromSubtotal)

	resSingle, err := defaultEngine(NewSequentialIDGenerator("gen")).Calculate(
		Input{Buildings: []models.Building{testTower("Tower A")}})
	require.NoError(t, err)
	assert.InDelta(t, resSingle.Totals.GrandTotalTCL, resPair.Totals.GrandTotalTCL, 1e-9)
	assert.InDelta(t, resSingle.Totals.TotalMaxDemand, resPair.Totals.TotalMaxDemand, 1e-9)
	assert.InDelta(t, resSingle.Totals.TotalFire, resPair.Totals.TotalFire, 1e-9)
}

func TestCalculate_TwinOnlySelectionMatchesParentOnly(t *testing.T) {
	parent := testTower("Tower A")
	twin := models.Building{BuildingID: "b-Tower B", Name: "Tower B", TwinOfBuildingName: strPtr("Tower A")}

	resParent, err := defaultEngine(NewSequentialIDGenerator("gen")).Calculate(
		Input{Buildings: []models.Building{parent}})
	require.NoError(t, err)

	resTwin, err := defaultEngine(NewSequentialIDGenerator("gen")).Calculate(
		Input{Buildings: []models.Building{twin}, ReferenceBuildings: []models.Building{parent}})
	require.NoError(t, err)
	require.True(t, resTwin.Valid)

	// With the parent outside the selection the twin carries the full load
	// itself; totals match a parent-only run exactly.
	require.Len(t, resTwin.Totals.PerBuilding, 1)
	assert.False(t, resTwin.Totals.PerBuilding[0].ExcludedFromSubtotal)
	assert.Equal(t, resParent.Totals.GrandTotalTCL, resTwin.Totals.GrandTotalTCL)
	assert.Equal(t, resParent.Totals.TotalMaxDemand, resTwin.Totals.TotalMaxDemand)
	assert.Equal(t, resParent.Totals.TransformerSizeKVA, resTwin.Totals.TransformerSizeKVA)
}

func TestCalculate_UnresolvedTwinFailsRun(t *testing.T) {
	eng := defaultEngine(NewSequentialIDGenerator("gen"))
	twin := models.Building{BuildingID: "b-Tower B", Name: "Tower B", TwinOfBuildingName: strPtr("Tower Z")}

	res, err := eng.Calculate(Input{Buildings: []models.Building{testTower("Tower A"), twin}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedTwin)
	assert.Nil(t, res)
}

func TestCalculate_MissingFactorFailsRun(t *testing.T) {
	eng := defaultEngine(NewSequentialIDGenerator("gen"))
	b := testTower("Tower A")
	b.Floors[0].Flats = append(b.Floors[0].Flats, models.Flat{FlatID: "u-x", FlatType: "4BHK", AreaSqm: 200, Count: 1})

	_, err := eng.Calculate(Input{Buildings: []models.Building{b}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingFactor)
	assert.Contains(t, err.Error(), "4BHK")
}

func TestCalculate_EmptySelectionInvalid(t *testing.T) {
	res, err := defaultEngine(nil).Calculate(Input{})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "no buildings selected", res.InvalidReason)
	assert.Equal(t, 0, res.Totals.TransformerSizeKVA)
}

func TestCalculate_AllZeroInputInvalid(t *testing.T) {
	eng := defaultEngine(NewSequentialIDGenerator("gen"))
	empty := models.Building{
		BuildingID:      "b-1",
		Name:            "Tower A",
		ApplicationType: "Residential",
		Floors:          []models.Floor{{FloorID: "f-1", Name: "First Floor"}},
	}

	res, err := eng.Calculate(Input{Buildings: []models.Building{empty}})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "all counts and areas are zero; nothing to compute", res.InvalidReason)
	assert.Equal(t, 0, res.Totals.TransformerSizeKVA)
}

func TestCalculate_TotalsAreSumOfItems(t *testing.T) {
	eng := defaultEngine(NewSequentialIDGenerator("gen"))
	res, err := eng.Calculate(Input{
		Buildings: []models.Building{testTower("Tower A"), testTower("Tower C")},
		Society:   testSociety(),
	})
	require.NoError(t, err)
	require.True(t, res.Valid)

	var tcl, md, ess, fire float64
	for _, bd := range res.BuildingBreakdowns {
		for _, cat := range bd.Categories {
			for _, it := range cat.Items {
				tcl += it.TCL
				md += it.MaxDemand
				ess += it.Essential
				fire += it.Fire
			}
		}
	}
	for _, cat := range res.SocietyCALoads {
		for _, it := range cat.Items {
			tcl += it.TCL
			md += it.MaxDemand
			ess += it.Essential
			fire += it.Fire
		}
	}

	assert.InDelta(t, tcl, res.Totals.GrandTotalTCL, 1e-6)
	assert.InDelta(t, md, res.Totals.TotalMaxDemand, 1e-6)
	assert.InDelta(t, ess, res.Totals.TotalEssential, 1e-6)
	assert.InDelta(t, fire, res.Totals.TotalFire, 1e-6)
}

func TestCalculate_MonotoneInFlatCount(t *testing.T) {
	base := testTower("Tower A")
	more := testTower("Tower A")
	more.Floors[0].Flats[0].Count++

	resBase, err := defaultEngine(NewSequentialIDGenerator("gen")).Calculate(Input{Buildings: []models.Building{base}})
	require.NoError(t, err)
	resMore, err := defaultEngine(NewSequentialIDGenerator("gen")).Calculate(Input{Buildings: []models.Building{more}})
	require.NoError(t, err)

	assert.Greater(t, resMore.Totals.GrandTotalTCL, resBase.Totals.GrandTotalTCL)
	assert.GreaterOrEqual(t, resMore.Totals.TotalMaxDemand, resBase.Totals.TotalMaxDemand)
	assert.GreaterOrEqual(t, resMore.Totals.TransformerSizeKVA, resBase.Totals.TransformerSizeKVA)
}

func TestCalculate_SocietyLoadsAndFactorAudit(t *testing.T) {
	eng := defaultEngine(NewSequentialIDGenerator("gen"))
	res, err := eng.Calculate(Input{
		Buildings: []models.Building{testTower("Tower A")},
		Society:   testSociety(),
	})
	require.NoError(t, err)
	require.True(t, res.Valid)

	names := make([]string, 0, len(res.SocietyCALoads))
	for _, cat := range res.SocietyCALoads {
		names = append(names, cat.Name)
	}
	assert.Equal(t, []string{CategoryFireFighting, CategorySocietyInfra}, names)

	// Fire pumps feed the fire circuit; jockey at MDF 1.0.
	fire := res.SocietyCALoads[0]
	assert.InDelta(t, 110+90+7.5, fire.Totals.TCL, 1e-9)
	assert.InDelta(t, 110+90+7.5, fire.Totals.Fire, 1e-9)

	// EV charger groups come out sorted by type regardless of input order.
	infra := res.SocietyCALoads[1]
	var evItems []models.LoadItem
	for _, it := range infra.Items {
		if it.Count != nil && (*it.Count == 2 || *it.Count == 10) {
			evItems = append(evItems, it)
		}
	}
	require.Len(t, evItems, 2)
	assert.Equal(t, "EV chargers (fast)", evItems[0].Description)
	assert.Equal(t, "EV chargers (slow)", evItems[1].Description)

	// Every consulted row is captured, sorted by composite key.
	require.NotEmpty(t, res.FactorsUsed)
	for i := 1; i < len(res.FactorsUsed); i++ {
		assert.Less(t, res.FactorsUsed[i-1].Key(), res.FactorsUsed[i].Key())
	}
	keys := map[string]bool{}
	for _, f := range res.FactorsUsed {
		keys[f.Key()] = true
	}
	assert.True(t, keys["Electrical/Residential/2BHK"])
	assert.True(t, keys["Fire/Society/Jockey Pump"])
}

func TestCalculate_ResultSurvivesJSONRoundTrip(t *testing.T) {
	eng := defaultEngine(NewSequentialIDGenerator("gen"))
	res, err := eng.Calculate(Input{
		Buildings: []models.Building{testTower("Tower A")},
		Society:   testSociety(),
		AreaType:  AreaTypeUrban,
	})
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var back models.CalculationResult
	require.NoError(t, json.Unmarshal(raw, &back))

	assert.Equal(t, res.Totals, back.Totals)
	assert.Equal(t, res.BuildingBreakdowns, back.BuildingBreakdowns)
	assert.Equal(t, res.SocietyCALoads, back.SocietyCALoads)
	assert.Equal(t, res.RegulatoryCompliance, back.RegulatoryCompliance)
	assert.Equal(t, res.FactorsUsed, back.FactorsUsed)
}

func TestCalculate_PressurizationKicksInAboveThreshold(t *testing.T) {
	tall := testTower("Tower A")
	// Ten more twin floors push the building past 24 m.
	for i := 3; i <= 12; i++ {
		tall.Floors = append(tall.Floors, models.Floor{
			FloorID: fmt.Sprintf("f-A-%d", i), Sequence: i,
			Name: "Upper", HeightM: 3, TwinOfFloorName: strPtr("First Floor"),
		})
	}

	short, err := defaultEngine(NewSequentialIDGenerator("gen")).Calculate(Input{Buildings: []models.Building{testTower("Tower A")}})
	require.NoError(t, err)
	tallRes, err := defaultEngine(NewSequentialIDGenerator("gen")).Calculate(Input{Buildings: []models.Building{tall}})
	require.NoError(t, err)

	hasVent := func(res *models.CalculationResult) bool {
		for _, cat := range res.BuildingBreakdowns[0].Categories {
			if cat.Name == CategoryVentilation {
				return true
			}
		}
		return false
	}
	assert.False(t, hasVent(short), "6 m building needs no pressurization")
	assert.True(t, hasVent(tallRes), "36 m building gets one fan per staircase")
}
