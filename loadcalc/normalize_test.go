package loadcalc

import (
	"testing"

	"backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func testTower(name string) models.Building {
	return models.Building{
		BuildingID:      "b-" + name,
		Name:            name,
		ApplicationType: "Residential",
		StaircaseCount:  2,
		PassengerLifts:  2,
		FiremenLifts:    1,
		BoosterPumpKW:   7.5,
		PumpWorkingSets: 1,
		PumpStandbySets: 1,
		Floors: []models.Floor{
			{
				FloorID:   "f-" + name + "-1",
				Sequence:  1,
				Name:      "First Floor",
				HeightM:   3.0,
				LobbyArea: 40,
				Flats: []models.Flat{
					{FlatID: "u-" + name + "-1", FlatType: "2BHK", AreaSqm: 85, Count: 4},
					{FlatID: "u-" + name + "-2", FlatType: "3BHK", AreaSqm: 120, Count: 2},
				},
			},
			{
				FloorID:         "f-" + name + "-2",
				Sequence:        2,
				Name:            "Second Floor",
				HeightM:         3.0,
				TwinOfFloorName: strPtr("First Floor"),
			},
		},
	}
}

func TestNormalizeHierarchy_DerivedGeometry(t *testing.T) {
	ids := NewSequentialIDGenerator("gen")

	effective, err := NormalizeHierarchy([]models.Building{testTower("A")}, nil, ids)
	require.NoError(t, err)
	require.Len(t, effective, 1)

	eb := effective[0]
	assert.Equal(t, 2, eb.FloorCount)
	assert.InDelta(t, 6.0, eb.TotalHeightM, 1e-9)
	// (85*4 + 120*2) per floor, two floors
	assert.InDelta(t, 1160.0, eb.CarpetAreaSqm, 1e-9)
	assert.Empty(t, eb.SimilarTo)
}

func TestNormalizeHierarchy_TwinFloorClonesParentFlats(t *testing.T) {
	ids := NewSequentialIDGenerator("gen")

	effective, err := NormalizeHierarchy([]models.Building{testTower("A")}, nil, ids)
	require.NoError(t, err)

	floors := effective[0].Floors
	require.Len(t, floors, 2)
	require.Len(t, floors[1].Flats, 2)

	for i := range floors[0].Flats {
		parent, clone := floors[0].Flats[i], floors[1].Flats[i]
		assert.Equal(t, parent.FlatType, clone.FlatType)
		assert.Equal(t, parent.AreaSqm, clone.AreaSqm)
		assert.Equal(t, parent.Count, clone.Count)
		assert.NotEqual(t, parent.FlatID, clone.FlatID, "clone must get a fresh identity")
	}
	assert.InDelta(t, floors[0].HeightM, floors[1].HeightM, 1e-9, "twin floor inherits height")
}

func TestNormalizeHierarchy_TwinBuilding(t *testing.T) {
	parent := testTower("Tower A")
	twin := models.Building{
		BuildingID:         "b-Tower B",
		Name:               "Tower B",
		TwinOfBuildingName: strPtr("Tower A"),
	}

	effective, err := NormalizeHierarchy([]models.Building{parent, twin}, nil, NewSequentialIDGenerator("gen"))
	require.NoError(t, err)
	require.Len(t, effective, 2)

	a, b := effective[0], effective[1]
	assert.Equal(t, "Tower A", b.SimilarTo)
	assert.Equal(t, a.FloorCount, b.FloorCount)
	assert.InDelta(t, a.TotalHeightM, b.TotalHeightM, 1e-9)
	assert.InDelta(t, a.CarpetAreaSqm, b.CarpetAreaSqm, 1e-9)
	assert.Equal(t, a.PassengerLifts, b.PassengerLifts)
	assert.Equal(t, a.BoosterPumpKW, b.BoosterPumpKW)

	// Same layout, fresh identities.
	for i := range a.Floors {
		assert.NotEqual(t, a.Floors[i].FloorID, b.Floors[i].FloorID)
	}
}

func TestNormalizeHierarchy_TwinResolvesAgainstPool(t *testing.T) {
	parent := testTower("Tower A")
	twin := models.Building{
		BuildingID:         "b-Tower B",
		Name:               "Tower B",
		TwinOfBuildingName: strPtr("Tower A"),
	}

	// Only the twin is selected; the parent is available in the project pool.
	effective, err := NormalizeHierarchy([]models.Building{twin}, []models.Building{parent}, NewSequentialIDGenerator("gen"))
	require.NoError(t, err)
	require.Len(t, effective, 1)
	assert.Equal(t, "Tower A", effective[0].SimilarTo)
	assert.InDelta(t, 1160.0, effective[0].CarpetAreaSqm, 1e-9)
}

func TestNormalizeHierarchy_UnresolvedTwinBuilding(t *testing.T) {
	twin := models.Building{
		BuildingID:         "b-Tower B",
		Name:               "Tower B",
		TwinOfBuildingName: strPtr("Tower Z"),
	}

	_, err := NormalizeHierarchy([]models.Building{testTower("Tower A"), twin}, nil, NewSequentialIDGenerator("gen"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedTwin)
	assert.Contains(t, err.Error(), "Tower Z")
}

func TestNormalizeHierarchy_UnresolvedTwinFloor(t *testing.T) {
	b := testTower("Tower A")
	b.Floors[1].TwinOfFloorName = strPtr("Mezzanine")

	_, err := NormalizeHierarchy([]models.Building{b}, nil, NewSequentialIDGenerator("gen"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedTwin)
	assert.Contains(t, err.Error(), "Mezzanine")
}

func TestNormalizeHierarchy_TwinBuildingWithOwnFloors(t *testing.T) {
	parent := testTower("Tower A")
	twin := testTower("Tower B")
	twin.TwinOfBuildingName = strPtr("Tower A")

	_, err := NormalizeHierarchy([]models.Building{parent, twin}, nil, NewSequentialIDGenerator("gen"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidHierarchy)
}

func TestNormalizeHierarchy_TwinFloorFlatMismatch(t *testing.T) {
	b := testTower("Tower A")
	// The twin floor carries stale mirror entries: parent has two flat
	// groups, the twin only one.
	b.Floors[1].Flats = []models.Flat{
		{FlatID: "u-stale", FlatType: "2BHK", AreaSqm: 85, Count: 4},
	}

	_, err := NormalizeHierarchy([]models.Building{b}, nil, NewSequentialIDGenerator("gen"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidHierarchy)
	assert.Contains(t, err.Error(), "re-sync")
}

func TestNormalizeHierarchy_TwinFloorPairsByTypeNotPosition(t *testing.T) {
	b := testTower("Tower A")
	// Mirror entries present but listed in the opposite order to the parent;
	// (type, ordinal) pairing must still line them up.
	b.Floors[1].Flats = []models.Flat{
		{FlatID: "u-m2", FlatType: "3BHK"},
		{FlatID: "u-m1", FlatType: "2BHK"},
	}

	effective, err := NormalizeHierarchy([]models.Building{b}, nil, NewSequentialIDGenerator("gen"))
	require.NoError(t, err)

	flats := effective[0].Floors[1].Flats
	require.Len(t, flats, 2)
	assert.Equal(t, "2BHK", flats[0].FlatType)
	assert.InDelta(t, 85.0, flats[0].AreaSqm, 1e-9)
	assert.Equal(t, 4, flats[0].Count)
	assert.Equal(t, "u-m1", flats[0].FlatID, "twin keeps its own identity")
	assert.Equal(t, "3BHK", flats[1].FlatType)
	assert.InDelta(t, 120.0, flats[1].AreaSqm, 1e-9)
}

func TestSequentialIDGenerator(t *testing.T) {
	g := NewSequentialIDGenerator("x")
	assert.Equal(t, "x-1", g.NewID())
	assert.Equal(t, "x-2", g.NewID())
}
