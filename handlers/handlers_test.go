package handlers

import (
	"encoding/json"
	"testing"

	"backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFloorScheduleRow(t *testing.T) {
	tests := []struct {
		name    string
		record  []string
		want    floorScheduleRow
		wantErr string
	}{
		{
			name:   "flat row",
			record: []string{"First Floor", "1", "3.0", "45", "", "2BHK", "85", "4"},
			want: floorScheduleRow{
				FloorName: "First Floor", Sequence: 1, HeightM: 3.0, LobbyArea: 45,
				FlatType: "2BHK", FlatAreaSqm: 85, FlatCount: 4,
			},
		},
		{
			name:   "twin row without flats",
			record: []string{"Second Floor", "2", "3.0", "", "First Floor", "", "", ""},
			want: floorScheduleRow{
				FloorName: "Second Floor", Sequence: 2, HeightM: 3.0,
				TwinOfFloorName: "First Floor",
			},
		},
		{
			name:    "too few columns",
			record:  []string{"First Floor", "1", "3.0"},
			wantErr: "expected 8 columns",
		},
		{
			name:    "missing floor name",
			record:  []string{"", "1", "3.0", "45", "", "2BHK", "85", "4"},
			wantErr: "floor name is required",
		},
		{
			name:    "bad sequence",
			record:  []string{"First Floor", "one", "3.0", "45", "", "2BHK", "85", "4"},
			wantErr: "invalid sequence",
		},
		{
			name:    "twin row listing flats",
			record:  []string{"Second Floor", "2", "3.0", "45", "First Floor", "2BHK", "85", "4"},
			wantErr: "twin floors must not list flats",
		},
		{
			name:    "bad flat count",
			record:  []string{"First Floor", "1", "3.0", "45", "", "2BHK", "85", "four"},
			wantErr: "invalid flat count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFloorScheduleRow(tt.record, 2)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScheduleRows(t *testing.T) {
	area := 3400.0
	count := 3
	result := &models.CalculationResult{
		BuildingBreakdowns: []models.BuildingBreakdown{
			{
				BuildingName: "Tower A",
				Categories: []models.LoadCategory{
					{
						Name: "Flat Loads",
						Items: []models.LoadItem{
							{Description: "2BHK flats", AreaSqm: &area, TCL: 255, MaxDemand: 153, Essential: 51, Reference: "Annexure-A"},
						},
					},
					{
						Name: "Lifts",
						Items: []models.LoadItem{
							{Description: "Passenger lifts", Count: &count, TCL: 45, MaxDemand: 45, Essential: 45},
						},
					},
				},
			},
		},
		SocietyCALoads: []models.LoadCategory{
			{
				Name: "Fire Fighting (Society)",
				Items: []models.LoadItem{
					{Description: "Main hydrant pump", TCL: 55, MaxDemand: 55, Fire: 55},
				},
			},
		},
	}

	rows := scheduleRows(result)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Len(t, row, len(scheduleHeader))
	}

	assert.Equal(t, []string{"Tower A", "Flat Loads", "2BHK flats", "3400.00", "", "255.00", "153.00", "51.00", "0.00", "Annexure-A"}, rows[0])
	assert.Equal(t, []string{"Tower A", "Lifts", "Passenger lifts", "", "3", "45.00", "45.00", "45.00", "0.00", ""}, rows[1])
	assert.Equal(t, []string{"Society", "Fire Fighting (Society)", "Main hydrant pump", "", "", "55.00", "55.00", "0.00", "55.00", ""}, rows[2])
}

func TestBuildingCategoryLoads(t *testing.T) {
	result := &models.CalculationResult{
		BuildingBreakdowns: []models.BuildingBreakdown{
			{
				BuildingID:    "b-1",
				BuildingName:  "Tower A",
				FloorCount:    14,
				TotalHeightM:  42,
				CarpetAreaSqm: 9520,
				Categories: []models.LoadCategory{
					{Name: "Flat Loads"},
					{Name: "Lifts"},
				},
			},
			{
				BuildingID:   "b-2",
				BuildingName: "Tower B",
				SimilarTo:    "Tower A",
				Categories: []models.LoadCategory{
					{Name: "Flat Loads"},
				},
			},
		},
	}

	loads := buildingCategoryLoads(result)
	require.Len(t, loads, 2)
	require.Len(t, loads["Tower A"], 2)
	assert.Equal(t, "Flat Loads", loads["Tower A"][0].Name)
	assert.Equal(t, "Lifts", loads["Tower A"][1].Name)
	require.Len(t, loads["Tower B"], 1)

	// The category map and the breakdown list serialize differently: the map
	// carries no geometry fields, only per-category load data.
	mapJSON, err := json.Marshal(loads)
	require.NoError(t, err)
	breakdownJSON, err := json.Marshal(result.BuildingBreakdowns)
	require.NoError(t, err)
	assert.NotEqual(t, string(mapJSON), string(breakdownJSON))
	assert.NotContains(t, string(mapJSON), "carpet_area_sqm")
}

func TestFormatOptHelpers(t *testing.T) {
	assert.Equal(t, "", formatOptFloat(nil))
	v := 12.5
	assert.Equal(t, "12.50", formatOptFloat(&v))

	assert.Equal(t, "", formatOptInt(nil))
	n := 7
	assert.Equal(t, "7", formatOptInt(&n))
}

func TestSanitizeHTML(t *testing.T) {
	out := sanitizeHTML(`<p onclick="steal()">Hello <b>{{user_name}}</b></p><script>alert(1)</script>`)

	assert.Contains(t, out, "Hello <b>{{user_name}}</b>")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "alert(1)")

	out = sanitizeHTML(`<a href="https://example.com" style="color:red">link</a>`)
	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, `style="color:red"`)
}
