package loadcalc

import (
	"math"

	"backend/models"
	"github.com/google/uuid"
)

// UUIDGenerator is the production IDGenerator.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// Input is one calculation request, fully materialized: the selected
// buildings with their floor/flat trees, the society-level common inputs and
// the scalar classification.
type Input struct {
	Buildings []models.Building

	// ReferenceBuildings are the project's remaining buildings, available
	// for twin resolution when a twin is selected without its parent. They
	// contribute no loads of their own.
	ReferenceBuildings []models.Building

	Society        models.SocietyCommon
	AreaType       string
	OccupancyClass string
}

// Engine evaluates electrical load calculations. It is stateless across
// invocations; the factor table and config are read-only, so one Engine may
// serve concurrent calculations.
type Engine struct {
	factors FactorTable
	cfg     Config
	ids     IDGenerator
}

func NewEngine(factors FactorTable, cfg Config, ids IDGenerator) *Engine {
	if cfg.PowerFactor <= 0 {
		cfg.PowerFactor = DefaultConfig().PowerFactor
	}
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Engine{factors: factors, cfg: cfg, ids: ids}
}

// Calculate runs the full pipeline: normalize -> evaluate categories ->
// aggregate -> compliance. Configuration errors (unresolved twins, missing
// factor rows) fail the whole run; an input with nothing to compute returns a
// result flagged invalid rather than a silently-zero one.
func (e *Engine) Calculate(in Input) (*models.CalculationResult, error) {
	result := &models.CalculationResult{
		SocietyCALoads: []models.LoadCategory{},
	}
	result.Totals.PowerFactor = e.cfg.PowerFactor

	if len(in.Buildings) == 0 {
		result.Valid = false
		result.InvalidReason = "no buildings selected"
		return result, nil
	}

	effective, err := NormalizeHierarchy(in.Buildings, in.ReferenceBuildings, e.ids)
	if err != nil {
		return nil, err
	}

	run := newCalcRun(e.factors, e.cfg)

	// Which effective buildings count toward the grand subtotal: a twin is
	// excluded only when its parent is present in the same selection.
	present := map[string]bool{}
	for _, eb := range effective {
		if eb.SimilarTo == "" {
			present[eb.Name] = true
		}
	}

	var aggregateCarpetArea float64
	for _, eb := range effective {
		result.SelectedBuildings = append(result.SelectedBuildings, models.SelectedBuilding{
			BuildingID:   eb.BuildingID,
			BuildingName: eb.Name,
			SimilarTo:    eb.SimilarTo,
		})

		breakdown, err := run.evaluateBuilding(eb)
		if err != nil {
			return nil, err
		}
		result.BuildingBreakdowns = append(result.BuildingBreakdowns, breakdown)

		excluded := eb.SimilarTo != "" && present[eb.SimilarTo]
		result.Totals.PerBuilding = append(result.Totals.PerBuilding, models.BuildingTotals{
			BuildingName:         eb.Name,
			SimilarTo:            eb.SimilarTo,
			Totals:               breakdown.Totals,
			ExcludedFromSubtotal: excluded,
		})
		if !excluded {
			addTotals(&result.Totals, breakdown.Totals)
			aggregateCarpetArea += eb.CarpetAreaSqm
		}
	}

	fire, err := run.fireFightingLoads(in.Society)
	if err != nil {
		return nil, err
	}
	infra, err := run.societyInfraLoads(in.Society)
	if err != nil {
		return nil, err
	}
	for _, cat := range []models.LoadCategory{fire, infra} {
		if len(cat.Items) == 0 {
			continue
		}
		result.SocietyCALoads = append(result.SocietyCALoads, cat)
		addTotals(&result.Totals, cat.Totals)
	}

	result.FactorsUsed = run.usedFactors()

	if result.Totals.TotalMaxDemand <= 0 {
		result.Valid = false
		result.InvalidReason = "all counts and areas are zero; nothing to compute"
		result.Totals.TransformerSizeKVA = 0
		return result, nil
	}

	result.Valid = true
	result.Totals.TransformerSizeKVA = int(math.Ceil(result.Totals.TotalMaxDemand / e.cfg.PowerFactor))
	result.RegulatoryCompliance = checkCompliance(in.AreaType, in.OccupancyClass, aggregateCarpetArea, result.Totals)
	return result, nil
}

// evaluateBuilding runs all building-level category evaluators and sums them.
func (r *calcRun) evaluateBuilding(eb EffectiveBuilding) (models.BuildingBreakdown, error) {
	breakdown := models.BuildingBreakdown{
		BuildingID:      eb.BuildingID,
		BuildingName:    eb.Name,
		ApplicationType: eb.ApplicationType,
		SimilarTo:       eb.SimilarTo,
		FloorCount:      eb.FloorCount,
		TotalHeightM:    round2(eb.TotalHeightM),
		CarpetAreaSqm:   round2(eb.CarpetAreaSqm),
	}

	evaluators := []func(EffectiveBuilding) (models.LoadCategory, error){
		r.flatLoads,
		r.commonLighting,
		r.liftLoads,
		r.ventilationLoads,
		r.pheLoads,
	}
	for _, eval := range evaluators {
		cat, err := eval(eb)
		if err != nil {
			return models.BuildingBreakdown{}, err
		}
		if len(cat.Items) == 0 {
			continue
		}
		breakdown.Categories = append(breakdown.Categories, cat)
		breakdown.Totals.TCL += cat.Totals.TCL
		breakdown.Totals.MaxDemand += cat.Totals.MaxDemand
		breakdown.Totals.Essential += cat.Totals.Essential
		breakdown.Totals.Fire += cat.Totals.Fire
	}
	return breakdown, nil
}

func addTotals(g *models.GrandTotals, t models.LoadTotals) {
	g.GrandTotalTCL += t.TCL
	g.TotalMaxDemand += t.MaxDemand
	g.TotalEssential += t.Essential
	g.TotalFire += t.Fire
}
