package loadcalc

import (
	"fmt"
	"math"
	"sort"

	"backend/models"
)

// Category names as they appear in breakdowns and on the rendered schedule.
const (
	CategoryFlatLoads      = "Flat Loads"
	CategoryCommonLighting = "Common Area Lighting"
	CategoryLifts          = "Lifts"
	CategoryVentilation    = "Ventilation & Pressurization"
	CategoryPHE            = "PHE"
	CategoryFireFighting   = "Fire Fighting (Society)"
	CategorySocietyInfra   = "Society Infrastructure"
)

func round2(x float64) float64 { return math.Round(x*100) / 100.0 }

// calcRun is the per-invocation evaluation state: the shared factor table and
// config plus the set of factor rows actually consulted, captured into the
// result for audit.
type calcRun struct {
	factors FactorTable
	cfg     Config
	used    map[string]models.Factor
}

func newCalcRun(factors FactorTable, cfg Config) *calcRun {
	return &calcRun{factors: factors, cfg: cfg, used: map[string]models.Factor{}}
}

func (r *calcRun) factor(discipline, area, description string) (models.Factor, error) {
	f, err := r.factors.requireFactor(discipline, area, description)
	if err != nil {
		return models.Factor{}, err
	}
	r.used[f.Key()] = f
	return f, nil
}

func (r *calcRun) usedFactors() []models.Factor {
	out := make([]models.Factor, 0, len(r.used))
	for _, f := range r.used {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// areaItem computes one area-driven row: TCL = area * density / 1000.
func areaItem(description string, areaSqm float64, count *int, f models.Factor) (models.LoadItem, error) {
	if f.DensityWPerM2 == nil {
		return models.LoadItem{}, fmt.Errorf("%w: %s has no density but %q is area-driven", ErrMissingFactor, f.Key(), description)
	}
	tcl := round2(areaSqm * *f.DensityWPerM2 / 1000.0)
	item := applyFactors(models.LoadItem{Description: description, AreaSqm: &areaSqm, Count: count, Reference: f.Reference}, tcl, f)
	return item, nil
}

// fixedItem computes one fixed-load row: TCL is the given kW directly.
func fixedItem(description string, kw float64, count *int, f models.Factor) models.LoadItem {
	tcl := round2(kw)
	return applyFactors(models.LoadItem{Description: description, ConnectedKW: &kw, Count: count, Reference: f.Reference}, tcl, f)
}

func applyFactors(item models.LoadItem, tcl float64, f models.Factor) models.LoadItem {
	item.TCL = tcl
	item.MaxDemand = round2(tcl * f.MDF)
	item.Essential = round2(tcl * f.EDF)
	item.Fire = round2(tcl * f.FDF)
	return item
}

func sumCategory(name string, items []models.LoadItem) models.LoadCategory {
	cat := models.LoadCategory{Name: name, Items: items}
	for _, it := range items {
		cat.Totals.TCL += it.TCL
		cat.Totals.MaxDemand += it.MaxDemand
		cat.Totals.Essential += it.Essential
		cat.Totals.Fire += it.Fire
	}
	return cat
}

// flatLoads emits one item per distinct flat type in the building, with the
// type's aggregate area across all floors. Villas are treated as a flat type
// of their own.
func (r *calcRun) flatLoads(eb EffectiveBuilding) (models.LoadCategory, error) {
	type group struct {
		area  float64
		count int
	}
	groups := map[string]*group{}
	for _, fl := range eb.Floors {
		for _, u := range fl.Flats {
			if u.Count <= 0 || u.AreaSqm <= 0 {
				continue
			}
			g := groups[u.FlatType]
			if g == nil {
				g = &group{}
				groups[u.FlatType] = g
			}
			g.area += u.AreaSqm * float64(u.Count)
			g.count += u.Count
		}
	}

	types := make([]string, 0, len(groups))
	for t := range groups {
		types = append(types, t)
	}
	sort.Strings(types)

	items := make([]models.LoadItem, 0, len(types)+1)
	for _, t := range types {
		f, err := r.factor(DisciplineElectrical, eb.ApplicationType, t)
		if err != nil {
			return models.LoadCategory{}, err
		}
		g := groups[t]
		count := g.count
		item, err := areaItem(t+" flats", g.area, &count, f)
		if err != nil {
			return models.LoadCategory{}, err
		}
		items = append(items, item)
	}

	if eb.VillaUnits > 0 && eb.VillaAreaSqm > 0 {
		f, err := r.factor(DisciplineElectrical, "Villa", "Villa")
		if err != nil {
			return models.LoadCategory{}, err
		}
		count := eb.VillaUnits
		item, err := areaItem("Villas", eb.VillaAreaSqm*float64(eb.VillaUnits), &count, f)
		if err != nil {
			return models.LoadCategory{}, err
		}
		items = append(items, item)
	}

	return sumCategory(CategoryFlatLoads, items), nil
}

// commonLighting covers the GF entrance lobby, typical floor lobbies and
// covered parking, all area-driven.
func (r *calcRun) commonLighting(eb EffectiveBuilding) (models.LoadCategory, error) {
	var items []models.LoadItem

	if eb.GFEntranceLobbyArea > 0 {
		f, err := r.factor(DisciplineElectrical, AreaCommon, "Entrance Lobby")
		if err != nil {
			return models.LoadCategory{}, err
		}
		item, err := areaItem("GF entrance lobby", eb.GFEntranceLobbyArea, nil, f)
		if err != nil {
			return models.LoadCategory{}, err
		}
		items = append(items, item)
	}

	var lobbyArea float64
	for _, fl := range eb.Floors {
		lobbyArea += fl.LobbyArea
	}
	if lobbyArea > 0 {
		f, err := r.factor(DisciplineElectrical, AreaCommon, "Typical Lobby")
		if err != nil {
			return models.LoadCategory{}, err
		}
		item, err := areaItem("Typical floor lobbies", lobbyArea, nil, f)
		if err != nil {
			return models.LoadCategory{}, err
		}
		items = append(items, item)
	}

	if eb.ParkingArea > 0 {
		f, err := r.factor(DisciplineElectrical, AreaCommon, "Parking")
		if err != nil {
			return models.LoadCategory{}, err
		}
		item, err := areaItem("Covered parking", eb.ParkingArea, nil, f)
		if err != nil {
			return models.LoadCategory{}, err
		}
		items = append(items, item)
	}

	return sumCategory(CategoryCommonLighting, items), nil
}

// liftLoads emits one item per lift class present, fixed kW per class scaled
// by count. The factor table encodes which classes feed the fire circuit.
func (r *calcRun) liftLoads(eb EffectiveBuilding) (models.LoadCategory, error) {
	classes := []struct {
		desc  string
		class string
		count int
	}{
		{"Passenger Lift", LiftClassPassenger, eb.PassengerLifts},
		{"Passenger cum Fire Lift", LiftClassPassengerFire, eb.PassengerFireLifts},
		{"Firemen Lift", LiftClassFiremen, eb.FiremenLifts},
	}

	var items []models.LoadItem
	for _, c := range classes {
		if c.count <= 0 {
			continue
		}
		f, err := r.factor(DisciplineElectrical, AreaLifts, c.desc)
		if err != nil {
			return models.LoadCategory{}, err
		}
		kw, ok := r.cfg.LiftKW[c.class]
		if !ok {
			return models.LoadCategory{}, fmt.Errorf("%w: no lift rating configured for class %q", ErrMissingFactor, c.class)
		}
		count := c.count
		items = append(items, fixedItem(c.desc, kw*float64(count), &count, f))
	}
	return sumCategory(CategoryLifts, items), nil
}

// ventilationLoads derives fan counts from geometry rather than from the
// factor table: one staircase pressurization fan per staircase once the
// building exceeds the height threshold, and one basement ventilation fan per
// configured parking-area slab when mechanical ventilation is enabled. The
// resulting kW still runs through the normal factor pipeline.
func (r *calcRun) ventilationLoads(eb EffectiveBuilding) (models.LoadCategory, error) {
	var items []models.LoadItem

	if eb.TotalHeightM > r.cfg.PressurizationHeightM && eb.StaircaseCount > 0 {
		f, err := r.factor(DisciplineMechanical, AreaPressurization, "Staircase Pressurization Fan")
		if err != nil {
			return models.LoadCategory{}, err
		}
		count := eb.StaircaseCount
		items = append(items, fixedItem("Staircase pressurization fans", r.cfg.PressurizationFanKW*float64(count), &count, f))
	}

	if eb.MechVentilation && eb.ParkingArea > 0 && r.cfg.MechVentAreaPerFanSqm > 0 {
		f, err := r.factor(DisciplineMechanical, AreaVentilation, "Basement Ventilation Fan")
		if err != nil {
			return models.LoadCategory{}, err
		}
		count := int(math.Ceil(eb.ParkingArea / r.cfg.MechVentAreaPerFanSqm))
		items = append(items, fixedItem("Basement ventilation fans", r.cfg.MechVentFanKW*float64(count), &count, f))
	}

	return sumCategory(CategoryVentilation, items), nil
}

// pheLoads covers the building-level plumbing pumps. TCL counts working plus
// standby sets (nameplate connected load); the demand factors carry the
// simultaneity.
func (r *calcRun) pheLoads(eb EffectiveBuilding) (models.LoadCategory, error) {
	sets := eb.PumpWorkingSets + eb.PumpStandbySets
	if sets <= 0 {
		sets = 1
	}

	pumps := []struct {
		desc string
		kw   float64
	}{
		{"Booster Pump", eb.BoosterPumpKW},
		{"Sewage Pump", eb.SewagePumpKW},
		{"Wet Riser Pump", eb.WetRiserPumpKW},
	}

	var items []models.LoadItem
	for _, p := range pumps {
		if p.kw <= 0 {
			continue
		}
		f, err := r.factor(DisciplinePlumbing, AreaPHE, p.desc)
		if err != nil {
			return models.LoadCategory{}, err
		}
		count := sets
		items = append(items, fixedItem(p.desc, p.kw*float64(sets), &count, f))
	}
	return sumCategory(CategoryPHE, items), nil
}

// fireFightingLoads covers the society-level fire pumps; near-100% of each
// feeds the fire circuit via the factor rows.
func (r *calcRun) fireFightingLoads(soc models.SocietyCommon) (models.LoadCategory, error) {
	pumps := []struct {
		desc string
		kw   float64
	}{
		{"Main Hydrant Pump", soc.HydrantPumpKW},
		{"Sprinkler Pump", soc.SprinklerPumpKW},
		{"Jockey Pump", soc.JockeyPumpKW},
	}

	var items []models.LoadItem
	for _, p := range pumps {
		if p.kw <= 0 {
			continue
		}
		f, err := r.factor(DisciplineFire, AreaSociety, p.desc)
		if err != nil {
			return models.LoadCategory{}, err
		}
		items = append(items, fixedItem(p.desc, p.kw, nil, f))
	}
	return sumCategory(CategoryFireFighting, items), nil
}

// societyInfraLoads covers clubhouse, street lighting, EV chargers, STP,
// security and small power.
func (r *calcRun) societyInfraLoads(soc models.SocietyCommon) (models.LoadCategory, error) {
	var items []models.LoadItem

	if soc.ClubhouseArea > 0 {
		f, err := r.factor(DisciplineElectrical, AreaSociety, "Clubhouse")
		if err != nil {
			return models.LoadCategory{}, err
		}
		item, err := areaItem("Clubhouse", soc.ClubhouseArea, nil, f)
		if err != nil {
			return models.LoadCategory{}, err
		}
		items = append(items, item)
	}

	fixed := []struct {
		desc string
		kw   float64
	}{
		{"Street Lighting", soc.StreetLightKW},
		{"STP", soc.STPKW},
		{"Security", soc.SecurityKW},
		{"Small Power", soc.SmallPowerKW},
	}
	for _, x := range fixed {
		if x.kw <= 0 {
			continue
		}
		f, err := r.factor(DisciplineElectrical, AreaSociety, x.desc)
		if err != nil {
			return models.LoadCategory{}, err
		}
		items = append(items, fixedItem(x.desc, x.kw, nil, f))
	}

	if len(soc.EVChargers) > 0 {
		f, err := r.factor(DisciplineElectrical, AreaSociety, "EV Charger")
		if err != nil {
			return models.LoadCategory{}, err
		}
		groups := append([]models.EVChargerGroup{}, soc.EVChargers...)
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].ChargerType < groups[j].ChargerType })
		for _, g := range groups {
			if g.Count <= 0 {
				continue
			}
			kw, ok := r.cfg.EVChargerKW[g.ChargerType]
			if !ok {
				return models.LoadCategory{}, fmt.Errorf("%w: no charger rating configured for type %q", ErrMissingFactor, g.ChargerType)
			}
			count := g.Count
			items = append(items, fixedItem(fmt.Sprintf("EV chargers (%s)", g.ChargerType), kw*float64(count), &count, f))
		}
	}

	return sumCategory(CategorySocietyInfra, items), nil
}
