package loadcalc

import (
	"fmt"
	"sort"

	"backend/models"
)

// IDGenerator supplies identities for cloned floors and flats so twin
// expansion is reproducible in tests.
type IDGenerator interface {
	NewID() string
}

// SequentialIDGenerator issues "prefix-1", "prefix-2", ... Deterministic;
// used by tests and anywhere reproducible clone identities matter.
type SequentialIDGenerator struct {
	prefix string
	next   int
}

func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	return &SequentialIDGenerator{prefix: prefix}
}

func (g *SequentialIDGenerator) NewID() string {
	g.next++
	return fmt.Sprintf("%s-%d", g.prefix, g.next)
}

// EffectiveBuilding is a fully resolved building: no twin placeholders
// remain, floors and flats are concrete, and derived geometry is filled in.
type EffectiveBuilding struct {
	models.Building

	// SimilarTo names the parent building this one was cloned from, empty
	// for non-twin buildings. Used for "Similar to: Tower A" reporting and
	// for subtotal de-duplication.
	SimilarTo string

	TotalHeightM  float64
	FloorCount    int
	CarpetAreaSqm float64
}

// NormalizeHierarchy expands twin buildings and twin floors into a flat,
// duplication-free list of effective buildings. Every twin reference must
// resolve to a non-twin building in scope — the selection itself, or the
// project-wide pool when the parent was not selected — or to a non-twin
// floor of the same building for twin floors. An unresolved reference fails
// the whole normalization, nothing is partially computed.
func NormalizeHierarchy(selected, pool []models.Building, ids IDGenerator) ([]EffectiveBuilding, error) {
	// Resolve twin floors for every non-twin building first, so twin
	// buildings can clone an already-concrete floor tree. Selected buildings
	// shadow same-named pool entries.
	resolvedFloors := make(map[string][]models.Floor, len(selected))
	byName := make(map[string]*models.Building, len(selected))
	for i := range pool {
		b := &pool[i]
		if b.TwinOfBuildingName != nil {
			continue
		}
		floors, err := resolveFloors(b, ids)
		if err != nil {
			return nil, err
		}
		byName[b.Name] = b
		resolvedFloors[b.Name] = floors
	}
	for i := range selected {
		b := &selected[i]
		if b.TwinOfBuildingName != nil {
			continue
		}
		if prev, dup := byName[b.Name]; dup && prev.BuildingID != b.BuildingID {
			return nil, fmt.Errorf("%w: duplicate building name %q in selection", ErrInvalidHierarchy, b.Name)
		}
		floors, err := resolveFloors(b, ids)
		if err != nil {
			return nil, err
		}
		byName[b.Name] = b
		resolvedFloors[b.Name] = floors
	}

	out := make([]EffectiveBuilding, 0, len(selected))
	for i := range selected {
		b := selected[i]
		eff := EffectiveBuilding{Building: b}

		if b.TwinOfBuildingName != nil {
			parentName := *b.TwinOfBuildingName
			parent, ok := byName[parentName]
			if !ok {
				return nil, fmt.Errorf("building %q: %w: twin parent %q is not a non-twin building in the project", b.Name, ErrUnresolvedTwin, parentName)
			}
			if len(b.Floors) > 0 {
				return nil, fmt.Errorf("%w: twin building %q must not carry floors of its own", ErrInvalidHierarchy, b.Name)
			}
			eff.SimilarTo = parent.Name
			eff.Floors = cloneFloors(resolvedFloors[parentName], ids)
			// Twin inherits the parent's building-level equipment too.
			eff.GFEntranceLobbyArea = parent.GFEntranceLobbyArea
			eff.PassengerLifts = parent.PassengerLifts
			eff.PassengerFireLifts = parent.PassengerFireLifts
			eff.FiremenLifts = parent.FiremenLifts
			eff.StaircaseCount = parent.StaircaseCount
			eff.ParkingCount = parent.ParkingCount
			eff.ParkingArea = parent.ParkingArea
			eff.MechVentilation = parent.MechVentilation
			eff.BoosterPumpKW = parent.BoosterPumpKW
			eff.SewagePumpKW = parent.SewagePumpKW
			eff.WetRiserPumpKW = parent.WetRiserPumpKW
			eff.PumpWorkingSets = parent.PumpWorkingSets
			eff.PumpStandbySets = parent.PumpStandbySets
			eff.VillaUnits = parent.VillaUnits
			eff.VillaAreaSqm = parent.VillaAreaSqm
			eff.ApplicationType = parent.ApplicationType
		} else {
			eff.Floors = resolvedFloors[b.Name]
		}

		for _, fl := range eff.Floors {
			eff.TotalHeightM += fl.HeightM
			for _, u := range fl.Flats {
				eff.CarpetAreaSqm += u.AreaSqm * float64(u.Count)
			}
		}
		eff.FloorCount = len(eff.Floors)
		out = append(out, eff)
	}
	return out, nil
}

// resolveFloors expands twin floors within one building. The scope for a
// twin-of-floor reference is the building itself.
func resolveFloors(b *models.Building, ids IDGenerator) ([]models.Floor, error) {
	parents := make(map[string]*models.Floor, len(b.Floors))
	for i := range b.Floors {
		fl := &b.Floors[i]
		if fl.TwinOfFloorName == nil {
			parents[fl.Name] = fl
		}
	}

	out := make([]models.Floor, 0, len(b.Floors))
	for i := range b.Floors {
		fl := b.Floors[i]
		if fl.TwinOfFloorName == nil {
			fl.Flats = sortedFlats(fl.Flats)
			out = append(out, fl)
			continue
		}
		parentName := *fl.TwinOfFloorName
		parent, ok := parents[parentName]
		if !ok {
			return nil, fmt.Errorf("building %q floor %q: %w: twin parent floor %q is not a non-twin floor of the same building", b.Name, fl.Name, ErrUnresolvedTwin, parentName)
		}
		flats, err := pairTwinFlats(b.Name, fl, parent, ids)
		if err != nil {
			return nil, err
		}
		fl.Flats = flats
		if fl.HeightM == 0 {
			fl.HeightM = parent.HeightM
		}
		if fl.LobbyArea == 0 {
			fl.LobbyArea = parent.LobbyArea
		}
		out = append(out, fl)
	}
	return out, nil
}

// pairTwinFlats produces the twin floor's effective flats from its parent.
// Pairing is by (type, ordinal-within-type), not raw position, so reordering
// the parent's flat list cannot silently misalign the twin. A twin floor with
// no flat entries of its own simply clones the parent; a twin floor that does
// carry entries must match the parent's (type, ordinal) multiset exactly,
// otherwise the caller has edited the parent after the twin was created and
// must resolve the inconsistency before calculating.
func pairTwinFlats(building string, twin models.Floor, parent *models.Floor, ids IDGenerator) ([]models.Flat, error) {
	parentSorted := sortedFlats(parent.Flats)
	if len(twin.Flats) == 0 {
		return cloneFlats(parentSorted, ids), nil
	}
	if len(twin.Flats) != len(parentSorted) {
		return nil, fmt.Errorf("building %q floor %q: %w: twin floor has %d flat entries but parent floor %q has %d; re-sync the twin before calculating",
			building, twin.Name, ErrInvalidHierarchy, len(twin.Flats), parent.Name, len(parentSorted))
	}
	twinSorted := sortedFlats(twin.Flats)
	for i := range twinSorted {
		if twinSorted[i].FlatType != parentSorted[i].FlatType {
			return nil, fmt.Errorf("building %q floor %q: %w: flat types diverge from parent floor %q at %q; re-sync the twin before calculating",
				building, twin.Name, ErrInvalidHierarchy, parent.Name, twinSorted[i].FlatType)
		}
	}
	// Values mirror the parent; only identities are the twin's own.
	out := make([]models.Flat, len(parentSorted))
	for i, u := range parentSorted {
		out[i] = models.Flat{
			FlatID:   twinSorted[i].FlatID,
			FlatType: u.FlatType,
			AreaSqm:  u.AreaSqm,
			Count:    u.Count,
		}
	}
	return out, nil
}

func sortedFlats(flats []models.Flat) []models.Flat {
	out := append([]models.Flat{}, flats...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].FlatType < out[j].FlatType })
	return out
}

func cloneFlats(flats []models.Flat, ids IDGenerator) []models.Flat {
	out := make([]models.Flat, len(flats))
	for i, u := range flats {
		u.FlatID = ids.NewID()
		out[i] = u
	}
	return out
}

func cloneFloors(floors []models.Floor, ids IDGenerator) []models.Floor {
	out := make([]models.Floor, len(floors))
	for i, fl := range floors {
		clone := fl
		clone.FloorID = ids.NewID()
		clone.TwinOfFloorName = nil
		clone.Flats = cloneFlats(fl.Flats, ids)
		out[i] = clone
	}
	return out
}
