package models

// MapSide is the side assignment for one map of a series, in matchzy's
// map_sides notation. SideKnife leaves the side decision to a knife round.
type MapSide string

const (
	SideTeam1CT MapSide = "team1_ct"
	SideTeam2CT MapSide = "team2_ct"
	SideKnife   MapSide = "knife"
)

// VetoMap is one picked map with its side assignment.
type VetoMap struct {
	Name string  `json:"name"`
	Side MapSide `json:"side"`
}

// VetoState is the optional veto overlay on a match, stored as JSONB.
// When absent or not completed, the tournament's default map pool and
// knife-decided sides apply instead.
type VetoState struct {
	Completed bool      `json:"completed"`
	Maps      []VetoMap `json:"maps"`
}

// PickMap appends a picked map with a knife-decided side, ignoring duplicates.
func (v *VetoState) PickMap(name string) {
	for _, m := range v.Maps {
		if m.Name == name {
			return
		}
	}
	v.Maps = append(v.Maps, VetoMap{Name: name, Side: SideKnife})
}

// SetSide records the side for an already-picked map.
func (v *VetoState) SetSide(mapName string, side MapSide) {
	for i := range v.Maps {
		if v.Maps[i].Name == mapName {
			v.Maps[i].Side = side
			return
		}
	}
}
