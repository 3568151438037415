package target

import (
	"fmt"
	"strconv"
)

// Commune is one row of the commune reference table.
type Commune struct {
	ID       int
	Name     string
	RegionID int
}

// City is one row of the city reference table.
type City struct {
	ID       int
	Name     string
	RegionID int
}

// CommuneCity links a commune to the city its quotes are requested through.
type CommuneCity struct {
	CommuneID int
	CityID    int
}

// RegionName maps a region id to its display name. Unknown ids render as
// "Región N".
func RegionName(id int) string {
	if n, ok := regionNames[id]; ok {
		return n
	}
	return fmt.Sprintf("Región %d", id)
}

var regionNames = map[int]string{
	1:  "Tarapacá",
	2:  "Antofagasta",
	3:  "Atacama",
	4:  "Coquimbo",
	5:  "Valparaíso",
	6:  "O'Higgins",
	7:  "Maule",
	8:  "Biobío",
	9:  "Araucanía",
	10: "Los Lagos",
	11: "Aysén",
	12: "Magallanes",
	13: "Metropolitana",
	14: "Los Ríos",
	15: "Arica y Parinacota",
	16: "Ñuble",
}

// LocalitySource bundles the three reference tables plus join fallbacks.
type LocalitySource struct {
	Communes []Commune
	Cities   []City
	Links    []CommuneCity
	// DefaultCityID is used when a commune has no city link.
	DefaultCityID int
	// RegionFilter restricts enumeration to one region when non-zero.
	RegionFilter int
}

// FromLocalities joins communes to cities through the relation table and
// returns one Target per commune, deduplicated by commune id. When a commune
// appears in the relation table more than once the first city wins; a
// commune with no relation row falls back to DefaultCityID.
func FromLocalities(src LocalitySource) []Target {
	cities := make(map[int]City, len(src.Cities))
	for _, c := range src.Cities {
		cities[c.ID] = c
	}

	link := make(map[int]int, len(src.Links))
	for _, l := range src.Links {
		if _, dup := link[l.CommuneID]; !dup {
			link[l.CommuneID] = l.CityID
		}
	}

	var out []Target
	seen := make(map[int]struct{}, len(src.Communes))
	for _, com := range src.Communes {
		if _, dup := seen[com.ID]; dup {
			continue
		}
		seen[com.ID] = struct{}{}
		if src.RegionFilter != 0 && com.RegionID != src.RegionFilter {
			continue
		}

		cityID, ok := link[com.ID]
		if !ok {
			cityID = src.DefaultCityID
		}
		cityName := "N/A"
		if city, ok := cities[cityID]; ok {
			cityName = city.Name
		}

		out = append(out, Target{
			ID:       strconv.Itoa(com.ID),
			Name:     com.Name,
			GroupKey: strconv.Itoa(com.RegionID),
			Params: map[string]string{
				"commune_id": strconv.Itoa(com.ID),
				"city_id":    strconv.Itoa(cityID),
				"city_name":  cityName,
				"region":     RegionName(com.RegionID),
			},
		})
	}
	return out
}
