package domain

import "sort"

// GHGSector emission inventory sector, values in tCO2e.
type GHGSector string

const (
	GHGEnergy    GHGSector = "Energy"
	GHGTransport GHGSector = "Transport"
	GHGWaste     GHGSector = "Waste"
	GHGWater     GHGSector = "Water"
	GHGBuildings GHGSector = "Buildings"
	GHGIndustry  GHGSector = "Industry"
)

// GHGSectors in canonical table order.
var GHGSectors = []GHGSector{GHGEnergy, GHGTransport, GHGWaste, GHGWater, GHGBuildings, GHGIndustry}

func (s GHGSector) Valid() bool {
	for _, k := range GHGSectors {
		if k == s {
			return true
		}
	}
	return false
}

// ValidateGHG checks sector names and values of an inventory submission.
func ValidateGHG(ghg map[GHGSector]float64) error {
	v := &validator{}
	keys := make([]string, 0, len(ghg))
	for k := range ghg {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		sector := GHGSector(k)
		if !sector.Valid() {
			v.addf("GHG sector %q is not a known sector", k)
			continue
		}
		v.nonNegative("GHG."+k, ghg[sector])
	}
	return v.err()
}

// GHGRow is one line of the sector table.
type GHGRow struct {
	Sector GHGSector
	TCO2e  float64
}

// GHGRows lists recorded sectors in canonical order. Unrecorded sectors are
// skipped so an empty inventory yields no rows.
func (r CityRecord) GHGRows() []GHGRow {
	rows := make([]GHGRow, 0, len(r.GHG))
	for _, s := range GHGSectors {
		if v, ok := r.GHG[s]; ok {
			rows = append(rows, GHGRow{Sector: s, TCO2e: v})
		}
	}
	return rows
}
