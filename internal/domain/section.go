package domain

import (
	"fmt"
	"strings"
)

// SectionName is the key a CAP section is stored under in a city record.
type SectionName string

const (
	SectionBasicInfo         SectionName = "Basic Info"
	SectionEnergyBuildings   SectionName = "Energy_Buildings"
	SectionGreenBiodiversity SectionName = "Green_Biodiversity"
	SectionMobility          SectionName = "Mobility"
	SectionWater             SectionName = "Water"
	SectionWaste             SectionName = "Waste"
	SectionClimateData       SectionName = "Climate_Data"
)

// SectionNames in form order.
var SectionNames = []SectionName{
	SectionBasicInfo,
	SectionEnergyBuildings,
	SectionGreenBiodiversity,
	SectionMobility,
	SectionWater,
	SectionWaste,
	SectionClimateData,
}

// Slug is the URL form, e.g. "energy-buildings".
func (n SectionName) Slug() string {
	return strings.ToLower(strings.NewReplacer(" ", "-", "_", "-").Replace(string(n)))
}

// ParseSectionName accepts either the stored key or its slug, case-insensitively.
func ParseSectionName(s string) (SectionName, error) {
	for _, n := range SectionNames {
		if strings.EqualFold(s, string(n)) || strings.EqualFold(s, n.Slug()) {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSection, s)
}

// Section is one CAP planning domain submitted as a whole.
type Section interface {
	SectionName() SectionName
	Validate() error
	Document() *DocumentRef
	SetDocument(ref *DocumentRef)
}

// NewSection returns an empty section value to decode a submission into.
func NewSection(name SectionName) (Section, error) {
	switch name {
	case SectionBasicInfo:
		return &BasicInfo{}, nil
	case SectionEnergyBuildings:
		return &EnergyBuildings{}, nil
	case SectionGreenBiodiversity:
		return &GreenBiodiversity{}, nil
	case SectionMobility:
		return &Mobility{}, nil
	case SectionWater:
		return &Water{}, nil
	case SectionWaste:
		return &Waste{}, nil
	case SectionClimateData:
		return &ClimateData{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSection, name)
}

// DocumentRef points at a supporting document uploaded to the file store.
type DocumentRef struct {
	FileID      string `json:"file_id"`
	Name        string `json:"name"`
	WebViewLink string `json:"web_view_link"`
}

// PlanFields are carried by every section.
type PlanFields struct {
	Budget        float64      `json:"Budget"`
	MERIndicators string       `json:"MER_Indicators"`
	Upload        *DocumentRef `json:"Upload"`
}

func (p *PlanFields) Document() *DocumentRef { return p.Upload }

func (p *PlanFields) SetDocument(ref *DocumentRef) { p.Upload = ref }

func (p *PlanFields) check(v *validator) {
	v.nonNegative("Budget", p.Budget)
}

type BasicInfo struct {
	Population    int64     `json:"Population"`
	Area          float64   `json:"Area"`
	GDP           float64   `json:"GDP"`
	Density       float64   `json:"Density"`
	ClimateZone   string    `json:"Climate_Zone"`
	Admin         string    `json:"Admin"`
	CAPStatus     CAPStatus `json:"CAP_Status"`
	LastUpdated   string    `json:"Last_Updated"`
	Population5yr int64     `json:"Population_5yr"`
	CAPTargets    string    `json:"CAP_Targets"`
	PlanFields
}

func (s *BasicInfo) SectionName() SectionName { return SectionBasicInfo }

func (s *BasicInfo) Validate() error {
	v := &validator{}
	v.population("Population", s.Population)
	v.nonNegative("Area", s.Area)
	v.nonNegative("GDP", s.GDP)
	v.nonNegative("Density", s.Density)
	v.population("Population_5yr", s.Population5yr)
	if !s.CAPStatus.Valid() {
		v.addf("CAP_Status %q is not a known status", s.CAPStatus)
	}
	s.check(v)
	return v.err()
}

var (
	streetLightingTypes = []string{"LED", "CFL", "Other"}
	fuelTypes           = []string{"Coal", "Gas", "Biomass", "Electricity", "Petroleum"}
)

type EnergyBuildings struct {
	Residential            float64  `json:"Residential"`
	Commercial             float64  `json:"Commercial"`
	Industrial             float64  `json:"Industrial"`
	RenewableShare         float64  `json:"Renewable_Share"`
	EEBuildings            int64    `json:"EE_Buildings"`
	StreetLightingType     string   `json:"Street_Lighting_Type"`
	StreetLightingCoverage float64  `json:"Street_Lighting_Coverage"`
	FuelTypes              []string `json:"Fuel_Types"`
	PublicBuildingEnergy   float64  `json:"Public_Building_Energy"`
	GreenPolicy            YesNo    `json:"Green_Policy"`
	EmissionTarget         float64  `json:"Emission_Target"`
	ActionPlan             string   `json:"Action_Plan"`
	ImplementationStrategy string   `json:"Implementation_Strategy"`
	PlanFields
}

func (s *EnergyBuildings) SectionName() SectionName { return SectionEnergyBuildings }

func (s *EnergyBuildings) Validate() error {
	v := &validator{}
	v.nonNegative("Residential", s.Residential)
	v.nonNegative("Commercial", s.Commercial)
	v.nonNegative("Industrial", s.Industrial)
	v.percent("Renewable_Share", s.RenewableShare)
	v.nonNegativeInt("EE_Buildings", s.EEBuildings)
	if s.StreetLightingType != "" && !contains(streetLightingTypes, s.StreetLightingType) {
		v.addf("Street_Lighting_Type must be one of %s", strings.Join(streetLightingTypes, ", "))
	}
	v.percent("Street_Lighting_Coverage", s.StreetLightingCoverage)
	for _, f := range s.FuelTypes {
		if !contains(fuelTypes, f) {
			v.addf("Fuel_Types: %q is not a known fuel", f)
		}
	}
	v.nonNegative("Public_Building_Energy", s.PublicBuildingEnergy)
	v.yesNo("Green_Policy", s.GreenPolicy)
	v.percent("Emission_Target", s.EmissionTarget)
	s.check(v)
	return v.err()
}

type GreenBiodiversity struct {
	GreenCover             float64 `json:"Green_Cover"`
	TreeDensity            float64 `json:"Tree_Density"`
	ProtectedAreas         float64 `json:"Protected_Areas"`
	Programs               string  `json:"Programs"`
	UrbanForests           float64 `json:"Urban_Forests"`
	Target                 float64 `json:"Target"`
	UrbanForestPlan        string  `json:"Urban_Forest_Plan"`
	ImplementationStrategy string  `json:"Implementation_Strategy"`
	PlanFields
}

func (s *GreenBiodiversity) SectionName() SectionName { return SectionGreenBiodiversity }

func (s *GreenBiodiversity) Validate() error {
	v := &validator{}
	v.nonNegative("Green_Cover", s.GreenCover)
	v.nonNegative("Tree_Density", s.TreeDensity)
	v.nonNegative("Protected_Areas", s.ProtectedAreas)
	v.nonNegative("Urban_Forests", s.UrbanForests)
	v.percent("Target", s.Target)
	s.check(v)
	return v.err()
}

type Mobility struct {
	PublicTransport        float64 `json:"Public_Transport"`
	NonMotorized           float64 `json:"Non_Motorized"`
	EVStations             int64   `json:"EV_Stations"`
	VehicleEmissions       float64 `json:"Vehicle_Emissions"`
	SmartProjects          string  `json:"Smart_Projects"`
	EmissionTarget         float64 `json:"Emission_Target"`
	ActionPlan             string  `json:"Action_Plan"`
	ImplementationStrategy string  `json:"Implementation_Strategy"`
	PlanFields
}

func (s *Mobility) SectionName() SectionName { return SectionMobility }

func (s *Mobility) Validate() error {
	v := &validator{}
	v.percent("Public_Transport", s.PublicTransport)
	v.percent("Non_Motorized", s.NonMotorized)
	v.nonNegativeInt("EV_Stations", s.EVStations)
	v.nonNegative("Vehicle_Emissions", s.VehicleEmissions)
	v.percent("Emission_Target", s.EmissionTarget)
	s.check(v)
	return v.err()
}

type Water struct {
	Consumption            float64 `json:"Consumption"`
	WWT                    float64 `json:"WWT"`
	RWH                    YesNo   `json:"RWH"`
	Leakage                float64 `json:"Leakage"`
	Policy                 string  `json:"Policy"`
	EmissionTarget         float64 `json:"Emission_Target"`
	ActionPlan             string  `json:"Action_Plan"`
	ImplementationStrategy string  `json:"Implementation_Strategy"`
	PlanFields
}

func (s *Water) SectionName() SectionName { return SectionWater }

func (s *Water) Validate() error {
	v := &validator{}
	v.nonNegative("Consumption", s.Consumption)
	v.percent("WWT", s.WWT)
	v.yesNo("RWH", s.RWH)
	v.percent("Leakage", s.Leakage)
	v.percent("Emission_Target", s.EmissionTarget)
	s.check(v)
	return v.err()
}

type Waste struct {
	Total                  float64 `json:"Total"`
	Recycled               float64 `json:"Recycled"`
	Facilities             int64   `json:"Facilities"`
	Composting             YesNo   `json:"Composting"`
	Hazardous              string  `json:"Hazardous"`
	EmissionTarget         float64 `json:"Emission_Target"`
	ActionPlan             string  `json:"Action_Plan"`
	ImplementationStrategy string  `json:"Implementation_Strategy"`
	PlanFields
}

func (s *Waste) SectionName() SectionName { return SectionWaste }

func (s *Waste) Validate() error {
	v := &validator{}
	v.nonNegative("Total", s.Total)
	v.percent("Recycled", s.Recycled)
	v.nonNegativeInt("Facilities", s.Facilities)
	v.yesNo("Composting", s.Composting)
	v.percent("Emission_Target", s.EmissionTarget)
	s.check(v)
	return v.err()
}

// RCP projection covers 2020..2050, one value per year.
const (
	RCPFirstYear = 2020
	RCPLastYear  = 2050
)

type ClimateData struct {
	AvgTemp       float64   `json:"Avg_Temp"`
	Rainfall      float64   `json:"Rainfall"`
	ExtremeEvents string    `json:"Extreme_Events"`
	RCP           []float64 `json:"RCP"`
	Vulnerability string    `json:"Vulnerability"`
	Adaptation    string    `json:"Adaptation"`
	PlanFields
}

func (s *ClimateData) SectionName() SectionName { return SectionClimateData }

func (s *ClimateData) Validate() error {
	v := &validator{}
	v.finite("Avg_Temp", s.AvgTemp)
	v.nonNegative("Rainfall", s.Rainfall)
	if n := RCPLastYear - RCPFirstYear + 1; len(s.RCP) > n {
		v.addf("RCP holds at most %d yearly values", n)
	}
	for i, x := range s.RCP {
		field := fmt.Sprintf("RCP[%d]", RCPFirstYear+i)
		if v.finite(field, x) && (x < -10 || x > 10) {
			v.addf("%s must be between -10 and 10", field)
		}
	}
	s.check(v)
	return v.err()
}

// Sections is inlined into CityRecord, one optional field per section.
type Sections struct {
	BasicInfo         *BasicInfo         `json:"Basic Info,omitempty"`
	EnergyBuildings   *EnergyBuildings   `json:"Energy_Buildings,omitempty"`
	GreenBiodiversity *GreenBiodiversity `json:"Green_Biodiversity,omitempty"`
	Mobility          *Mobility          `json:"Mobility,omitempty"`
	Water             *Water             `json:"Water,omitempty"`
	Waste             *Waste             `json:"Waste,omitempty"`
	ClimateData       *ClimateData       `json:"Climate_Data,omitempty"`
}

// Section returns the stored section by name, or false when it was never saved.
func (s *Sections) Section(name SectionName) (Section, bool) {
	var sec Section
	switch name {
	case SectionBasicInfo:
		if s.BasicInfo != nil {
			sec = s.BasicInfo
		}
	case SectionEnergyBuildings:
		if s.EnergyBuildings != nil {
			sec = s.EnergyBuildings
		}
	case SectionGreenBiodiversity:
		if s.GreenBiodiversity != nil {
			sec = s.GreenBiodiversity
		}
	case SectionMobility:
		if s.Mobility != nil {
			sec = s.Mobility
		}
	case SectionWater:
		if s.Water != nil {
			sec = s.Water
		}
	case SectionWaste:
		if s.Waste != nil {
			sec = s.Waste
		}
	case SectionClimateData:
		if s.ClimateData != nil {
			sec = s.ClimateData
		}
	}
	return sec, sec != nil
}

// SetSection replaces one section and nothing else.
func (s *Sections) SetSection(sec Section) {
	switch v := sec.(type) {
	case *BasicInfo:
		s.BasicInfo = v
	case *EnergyBuildings:
		s.EnergyBuildings = v
	case *GreenBiodiversity:
		s.GreenBiodiversity = v
	case *Mobility:
		s.Mobility = v
	case *Water:
		s.Water = v
	case *Waste:
		s.Waste = v
	case *ClimateData:
		s.ClimateData = v
	}
}

// CloneSection returns a deep copy of sec.
func CloneSection(sec Section) Section {
	var tmp Sections
	tmp.SetSection(sec)
	cloned := tmp.clone()
	out, _ := cloned.Section(sec.SectionName())
	return out
}

func (s Sections) clone() Sections {
	out := Sections{}
	if s.BasicInfo != nil {
		c := *s.BasicInfo
		c.Upload = cloneRef(c.Upload)
		out.BasicInfo = &c
	}
	if s.EnergyBuildings != nil {
		c := *s.EnergyBuildings
		c.Upload = cloneRef(c.Upload)
		if c.FuelTypes != nil {
			c.FuelTypes = append([]string{}, c.FuelTypes...)
		}
		out.EnergyBuildings = &c
	}
	if s.GreenBiodiversity != nil {
		c := *s.GreenBiodiversity
		c.Upload = cloneRef(c.Upload)
		out.GreenBiodiversity = &c
	}
	if s.Mobility != nil {
		c := *s.Mobility
		c.Upload = cloneRef(c.Upload)
		out.Mobility = &c
	}
	if s.Water != nil {
		c := *s.Water
		c.Upload = cloneRef(c.Upload)
		out.Water = &c
	}
	if s.Waste != nil {
		c := *s.Waste
		c.Upload = cloneRef(c.Upload)
		out.Waste = &c
	}
	if s.ClimateData != nil {
		c := *s.ClimateData
		c.Upload = cloneRef(c.Upload)
		if c.RCP != nil {
			c.RCP = append([]float64{}, c.RCP...)
		}
		out.ClimateData = &c
	}
	return out
}

func cloneRef(ref *DocumentRef) *DocumentRef {
	if ref == nil {
		return nil
	}
	c := *ref
	return &c
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
