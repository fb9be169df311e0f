package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrUnknownCity    = errors.New("unknown city")
	ErrUnknownSection = errors.New("unknown section")
)

// CAPStatus Climate Action Plan progress
type CAPStatus string

const (
	CAPNotStarted CAPStatus = "Not Started"
	CAPInProgress CAPStatus = "In Progress"
	CAPCompleted  CAPStatus = "Completed"
)

// CAPStatuses in display order.
var CAPStatuses = []CAPStatus{CAPNotStarted, CAPInProgress, CAPCompleted}

// OrDefault treats an unset status as Not Started.
func (s CAPStatus) OrDefault() CAPStatus {
	if s == "" {
		return CAPNotStarted
	}
	return s
}

func (s CAPStatus) Valid() bool {
	switch s {
	case "", CAPNotStarted, CAPInProgress, CAPCompleted:
		return true
	}
	return false
}

// AdminType type of city administration
type AdminType string

const (
	AdminState                AdminType = "State"
	AdminMunicipalCorporation AdminType = "Municipal Corporation"
	AdminMunicipalCouncil     AdminType = "Municipal Council"
	AdminOther                AdminType = "Other"
)

func (a AdminType) Valid() bool {
	switch a {
	case "", AdminState, AdminMunicipalCorporation, AdminMunicipalCouncil, AdminOther:
		return true
	}
	return false
}

// YesNo is the two-option select used across the forms. Empty means unanswered.
type YesNo string

const (
	Yes YesNo = "Yes"
	No  YesNo = "No"
)

func (y YesNo) Valid() bool {
	return y == "" || y == Yes || y == No
}

// Population holds the reported split. Total is derived and only ever
// written to the JSON document, never read back from it.
type Population struct {
	Male   int64
	Female int64
}

func (p Population) Total() int64 { return p.Male + p.Female }

// InRange reports whether both figures lie in [0, MaxPopulation], so Total
// cannot overflow.
func (p Population) InRange() bool {
	return p.Male >= 0 && p.Male <= MaxPopulation && p.Female >= 0 && p.Female <= MaxPopulation
}

func (p Population) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Male   int64 `json:"Male"`
		Female int64 `json:"Female"`
		Total  int64 `json:"Total"`
	}{p.Male, p.Female, p.Total()})
}

func (p *Population) UnmarshalJSON(b []byte) error {
	var raw struct {
		Male   int64 `json:"Male"`
		Female int64 `json:"Female"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.Male, p.Female = raw.Male, raw.Female
	return nil
}

// CityRecord is everything tracked for one city. JSON keys follow the
// persisted state.json layout.
type CityRecord struct {
	District          string     `json:"District"`
	YearEstablishment int        `json:"Year_Establishment"`
	TypeAdmin         AdminType  `json:"Type_Admin"`
	CAPStatus         CAPStatus  `json:"CAP_Status"`
	CAPLink           string     `json:"CAP_Link"`
	Population        Population `json:"Population"`
	Area              float64    `json:"Area"`
	SexRatio          float64    `json:"Sex_Ratio"`
	Density           float64    `json:"Density"`
	EnvDeptExist      YesNo      `json:"Env_Dept_Exist"`
	DeptName          string     `json:"Dept_Name"`
	DeptPerson        string     `json:"Dept_Person"`
	DeptEmail         string     `json:"Dept_Email"`
	Website           string     `json:"Website"`

	Sections

	GHG map[GHGSector]float64 `json:"GHG"`
}

// CityRecords maps city name to record; the whole store as one value.
type CityRecords map[string]CityRecord

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (r CityRecord) Clone() CityRecord {
	out := r
	out.Sections = r.Sections.clone()
	if r.GHG != nil {
		out.GHG = make(map[GHGSector]float64, len(r.GHG))
		for k, v := range r.GHG {
			out.GHG[k] = v
		}
	}
	return out
}

// MaxPopulation bounds each reported population figure; far above any
// city, and low enough that sums across the catalog cannot overflow.
const MaxPopulation int64 = 1_000_000_000

// ComputeDensity returns Total/Area, or 0 when there is no area.
func ComputeDensity(total int64, area float64) float64 {
	if area <= 0 {
		return 0
	}
	return float64(total) / area
}

// CityProfile is the "Add/Update City" form: identity, demographics and contact.
type CityProfile struct {
	District          string     `json:"District"`
	YearEstablishment int        `json:"Year_Establishment"`
	TypeAdmin         AdminType  `json:"Type_Admin"`
	CAPStatus         CAPStatus  `json:"CAP_Status"`
	CAPLink           string     `json:"CAP_Link"`
	Population        Population `json:"Population"`
	Area              float64    `json:"Area"`
	SexRatio          float64    `json:"Sex_Ratio"`
	EnvDeptExist      YesNo      `json:"Env_Dept_Exist"`
	DeptName          string     `json:"Dept_Name"`
	DeptPerson        string     `json:"Dept_Person"`
	DeptEmail         string     `json:"Dept_Email"`
	Website           string     `json:"Website"`
}

func (p CityProfile) Validate() error {
	v := &validator{}
	if p.YearEstablishment != 0 && (p.YearEstablishment < 1500 || p.YearEstablishment > 2050) {
		v.addf("Year_Establishment must be between 1500 and 2050")
	}
	if !p.TypeAdmin.Valid() {
		v.addf("Type_Admin %q is not a known administration type", p.TypeAdmin)
	}
	if !p.CAPStatus.Valid() {
		v.addf("CAP_Status %q is not a known status", p.CAPStatus)
	}
	v.population("Population.Male", p.Population.Male)
	v.population("Population.Female", p.Population.Female)
	v.nonNegative("Area", p.Area)
	v.nonNegative("Sex_Ratio", p.SexRatio)
	if !p.EnvDeptExist.Valid() {
		v.addf("Env_Dept_Exist must be Yes or No")
	}
	if email := strings.TrimSpace(p.DeptEmail); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			v.addf("Dept_Email %q is not a valid address", email)
		}
	}
	return v.err()
}

// ApplyTo overwrites the profile field set of rec. Sections and GHG are
// left as they are.
func (p CityProfile) ApplyTo(rec *CityRecord) {
	rec.District = p.District
	rec.YearEstablishment = p.YearEstablishment
	rec.TypeAdmin = p.TypeAdmin
	rec.CAPStatus = p.CAPStatus.OrDefault()
	rec.CAPLink = ""
	if rec.CAPStatus == CAPCompleted {
		rec.CAPLink = strings.TrimSpace(p.CAPLink)
	}
	rec.Population = p.Population
	rec.Area = p.Area
	rec.SexRatio = p.SexRatio
	rec.Density = ComputeDensity(p.Population.Total(), p.Area)
	rec.EnvDeptExist = p.EnvDeptExist
	if rec.EnvDeptExist == "" {
		rec.EnvDeptExist = Yes
	}
	rec.DeptName = ""
	if rec.EnvDeptExist == No {
		rec.DeptName = p.DeptName
	}
	rec.DeptPerson = p.DeptPerson
	rec.DeptEmail = strings.TrimSpace(p.DeptEmail)
	rec.Website = p.Website
}

// Normalize re-derives Density and clears CAP_Link and Dept_Name where their
// condition does not hold. Records read from a snapshot go through it.
func (r *CityRecord) Normalize() {
	if r.Population.InRange() {
		r.Density = ComputeDensity(r.Population.Total(), r.Area)
	} else {
		r.Density = 0
	}
	if r.CAPStatus.OrDefault() != CAPCompleted {
		r.CAPLink = ""
	}
	if r.EnvDeptExist != No {
		r.DeptName = ""
	}
}

// validator collects field problems and reports them as one ErrValidation.
type validator struct {
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) finite(field string, x float64) bool {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		v.addf("%s must be a finite number", field)
		return false
	}
	return true
}

func (v *validator) nonNegative(field string, x float64) {
	if v.finite(field, x) && x < 0 {
		v.addf("%s must not be negative", field)
	}
}

func (v *validator) nonNegativeInt(field string, x int64) {
	if x < 0 {
		v.addf("%s must not be negative", field)
	}
}

func (v *validator) population(field string, x int64) {
	switch {
	case x < 0:
		v.addf("%s must not be negative", field)
	case x > MaxPopulation:
		v.addf("%s must not exceed %d", field, MaxPopulation)
	}
}

func (v *validator) percent(field string, x float64) {
	if v.finite(field, x) && (x < 0 || x > 100) {
		v.addf("%s must be between 0 and 100", field)
	}
}

func (v *validator) yesNo(field string, y YesNo) {
	if !y.Valid() {
		v.addf("%s must be Yes or No", field)
	}
}

func (v *validator) err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(v.problems, "; "))
}
