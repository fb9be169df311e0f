package domain

import "fmt"

// StateEntry is the state-level pseudo city offered alongside the municipalities.
const StateEntry = "Maharashtra"

// DefaultCities are the 43 municipalities tracked by the dashboard.
var DefaultCities = []string{
	"Mumbai", "Kalyan-Dombivli", "Mira-Bhayandar", "Navi Mumbai", "Bhiwandi-Nizampur",
	"Ulhasnagar", "Ambernath Council", "Vasai-Virar", "Thane", "Badlapur Council",
	"Pune", "Pimpri-Chinchwad", "Panvel", "Malegaon", "Nashik", "Nandurbar Council",
	"Bhusawal Council", "Jalgaon", "Dhule", "Ahilyanagar", "Chh. Sambhajinagar",
	"Jalna", "Beed Council", "Satara Council", "Sangli-Miraj-Kupwad", "Kolhapur",
	"Ichalkaranji", "Solapur", "Barshi Council", "Nanded-Waghala", "Yawatmal Council",
	"Dharashiv", "Latur", "Udgir Council", "Akola", "Parbhani Council", "Amravati",
	"Achalpur Council", "Wardha Council", "Hinganghat Council", "Nagpur", "Chandrapur",
	"Gondia Council",
}

// Catalog is the closed set of city names records may be kept for.
type Catalog struct {
	names []string
	index map[string]struct{}
}

// NewCatalog builds a catalog from names; duplicates and blanks are dropped
// and the state entry is always present.
func NewCatalog(names []string) *Catalog {
	c := &Catalog{index: map[string]struct{}{}}
	for _, n := range append([]string{StateEntry}, names...) {
		if n == "" {
			continue
		}
		if _, ok := c.index[n]; ok {
			continue
		}
		c.index[n] = struct{}{}
		c.names = append(c.names, n)
	}
	return c
}

func (c *Catalog) Contains(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Check returns ErrUnknownCity for names outside the catalog.
func (c *Catalog) Check(name string) error {
	if !c.Contains(name) {
		return fmt.Errorf("%w: %q", ErrUnknownCity, name)
	}
	return nil
}

// Names returns the catalog in insertion order, state entry first.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Municipalities returns the catalog without the state entry.
func (c *Catalog) Municipalities() []string {
	out := make([]string, 0, len(c.names))
	for _, n := range c.names {
		if n != StateEntry {
			out = append(out, n)
		}
	}
	return out
}
