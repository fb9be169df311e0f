package service

import (
	"context"
	"fmt"

	"github.com/eintrusts/MahacapV2/internal/domain"
	"github.com/eintrusts/MahacapV2/internal/store"

	"go.uber.org/zap"
)

// CityService serves read access to city records and the dashboard numbers.
type CityService struct {
	store   store.RecordStore
	catalog *domain.Catalog
	logger  *zap.Logger
}

func NewCityService(st store.RecordStore, catalog *domain.Catalog, logger *zap.Logger) *CityService {
	return &CityService{
		store:   st,
		catalog: catalog,
		logger:  logger,
	}
}

// CityListItem is one catalog entry with its progress.
type CityListItem struct {
	Name      string           `json:"name"`
	District  string           `json:"district"`
	CAPStatus domain.CAPStatus `json:"cap_status"`
	HasRecord bool             `json:"has_record"`
}

func (s *CityService) List(ctx context.Context) ([]CityListItem, error) {
	recs, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}

	names := s.catalog.Names()
	items := make([]CityListItem, 0, len(names))
	for _, name := range names {
		rec, ok := recs[name]
		items = append(items, CityListItem{
			Name:      name,
			District:  rec.District,
			CAPStatus: rec.CAPStatus.OrDefault(),
			HasRecord: ok,
		})
	}
	return items, nil
}

// Get returns the record of city, the zero record when nothing was saved.
func (s *CityService) Get(ctx context.Context, city string) (domain.CityRecord, error) {
	if err := s.catalog.Check(city); err != nil {
		return domain.CityRecord{}, err
	}
	rec, err := s.store.Get(ctx, city)
	if err != nil {
		return domain.CityRecord{}, fmt.Errorf("failed to get %s: %w", city, err)
	}
	return rec, nil
}

// Contact is the department block shown on the dashboard.
type Contact struct {
	City      string           `json:"city"`
	CAPStatus domain.CAPStatus `json:"cap_status"`
	CAPLink   string           `json:"cap_link"`
	DeptName  string           `json:"dept_name"`
	DeptEmail string           `json:"dept_email"`
	Website   string           `json:"website"`
}

// Summary aggregates the municipalities of the catalog.
type Summary struct {
	TotalCities     int                          `json:"total_cities"`
	StatusCounts    map[domain.CAPStatus]int     `json:"status_counts"`
	TotalPopulation int64                        `json:"total_population"`
	TotalArea       float64                      `json:"total_area"`
	GHGBySector     map[domain.GHGSector]float64 `json:"ghg_by_sector"`
	Contact         *Contact                     `json:"contact,omitempty"`
}

// Summary counts CAP progress and totals population, area and emissions.
// Cities without a record count as Not Started. Contact comes from the
// first catalog entry holding a record, the state entry first.
func (s *CityService) Summary(ctx context.Context) (Summary, error) {
	recs, err := s.store.Snapshot(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to build summary: %w", err)
	}

	sum := Summary{
		StatusCounts: make(map[domain.CAPStatus]int, len(domain.CAPStatuses)),
		GHGBySector:  make(map[domain.GHGSector]float64, len(domain.GHGSectors)),
	}
	for _, st := range domain.CAPStatuses {
		sum.StatusCounts[st] = 0
	}
	for _, sector := range domain.GHGSectors {
		sum.GHGBySector[sector] = 0
	}

	cities := s.catalog.Municipalities()
	sum.TotalCities = len(cities)
	for _, name := range cities {
		rec := recs[name]
		sum.StatusCounts[rec.CAPStatus.OrDefault()]++
		if rec.Population.InRange() {
			sum.TotalPopulation += rec.Population.Total()
		} else {
			s.logger.Warn("Population out of range, left out of the total", zap.String("city", name))
		}
		sum.TotalArea += rec.Area
		for sector, v := range rec.GHG {
			sum.GHGBySector[sector] += v
		}
	}

	for _, name := range s.catalog.Names() {
		rec, ok := recs[name]
		if !ok {
			continue
		}
		sum.Contact = &Contact{
			City:      name,
			CAPStatus: rec.CAPStatus.OrDefault(),
			CAPLink:   rec.CAPLink,
			DeptName:  rec.DeptName,
			DeptEmail: rec.DeptEmail,
			Website:   rec.Website,
		}
		break
	}
	return sum, nil
}
