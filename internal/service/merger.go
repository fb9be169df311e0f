package service

import (
	"context"
	"fmt"

	"github.com/eintrusts/MahacapV2/internal/domain"
	"github.com/eintrusts/MahacapV2/internal/store"

	"go.uber.org/zap"
)

// SectionMerger applies form submissions to the record store. Every write
// touches a single city and, within it, only the submitted part.
type SectionMerger struct {
	store   store.RecordStore
	catalog *domain.Catalog
	logger  *zap.Logger
}

func NewSectionMerger(st store.RecordStore, catalog *domain.Catalog, logger *zap.Logger) *SectionMerger {
	return &SectionMerger{
		store:   st,
		catalog: catalog,
		logger:  logger,
	}
}

// ApplySection replaces one section of city. Other sections, the profile
// fields and GHG are left untouched. A submission without a document keeps
// the document already attached to that section.
func (m *SectionMerger) ApplySection(ctx context.Context, city string, sec domain.Section) (domain.CityRecord, error) {
	if err := m.catalog.Check(city); err != nil {
		return domain.CityRecord{}, err
	}
	if sec == nil {
		return domain.CityRecord{}, fmt.Errorf("%w: section is required", domain.ErrValidation)
	}
	if err := sec.Validate(); err != nil {
		return domain.CityRecord{}, fmt.Errorf("%s: %w", sec.SectionName(), err)
	}

	var updated domain.CityRecord
	err := m.store.Update(ctx, city, func(rec *domain.CityRecord) error {
		// fresh copy per attempt; the store may rerun fn
		next := domain.CloneSection(sec)
		if next.Document() == nil {
			if prev, ok := rec.Section(next.SectionName()); ok {
				next.SetDocument(prev.Document())
			}
		}
		rec.SetSection(next)
		*rec = rec.Clone()
		updated = rec.Clone()
		return nil
	})
	if err != nil {
		return domain.CityRecord{}, fmt.Errorf("save section %s of %s: %w", sec.SectionName(), city, err)
	}

	m.logger.Info("Section saved",
		zap.String("city", city),
		zap.String("section", string(sec.SectionName())),
	)
	return updated, nil
}

// ApplyProfile writes the Add/Update City form. Density is recomputed and
// CAP_Link / Dept_Name are cleared when their condition does not hold.
func (m *SectionMerger) ApplyProfile(ctx context.Context, city string, p domain.CityProfile) (domain.CityRecord, error) {
	if err := m.catalog.Check(city); err != nil {
		return domain.CityRecord{}, err
	}
	if err := p.Validate(); err != nil {
		return domain.CityRecord{}, err
	}

	var updated domain.CityRecord
	err := m.store.Update(ctx, city, func(rec *domain.CityRecord) error {
		p.ApplyTo(rec)
		updated = rec.Clone()
		return nil
	})
	if err != nil {
		return domain.CityRecord{}, fmt.Errorf("save profile of %s: %w", city, err)
	}

	m.logger.Info("City profile saved",
		zap.String("city", city),
		zap.String("cap_status", string(updated.CAPStatus)),
		zap.Int64("population", updated.Population.Total()),
	)
	return updated, nil
}

// ApplyGHG replaces the sector inventory of city.
func (m *SectionMerger) ApplyGHG(ctx context.Context, city string, ghg map[domain.GHGSector]float64) (domain.CityRecord, error) {
	if err := m.catalog.Check(city); err != nil {
		return domain.CityRecord{}, err
	}
	if err := domain.ValidateGHG(ghg); err != nil {
		return domain.CityRecord{}, err
	}

	inventory := make(map[domain.GHGSector]float64, len(ghg))
	for k, v := range ghg {
		inventory[k] = v
	}

	var updated domain.CityRecord
	err := m.store.Update(ctx, city, func(rec *domain.CityRecord) error {
		rec.GHG = inventory
		updated = rec.Clone()
		return nil
	})
	if err != nil {
		return domain.CityRecord{}, fmt.Errorf("save GHG inventory of %s: %w", city, err)
	}

	m.logger.Info("GHG inventory saved", zap.String("city", city), zap.Int("sectors", len(inventory)))
	return updated, nil
}

// AttachDocument sets the document reference of one section, creating an
// empty section when none was saved yet.
func (m *SectionMerger) AttachDocument(ctx context.Context, city string, name domain.SectionName, ref domain.DocumentRef) (domain.CityRecord, error) {
	if err := m.catalog.Check(city); err != nil {
		return domain.CityRecord{}, err
	}
	if _, err := domain.NewSection(name); err != nil {
		return domain.CityRecord{}, err
	}

	var updated domain.CityRecord
	err := m.store.Update(ctx, city, func(rec *domain.CityRecord) error {
		sec, ok := rec.Section(name)
		if !ok {
			sec, _ = domain.NewSection(name)
		}
		doc := ref
		sec.SetDocument(&doc)
		rec.SetSection(sec)
		updated = rec.Clone()
		return nil
	})
	if err != nil {
		return domain.CityRecord{}, fmt.Errorf("attach document to %s of %s: %w", name, city, err)
	}
	return updated, nil
}
