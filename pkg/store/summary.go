package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/ChrisMcGann/scanmeta/pkg/core"
)

// Summary describes the record set of one data file.
type Summary struct {
	DataFile            string        `yaml:"data_file"`
	UUID                string        `yaml:"uuid"`
	Format              string        `yaml:"format,omitempty"`
	Scans               int64         `yaml:"scans"`
	ScansPerLevel       map[int]int64 `yaml:"scans_per_level"`
	RetentionTime       *TimeRange    `yaml:"retention_time,omitempty"`
	Analyzers           []string      `yaml:"analyzers"`
	DissociationMethods []string      `yaml:"dissociation_methods,omitempty"`
}

// TimeRange is a scan start time range in minutes.
type TimeRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Summarize aggregates the stored scans of a data file.
func (s *Store) Summarize(ctx context.Context, file *core.DataFile) (*Summary, error) {
	summary := &Summary{
		DataFile:      file.Name,
		UUID:          file.UUID,
		Format:        file.Format,
		ScansPerLevel: make(map[int]int64),
	}
	scans := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&core.ScanMetadata{}).Where("data_file_id = ?", file.ID)
	}

	var levels []struct {
		MsLevel int
		Count   int64
	}
	err := scans().Select("ms_level, count(*) as count").Group("ms_level").Scan(&levels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count scans per level: %w", err)
	}
	for _, l := range levels {
		summary.ScansPerLevel[l.MsLevel] = l.Count
		summary.Scans += l.Count
	}

	var rt struct {
		Min *float64
		Max *float64
	}
	err = scans().Select("min(scan_start_time) as min, max(scan_start_time) as max").Scan(&rt).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute retention time range: %w", err)
	}
	if rt.Min != nil && rt.Max != nil {
		summary.RetentionTime = &TimeRange{Min: *rt.Min, Max: *rt.Max}
	}

	err = scans().Distinct().Order("mass_analyzer_type").Pluck("mass_analyzer_type", &summary.Analyzers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list analyzers: %w", err)
	}

	err = scans().Where("dissociation_method IS NOT NULL").
		Distinct().Order("dissociation_method").
		Pluck("dissociation_method", &summary.DissociationMethods).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list dissociation methods: %w", err)
	}

	return summary, nil
}
