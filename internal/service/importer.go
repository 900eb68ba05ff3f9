package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/logging"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/store"
)

// ImportStats tracks import statistics
type ImportStats struct {
	Total     int
	Imported  int
	Changed   int
	Unchanged int
	Skipped   int
	Failed    int
}

// Importer loads reference records from a JSON export into the store
type Importer struct {
	store  *store.ReferenceStore
	logger *logrus.Entry
}

// NewImporter creates a new Importer
func NewImporter(s *store.ReferenceStore) *Importer {
	return &Importer{
		store:  s,
		logger: logging.New("import"),
	}
}

// ImportFile imports the JSON array of references stored at path
func (i *Importer) ImportFile(ctx context.Context, path string) (*ImportStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	return i.Import(ctx, f)
}

// Import upserts every valid reference read from r. Records that fail
// validation are skipped; records identical to the stored copy are left
// untouched.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*ImportStats, error) {
	var refs []model.Reference
	if err := json.NewDecoder(r).Decode(&refs); err != nil {
		return nil, fmt.Errorf("failed to decode references: %w", err)
	}

	stats := &ImportStats{Total: len(refs)}
	i.logger.Infof("Found %d references to import", stats.Total)

	for idx, ref := range refs {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		log := i.logger.WithFields(logrus.Fields{
			"progress": fmt.Sprintf("%d/%d", idx+1, stats.Total),
			"id":       ref.ID,
			"title":    ref.Title,
		})

		if err := model.Validate(ref); err != nil {
			log.WithError(err).Warn("Skipping invalid reference")
			stats.Skipped++
			continue
		}

		changed, err := i.importReference(ctx, ref)
		if err != nil {
			log.WithError(err).Error("Failed to import reference")
			stats.Failed++
			continue
		}

		stats.Imported++
		if changed {
			log.Debug("Reference saved")
			stats.Changed++
		} else {
			log.Debug("Reference unchanged")
			stats.Unchanged++
		}
	}

	return stats, nil
}

// importReference saves ref unless the stored copy already has the same
// content
func (i *Importer) importReference(ctx context.Context, ref model.Reference) (bool, error) {
	if ref.ID != "" {
		existing, err := i.store.Get(ctx, ref.ID)
		if err != nil {
			return false, fmt.Errorf("failed to look up reference: %w", err)
		}
		if existing != nil {
			same, err := sameContent(*existing, ref)
			if err != nil {
				return false, err
			}
			if same {
				return false, nil
			}
		}
	}

	if _, err := i.store.Upsert(ctx, ref); err != nil {
		return false, fmt.Errorf("failed to save reference: %w", err)
	}
	return true, nil
}

// sameContent compares the editable fields of two references by checksum
func sameContent(a, b model.Reference) (bool, error) {
	sa, err := contentChecksum(a)
	if err != nil {
		return false, err
	}
	sb, err := contentChecksum(b)
	if err != nil {
		return false, err
	}
	return sa == sb, nil
}

func contentChecksum(r model.Reference) (string, error) {
	tags := slices.Clone(r.Tags)
	slices.Sort(tags)
	data, err := json.Marshal(struct {
		Title, Customer, OrderNumber, Notes string
		Section                             model.Section
		Tags                                []string
		Image                               model.Image
	}{r.Title, r.Customer, r.OrderNumber, r.Notes, r.Section, tags, r.Image})
	if err != nil {
		return "", fmt.Errorf("failed to encode reference: %w", err)
	}
	return store.Checksum(data), nil
}

// PrintSummary prints the import statistics
func (i *Importer) PrintSummary(stats *ImportStats) {
	i.logger.Info("=== Import Summary ===")
	i.logger.Infof("Total references: %d", stats.Total)
	i.logger.Infof("Imported:         %d", stats.Imported)
	i.logger.Infof("Changed:          %d", stats.Changed)
	i.logger.Infof("Unchanged:        %d", stats.Unchanged)
	i.logger.Infof("Skipped:          %d (invalid)", stats.Skipped)
	i.logger.Infof("Failed:           %d", stats.Failed)

	if valid := stats.Total - stats.Skipped; valid > 0 {
		i.logger.Infof("Success rate:     %.1f%%", float64(stats.Imported)/float64(valid)*100)
	}
}
