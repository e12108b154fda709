// Package ingestion turns a batch of uploads into extracted documents.
//
// Each upload is hashed and extracted, then stored in the object store
// when its content is new. Failures are recorded per file and never abort the
// rest of the batch.
package ingestion

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medichat/internal/extraction"
	"github.com/fyrsmithlabs/medichat/internal/logging"
	"github.com/fyrsmithlabs/medichat/internal/objectstore"
	"github.com/fyrsmithlabs/medichat/internal/sanitize"
)

// FilesTotal counts processed uploads by outcome.
var FilesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "medichat",
		Subsystem: "ingestion",
		Name:      "files_total",
		Help:      "Uploaded files processed, by outcome",
	},
	[]string{"result"},
)

// Upload is one file submitted for ingestion.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Failure names a file that could not be ingested.
type Failure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Report summarizes one ingestion batch. Documents holds every file that
// extracted successfully, new or duplicate, in upload order.
type Report struct {
	Uploaded   []string              `json:"uploaded"`
	Duplicates []string              `json:"duplicates"`
	Failed     []Failure             `json:"failed"`
	Documents  []extraction.Document `json:"-"`
}

// Service runs ingestion batches.
type Service struct {
	store     objectstore.Store
	extractor extraction.Extractor
	logger    *logging.Logger
}

// NewService returns a Service. A nil store disables persistence and
// duplicate detection across batches.
func NewService(store objectstore.Store, extractor extraction.Extractor, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{store: store, extractor: extractor, logger: logger}
}

// Ingest processes uploads in order. Upload names are reduced to safe
// base names first. The returned error is non-nil only
// when ctx ends; the report then covers the files handled so far.
func (s *Service) Ingest(ctx context.Context, uploads []Upload) (Report, error) {
	report := Report{Uploaded: []string{}, Duplicates: []string{}, Failed: []Failure{}}
	seen := make(map[string]bool)

	for _, u := range uploads {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		u.Name = sanitize.FileName(u.Name)

		hash := objectstore.ContentHash(u.Data)
		if seen[hash] {
			report.Duplicates = append(report.Duplicates, u.Name)
			FilesTotal.WithLabelValues("duplicate").Inc()
			continue
		}
		seen[hash] = true

		// Extract before storing so unreadable files never reach the store.
		doc, err := s.extractor.Extract(ctx, u.Name, u.Data)
		if err != nil {
			s.fail(ctx, &report, u.Name, err)
			continue
		}
		stored, err := s.persist(ctx, hash, u)
		if err != nil {
			s.fail(ctx, &report, u.Name, err)
			continue
		}
		report.Documents = append(report.Documents, doc)

		if stored {
			report.Uploaded = append(report.Uploaded, u.Name)
			FilesTotal.WithLabelValues("uploaded").Inc()
		} else {
			report.Duplicates = append(report.Duplicates, u.Name)
			FilesTotal.WithLabelValues("duplicate").Inc()
		}
	}

	s.logger.Info(ctx, "ingestion batch complete",
		zap.Int("uploaded", len(report.Uploaded)),
		zap.Int("duplicates", len(report.Duplicates)),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

// Reload extracts every object in the store, in storage order. Content
// is fetched one object at a time.
func (s *Service) Reload(ctx context.Context) (Report, error) {
	report := Report{Uploaded: []string{}, Duplicates: []string{}, Failed: []Failure{}}
	if s.store == nil {
		return report, nil
	}
	objects, err := s.store.List(ctx)
	if err != nil {
		return report, fmt.Errorf("listing stored documents: %w", err)
	}
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		full, err := s.store.Get(ctx, obj.Hash)
		if err != nil {
			s.fail(ctx, &report, obj.Name, err)
			continue
		}
		doc, err := s.extractor.Extract(ctx, full.Name, full.Data)
		if err != nil {
			s.fail(ctx, &report, obj.Name, err)
			continue
		}
		report.Documents = append(report.Documents, doc)
	}
	s.logger.Info(ctx, "stored documents reloaded",
		zap.Int("documents", len(report.Documents)),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

// Stored lists the metadata of every stored document.
func (s *Service) Stored(ctx context.Context) ([]objectstore.Object, error) {
	if s.store == nil {
		return []objectstore.Object{}, nil
	}
	objects, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stored documents: %w", err)
	}
	return objects, nil
}

// Remove deletes the stored document with hash. Sessions that already
// indexed it keep their copy. It returns objectstore.ErrNotFound for an
// unknown hash.
func (s *Service) Remove(ctx context.Context, hash string) error {
	if s.store == nil {
		return fmt.Errorf("%w: %s", objectstore.ErrNotFound, hash)
	}
	exists, err := s.store.Exists(ctx, hash)
	if err != nil {
		return fmt.Errorf("checking object store: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", objectstore.ErrNotFound, hash)
	}
	if err := s.store.Delete(ctx, hash); err != nil {
		return fmt.Errorf("deleting stored document: %w", err)
	}
	s.logger.Info(ctx, "stored document removed", zap.String("hash", hash))
	return nil
}

// persist stores u unless its content is already present and reports
// whether it was new.
func (s *Service) persist(ctx context.Context, hash string, u Upload) (bool, error) {
	if s.store == nil {
		return true, nil
	}
	exists, err := s.store.Exists(ctx, hash)
	if err != nil {
		return false, fmt.Errorf("checking object store: %w", err)
	}
	if exists {
		return false, nil
	}
	stored, err := s.store.Put(ctx, objectstore.Object{Name: u.Name, ContentType: u.ContentType, Data: u.Data})
	if err != nil {
		return false, fmt.Errorf("storing upload: %w", err)
	}
	return stored, nil
}

func (s *Service) fail(ctx context.Context, report *Report, name string, err error) {
	report.Failed = append(report.Failed, Failure{Name: name, Reason: err.Error()})
	FilesTotal.WithLabelValues("failed").Inc()
	s.logger.Warn(ctx, "file ingestion failed", zap.String("file", name), zap.Error(err))
}
