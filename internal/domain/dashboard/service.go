package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/leonunesbs/injecoes-v2/internal/domain/treatment"
	"github.com/leonunesbs/injecoes-v2/internal/platform/metrics"
)

// Service computes read-only reports over the ledger. Every report is
// built from a fresh snapshot and never writes.
type Service struct {
	repo    Repository
	catalog CatalogReader
	loc     *time.Location
	now     func() time.Time
	logger  zerolog.Logger
}

func NewService(repo Repository, cat CatalogReader, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, catalog: cat, loc: loc, now: time.Now, logger: logger}
}

type source uint8

const (
	srcCounts source = 1 << iota
	srcPatients
	srcPrescriptions
	srcDoses
	srcCatalog
)

type snapshot struct {
	counts        Counts
	patients      []PatientFacts
	prescriptions []PrescriptionFacts
	doses         []AppliedDose
	catalog       *catalogIndex
}

// load reads the requested sources concurrently. Each goroutine owns one
// snapshot field.
func (s *Service) load(ctx context.Context, want source) (*snapshot, error) {
	snap := &snapshot{catalog: newCatalogIndex(nil, nil, nil)}
	g, ctx := errgroup.WithContext(ctx)

	if want&srcCounts != 0 {
		g.Go(func() (err error) {
			snap.counts, err = s.repo.Counts(ctx)
			return err
		})
	}
	if want&srcPatients != 0 {
		g.Go(func() (err error) {
			snap.patients, err = s.repo.ActivePatients(ctx)
			return err
		})
	}
	if want&srcPrescriptions != 0 {
		g.Go(func() (err error) {
			snap.prescriptions, err = s.repo.Prescriptions(ctx)
			return err
		})
	}
	if want&srcDoses != 0 {
		g.Go(func() (err error) {
			snap.doses, err = s.repo.AppliedDoses(ctx)
			return err
		})
	}
	if want&srcCatalog != 0 {
		g.Go(func() error {
			ind, err := s.catalog.ListIndications(ctx)
			if err != nil {
				return err
			}
			med, err := s.catalog.ListMedications(ctx)
			if err != nil {
				return err
			}
			sw, err := s.catalog.ListSwalis(ctx)
			if err != nil {
				return err
			}
			snap.catalog = newCatalogIndex(ind, med, sw)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load dashboard snapshot: %w", err)
	}
	return snap, nil
}

func (s *Service) ClinicalProfile(ctx context.Context) ([]IndicationProfile, error) {
	defer metrics.ObserveAnalytics("clinical_profile")()
	snap, err := s.load(ctx, srcPrescriptions|srcCatalog)
	if err != nil {
		return nil, err
	}
	return buildClinicalProfile(snap), nil
}

func (s *Service) QuantitativeAnalysis(ctx context.Context) (*Quantitative, error) {
	defer metrics.ObserveAnalytics("quantitative")()
	snap, err := s.load(ctx, srcCounts|srcPrescriptions|srcCatalog)
	if err != nil {
		return nil, err
	}
	return buildQuantitative(snap), nil
}

func (s *Service) DoseIntervalAnalysis(ctx context.Context) (*DoseIntervals, error) {
	defer metrics.ObserveAnalytics("dose_intervals")()
	snap, err := s.load(ctx, srcPatients|srcPrescriptions|srcDoses|srcCatalog)
	if err != nil {
		return nil, err
	}
	return buildDoseIntervals(snap), nil
}

func (s *Service) PatientRanking(ctx context.Context, q RankingQuery) ([]RankingRow, error) {
	defer metrics.ObserveAnalytics("ranking")()
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}
	snap, err := s.load(ctx, srcPatients|srcPrescriptions|srcDoses|srcCatalog)
	if err != nil {
		return nil, err
	}
	return buildRanking(snap, q), nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	defer metrics.ObserveAnalytics("stats")()
	snap, err := s.load(ctx, srcCounts|srcPrescriptions|srcCatalog)
	if err != nil {
		return nil, err
	}
	return buildStats(snap), nil
}

// DueInjectionCounts counts active patients' injections that need
// attention on the business day containing now. A zero now means the
// current time.
func (s *Service) DueInjectionCounts(ctx context.Context, now time.Time) (DueCounts, error) {
	defer metrics.ObserveAnalytics("due_injections")()
	if now.IsZero() {
		now = s.now()
	}
	start, end := DayBounds(now, s.loc)

	var out DueCounts
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.OverdueScheduled, err = s.repo.CountInjections(ctx, InjectionFilter{
			Status: treatment.InjectionScheduled, Before: &start,
		})
		return err
	})
	g.Go(func() (err error) {
		out.DueToday, err = s.repo.CountInjections(ctx, InjectionFilter{
			Status: treatment.InjectionScheduled, From: &start, To: &end,
		})
		return err
	})
	g.Go(func() (err error) {
		out.Missed, err = s.repo.CountInjections(ctx, InjectionFilter{Status: treatment.InjectionMissed})
		return err
	})
	if err := g.Wait(); err != nil {
		return DueCounts{}, fmt.Errorf("count due injections: %w", err)
	}
	out.Total = out.OverdueScheduled + out.DueToday + out.Missed

	s.logger.Debug().
		Time("day_start", start).
		Int("overdue", out.OverdueScheduled).
		Int("due_today", out.DueToday).
		Int("missed", out.Missed).
		Msg("due injections counted")
	return out, nil
}
