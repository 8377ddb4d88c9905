package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jat99/PowerMonitor/internal/db/models"
	"github.com/jat99/PowerMonitor/internal/db/repository"
	"github.com/jat99/PowerMonitor/internal/outage"
	"github.com/jat99/PowerMonitor/internal/utils"
	"go.uber.org/zap"
)

// OutageService owns the outage lifecycle and serves stored outages as an outage.Source
type OutageService struct {
	repo      repository.OutageRepository
	location  *time.Location
	publisher EventPublisher
	logger    *utils.Logger
}

// NewOutageService creates a new outage service. A nil publisher drops events.
func NewOutageService(repo repository.OutageRepository, loc *time.Location, publisher EventPublisher, logger *utils.Logger) *OutageService {
	if loc == nil {
		loc = time.Local
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &OutageService{
		repo:      repo,
		location:  loc,
		publisher: publisher,
		logger:    logger.Named("outage_service"),
	}
}

// Open records a new active outage. Only one outage may be active at a time;
// the store's single-active index backs the check against concurrent writers.
func (s *OutageService) Open(ctx context.Context, start time.Time, voltageBefore float64, cause string) (outage.View, error) {
	var created outage.Record
	err := s.repo.Transaction(ctx, func(repo repository.OutageRepository) error {
		active, err := repo.GetActive(ctx)
		switch {
		case err == nil:
			return fmt.Errorf("%w: outage %d since %s", outage.ErrAlreadyActive, active.ID,
				active.StartTime.In(s.location).Format(outage.DisplayLayout))
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		rec := outage.NewActive("", start, voltageBefore, cause)
		row := &models.Outage{}
		row.ApplyRecord(rec, s.location)
		if err := repo.Create(ctx, row); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				// Another writer opened one after the check above
				return fmt.Errorf("%w: opened concurrently", outage.ErrAlreadyActive)
			}
			return err
		}

		rec.ID = strconv.FormatUint(uint64(row.ID), 10)
		created = rec
		return nil
	})
	if err != nil {
		return outage.View{}, err
	}

	view := created.Display(s.location)
	s.logger.Info("Outage opened",
		zap.String("outage_id", created.ID),
		zap.Time("start_time", created.StartTime),
		zap.Float64("voltage_before", voltageBefore))
	s.publish(ctx, OutageOpened, view)
	return view, nil
}

// Resolve closes the outage with the given id
func (s *OutageService) Resolve(ctx context.Context, id string, end time.Time, voltageAfter float64) (outage.View, error) {
	rowID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return outage.View{}, fmt.Errorf("%w: outage id %q", utils.ErrBadRequest, id)
	}
	return s.resolve(ctx, func(repo repository.OutageRepository) (*models.Outage, error) {
		return repo.GetByID(ctx, uint(rowID))
	}, end, voltageAfter)
}

// ResolveLatest closes the most recently recorded outage
func (s *OutageService) ResolveLatest(ctx context.Context, end time.Time, voltageAfter float64) (outage.View, error) {
	return s.resolve(ctx, func(repo repository.OutageRepository) (*models.Outage, error) {
		return repo.GetLatest(ctx)
	}, end, voltageAfter)
}

// ResolveActive closes the active outage, if there is one. The bool reports whether one was closed.
func (s *OutageService) ResolveActive(ctx context.Context, end time.Time, voltageAfter float64) (outage.View, bool, error) {
	view, err := s.resolve(ctx, func(repo repository.OutageRepository) (*models.Outage, error) {
		return repo.GetActive(ctx)
	}, end, voltageAfter)
	if errors.Is(err, repository.ErrNotFound) {
		return outage.View{}, false, nil
	}
	return view, err == nil, err
}

func (s *OutageService) resolve(
	ctx context.Context,
	find func(repo repository.OutageRepository) (*models.Outage, error),
	end time.Time,
	voltageAfter float64,
) (outage.View, error) {
	var resolved outage.Record
	err := s.repo.Transaction(ctx, func(repo repository.OutageRepository) error {
		row, err := find(repo)
		if err != nil {
			return err
		}

		rec, err := row.ToRecord()
		if err != nil {
			return err
		}
		if resolved, err = rec.Resolve(end, voltageAfter); err != nil {
			return err
		}

		row.ApplyRecord(resolved, s.location)
		return repo.Update(ctx, row)
	})
	if err != nil {
		return outage.View{}, err
	}

	view := resolved.Display(s.location)
	s.logger.Info("Outage resolved",
		zap.String("outage_id", resolved.ID),
		zap.String("duration", view.Duration),
		zap.Float64("voltage_after", voltageAfter))
	s.publish(ctx, OutageResolved, view)
	return view, nil
}

// Active returns the active outage, or nil when power is on
func (s *OutageService) Active(ctx context.Context) (*outage.View, error) {
	row, err := s.repo.GetActive(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec, err := row.ToRecord()
	if err != nil {
		return nil, err
	}
	view := rec.Display(s.location)
	return &view, nil
}

// Fetch implements outage.Source over the outages table, newest first
func (s *OutageService) Fetch(ctx context.Context, q outage.Query) ([]outage.Record, error) {
	from, to, _ := q.Bounds(s.location)

	rows, err := s.repo.ListStartedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	records := make([]outage.Record, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].ToRecord()
		if err != nil {
			return nil, fmt.Errorf("outage %d: %w", rows[i].ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Location returns the zone outage days and display fields are computed in
func (s *OutageService) Location() *time.Location {
	return s.location
}

func (s *OutageService) publish(ctx context.Context, eventType OutageEventType, view outage.View) {
	s.publisher.PublishOutageEvent(ctx, OutageEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Outage:    view,
	})
}
