package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/sma-swap-api/internal/models"
	appErrors "github.com/noah-isme/sma-swap-api/pkg/errors"
)

type schoolScheduleLister interface {
	ListSchoolSchedules(ctx context.Context, schoolCode string) ([]models.SchoolSchedule, error)
}

// AvailabilityService answers which colleagues are free in a slot.
// Each lookup is a full scan of the school's schedules, O(teachers in school);
// results may be cached briefly and are advisory, never a reservation.
type AvailabilityService struct {
	repo    schoolScheduleLister
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	group   singleflight.Group

	scanTimeout time.Duration
}

const defaultScanTimeout = 5 * time.Second

// NewAvailabilityService constructs the service.
func NewAvailabilityService(repo schoolScheduleLister, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, cache: cache, metrics: metrics, logger: logger, scanTimeout: defaultScanTimeout}
}

// FindAvailable returns free teachers of the school at (day, period) ordered by id.
// excludeTeacherID is never part of the result.
func (s *AvailabilityService) FindAvailable(ctx context.Context, schoolCode string, day models.Day, period int, excludeTeacherID string) ([]models.TeacherSummary, error) {
	if schoolCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "school code is required")
	}
	if !day.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "day must be one of mon, tue, wed, thu, fri")
	}
	if !models.ValidPeriod(period) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period must be between 1 and 7")
	}

	start := time.Now()
	key := AvailabilityKey(schoolCode, day, period)
	source := "cache"

	var free []models.TeacherSummary
	if !s.cache.Get(ctx, key, &free) {
		source = "store"
		// The shared scan outlives any single caller; each caller only waits on its own context.
		ch := s.group.DoChan(key, func() (interface{}, error) {
			scanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.scanTimeout)
			defer cancel()
			scanned, err := s.scan(scanCtx, schoolCode, day, period)
			if err != nil {
				return nil, err
			}
			s.cache.Set(scanCtx, key, scanned)
			return scanned, nil
		})
		select {
		case <-ctx.Done():
			return nil, storeError(ctx.Err(), "availability lookup abandoned")
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			free = res.Val.([]models.TeacherSummary)
		}
	}

	result := make([]models.TeacherSummary, 0, len(free))
	for _, teacher := range free {
		if teacher.ID == excludeTeacherID {
			continue
		}
		result = append(result, teacher)
	}
	s.metrics.ObserveAvailabilityScan(source, time.Since(start), len(result))
	return result, nil
}

func (s *AvailabilityService) scan(ctx context.Context, schoolCode string, day models.Day, period int) ([]models.TeacherSummary, error) {
	rows, err := s.repo.ListSchoolSchedules(ctx, schoolCode)
	if err != nil {
		return nil, storeError(err, "failed to scan teacher schedules")
	}
	free := make([]models.TeacherSummary, 0, len(rows))
	for _, row := range rows {
		if row.SchoolCode != schoolCode || !row.Active {
			continue
		}
		if row.Grid != nil && strings.TrimSpace(row.Grid.Cell(day, period)) != "" {
			continue
		}
		free = append(free, row.Summary())
	}
	sort.SliceStable(free, func(i, j int) bool { return free[i].ID < free[j].ID })
	s.logger.Debug("availability scanned",
		zap.String("school_code", schoolCode),
		zap.String("day", string(day)),
		zap.Int("period", period),
		zap.Int("teachers", len(rows)),
		zap.Int("free", len(free)))
	return free, nil
}
