package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-swap-api/internal/models"
)

type directoryStore interface {
	UpsertTeacher(ctx context.Context, teacher *models.Teacher) error
}

// DirectoryService mirrors authenticated teachers into the local directory
// so availability search can list colleagues who never saved a schedule.
type DirectoryService struct {
	repo    directoryStore
	cache   *CacheService
	logger  *zap.Logger
	refresh time.Duration
	now     func() time.Time

	mu        sync.Mutex
	seen      map[string]directoryEntry
	lastPrune time.Time
}

type directoryEntry struct {
	teacher models.Teacher
	at      time.Time
}

// NewDirectoryService constructs the service. refresh bounds how often a known teacher is rewritten.
func NewDirectoryService(repo directoryStore, cache *CacheService, logger *zap.Logger, refresh time.Duration) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if refresh <= 0 {
		refresh = 10 * time.Minute
	}
	return &DirectoryService{
		repo:    repo,
		cache:   cache,
		logger:  logger,
		refresh: refresh,
		now:     time.Now,
		seen:    make(map[string]directoryEntry),
	}
}

// Touch records the caller in the directory. Failures are logged and never block the request.
func (s *DirectoryService) Touch(ctx context.Context, actor models.Actor) {
	if s == nil || s.repo == nil || actor.TeacherID == "" || actor.SchoolCode == "" || actor.Role != models.RoleTeacher {
		return
	}
	teacher := teacherFromActor(actor)
	now := s.now()

	s.mu.Lock()
	prev, known := s.seen[actor.TeacherID]
	fresh := known && prev.teacher.SchoolCode == teacher.SchoolCode &&
		prev.teacher.DisplayName == teacher.DisplayName &&
		prev.teacher.ClassLabel == teacher.ClassLabel &&
		now.Sub(prev.at) < s.refresh
	s.mu.Unlock()
	if fresh {
		return
	}

	if err := s.repo.UpsertTeacher(ctx, teacher); err != nil {
		s.logger.Warn("failed to refresh teacher directory", zap.String("teacher_id", actor.TeacherID), zap.Error(err))
		return
	}

	s.mu.Lock()
	s.seen[actor.TeacherID] = directoryEntry{teacher: *teacher, at: now}
	s.pruneLocked(now)
	s.mu.Unlock()

	if !known || prev.teacher.SchoolCode != teacher.SchoolCode {
		s.cache.InvalidateAvailability(ctx, teacher.SchoolCode)
		if known {
			s.cache.InvalidateAvailability(ctx, prev.teacher.SchoolCode)
		}
	}
}

// pruneLocked drops entries older than refresh, at most once per refresh window.
// A pruned teacher is simply rewritten on their next request.
func (s *DirectoryService) pruneLocked(now time.Time) {
	if now.Sub(s.lastPrune) < s.refresh {
		return
	}
	for id, entry := range s.seen {
		if now.Sub(entry.at) >= s.refresh {
			delete(s.seen, id)
		}
	}
	s.lastPrune = now
}

func teacherFromActor(actor models.Actor) *models.Teacher {
	return &models.Teacher{
		ID:          actor.TeacherID,
		SchoolCode:  actor.SchoolCode,
		DisplayName: actor.DisplayName,
		ClassLabel:  actor.ClassLabel,
		Active:      true,
	}
}
