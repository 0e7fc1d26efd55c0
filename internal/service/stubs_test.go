package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/sma-swap-api/internal/models"
	"github.com/noah-isme/sma-swap-api/internal/repository"
	appErrors "github.com/noah-isme/sma-swap-api/pkg/errors"
)

// memSwapStore mirrors the conditional writes of SwapRequestRepository.
type memSwapStore struct {
	mu        sync.Mutex
	items     map[string]*models.SwapRequest
	seq       int
	getErr    error
	acceptErr error
}

func newMemSwapStore() *memSwapStore {
	return &memSwapStore{items: make(map[string]*models.SwapRequest)}
}

func (m *memSwapStore) Create(ctx context.Context, req *models.SwapRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if req.ID == "" {
		req.ID = fmt.Sprintf("req-%03d", m.seq)
	}
	req.Status = models.SwapStatusPending
	req.CreatedAt = req.CreatedAt.Add(time.Duration(m.seq) * time.Millisecond)
	cp := *req
	m.items[req.ID] = &cp
	return nil
}

func (m *memSwapStore) GetByID(ctx context.Context, schoolCode, id string) (*models.SwapRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	req, ok := m.items[id]
	if !ok || req.SchoolCode != schoolCode {
		return nil, sql.ErrNoRows
	}
	cp := *req
	return &cp, nil
}

func (m *memSwapStore) List(ctx context.Context, schoolCode string, filter models.SwapFilter) ([]models.SwapRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SwapRequest, 0)
	for _, req := range m.items {
		if req.SchoolCode != schoolCode || !req.VisibleTo(filter.ViewerID) {
			continue
		}
		switch filter.Scope {
		case models.SwapScopeMine:
			if req.RequesterID != filter.ViewerID {
				continue
			}
		case models.SwapScopeInbox:
			if req.ToID == nil || *req.ToID != filter.ViewerID {
				continue
			}
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		out = append(out, *req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memSwapStore) Accept(ctx context.Context, params repository.AcceptParams) (*models.SwapRequest, error) {
	if m.acceptErr != nil {
		return nil, m.acceptErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.items[params.ID]
	if !ok || req.SchoolCode != params.SchoolCode || req.Status != models.SwapStatusPending || req.RequesterID == params.AccepterID {
		return nil, sql.ErrNoRows
	}
	matchedAt := params.MatchedAt
	req.Status = models.SwapStatusMatched
	req.AccepterID = strPtr(params.AccepterID)
	req.AccepterName = strPtr(params.AccepterName)
	req.MatchedAt = &matchedAt
	cp := *req
	return &cp, nil
}

func (m *memSwapStore) DeletePending(ctx context.Context, schoolCode, id, requesterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.items[id]
	if !ok || req.SchoolCode != schoolCode || req.RequesterID != requesterID || req.Status != models.SwapStatusPending {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

type memTeachers struct {
	items map[string]*models.Teacher
	err   error
}

func (m *memTeachers) FindTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	if m.err != nil {
		return nil, m.err
	}
	if t, ok := m.items[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type recordingNotifier struct {
	mu       sync.Mutex
	created  []string
	accepted []string
}

func (n *recordingNotifier) SwapCreated(req *models.SwapRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, req.ID)
}

func (n *recordingNotifier) SwapAccepted(req *models.SwapRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accepted = append(n.accepted, req.ID)
}

type memAudit struct {
	mu   sync.Mutex
	logs []models.AuditLog
	err  error
}

func (m *memAudit) Create(ctx context.Context, log *models.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, l.Action)
	}
	return out
}

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = payload
	return nil
}

func (m *memCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, pattern)
	prefix := pattern
	if n := len(prefix); n > 0 && prefix[n-1] == '*' {
		prefix = prefix[:n-1]
	}
	for key := range m.data {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(m.data, key)
		}
	}
	return nil
}

func teacherActor(id, school string) models.Actor {
	return models.Actor{TeacherID: id, DisplayName: "Teacher " + id, SchoolCode: school, ClassLabel: "1-1", Role: models.RoleTeacher}
}
