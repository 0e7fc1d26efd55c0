package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-swap-api/internal/dto"
	"github.com/noah-isme/sma-swap-api/internal/models"
	appErrors "github.com/noah-isme/sma-swap-api/pkg/errors"
)

type swapFixture struct {
	store    *memSwapStore
	teachers *memTeachers
	notifier *recordingNotifier
	audit    *memAudit
	swaps    *SwapService
	matching *MatchingService
}

func newSwapFixture() *swapFixture {
	f := &swapFixture{
		store: newMemSwapStore(),
		teachers: &memTeachers{items: map[string]*models.Teacher{
			"B":  {ID: "B", SchoolCode: "S1", DisplayName: "Teacher B", Active: true},
			"C":  {ID: "C", SchoolCode: "S1", DisplayName: "Teacher C", Active: true},
			"X":  {ID: "X", SchoolCode: "S2", DisplayName: "Teacher X", Active: true},
			"Z0": {ID: "Z0", SchoolCode: "S1", DisplayName: "Gone", Active: false},
		}},
		notifier: &recordingNotifier{},
		audit:    &memAudit{},
	}
	f.swaps = NewSwapService(f.store, f.teachers, f.notifier, f.audit, nil, nil, zap.NewNop())
	f.matching = NewMatchingService(f.store, f.notifier, f.audit, nil, zap.NewNop())
	return f
}

func TestSwapServiceCreateOpenRequest(t *testing.T) {
	f := newSwapFixture()
	a := teacherActor("A", "S1")

	req, err := f.swaps.Create(context.Background(), a, dto.CreateSwapRequest{Day: "Tue", Period: 3, Subject: " Math ", Note: "dentist"})
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusPending, req.Status)
	assert.Equal(t, models.DayTuesday, req.Day)
	assert.Equal(t, "Math", req.SubjectLabel)
	assert.Equal(t, "S1", req.SchoolCode)
	assert.Equal(t, "A", req.RequesterID)
	assert.Equal(t, "1-1", req.RequesterClassLabel)
	assert.False(t, req.IsDirect())
	assert.Nil(t, req.AccepterID)
	assert.Equal(t, []string{req.ID}, f.notifier.created)
	assert.Equal(t, []string{models.AuditActionSwapCreate}, f.audit.actions())
}

func TestSwapServiceCreateRejectsInvalidSlot(t *testing.T) {
	f := newSwapFixture()
	a := teacherActor("A", "S1")

	cases := map[string]dto.CreateSwapRequest{
		"empty subject": {Day: "mon", Period: 1, Subject: "   "},
		"period high":   {Day: "mon", Period: 8, Subject: "Math"},
		"period zero":   {Day: "mon", Period: 0, Subject: "Math"},
		"weekend":       {Day: "sat", Period: 1, Subject: "Math"},
		"empty day":     {Day: "", Period: 1, Subject: "Math"},
		"blank day":     {Day: "  ", Period: 1, Subject: "Math"},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.swaps.Create(context.Background(), a, payload)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrInvalidSlot), "got %v", err)
		})
	}
	assert.Empty(t, f.store.items)
}

func TestSwapServiceCreateDirectRequest(t *testing.T) {
	f := newSwapFixture()
	a := teacherActor("A", "S1")

	req, err := f.swaps.Create(context.Background(), a, dto.CreateSwapRequest{Day: "wed", Period: 2, Subject: "Art", ToID: "B"})
	require.NoError(t, err)
	require.True(t, req.IsDirect())
	assert.Equal(t, "B", *req.ToID)
	assert.Equal(t, "Teacher B", *req.ToName)
	assert.Equal(t, []string{req.ID}, f.notifier.created)
}

func TestSwapServiceCreateDirectRequestTargetChecks(t *testing.T) {
	f := newSwapFixture()
	a := teacherActor("A", "S1")

	_, err := f.swaps.Create(context.Background(), a, dto.CreateSwapRequest{Day: "wed", Period: 2, Subject: "Art", ToID: "A"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	for _, target := range []string{"X", "Z0", "missing"} {
		_, err = f.swaps.Create(context.Background(), a, dto.CreateSwapRequest{Day: "wed", Period: 2, Subject: "Art", ToID: target})
		assert.True(t, errors.Is(err, appErrors.ErrNotFound), target)
	}
}

func TestSwapServiceCreateRequiresIdentity(t *testing.T) {
	f := newSwapFixture()
	_, err := f.swaps.Create(context.Background(), models.Actor{TeacherID: "A"}, dto.CreateSwapRequest{Day: "mon", Period: 1, Subject: "Math"})
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestSwapServiceListHonoursVisibilityAndScopes(t *testing.T) {
	f := newSwapFixture()
	ctx := context.Background()
	a := teacherActor("A", "S1")
	b := teacherActor("B", "S1")
	c := teacherActor("C", "S1")

	open, err := f.swaps.Create(ctx, a, dto.CreateSwapRequest{Day: "mon", Period: 1, Subject: "Math"})
	require.NoError(t, err)
	direct, err := f.swaps.Create(ctx, a, dto.CreateSwapRequest{Day: "mon", Period: 2, Subject: "Art", ToID: "B"})
	require.NoError(t, err)
	_, err = f.swaps.Create(ctx, teacherActor("X", "S2"), dto.CreateSwapRequest{Day: "mon", Period: 1, Subject: "PE"})
	require.NoError(t, err)

	all, err := f.swaps.List(ctx, b, dto.SwapQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, direct.ID, all[0].ID, "newest first")
	assert.Equal(t, open.ID, all[1].ID)

	others, err := f.swaps.List(ctx, c, dto.SwapQuery{})
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, open.ID, others[0].ID)

	inbox, err := f.swaps.List(ctx, b, dto.SwapQuery{Filter: "inbox"})
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, direct.ID, inbox[0].ID)

	mine, err := f.swaps.List(ctx, a, dto.SwapQuery{Filter: "mine"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	matched, err := f.swaps.List(ctx, a, dto.SwapQuery{Status: "matched"})
	require.NoError(t, err)
	assert.Empty(t, matched)

	_, err = f.swaps.List(ctx, a, dto.SwapQuery{Filter: "everything"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestSwapServiceGetHidesDirectRequestsFromOthers(t *testing.T) {
	f := newSwapFixture()
	ctx := context.Background()
	direct, err := f.swaps.Create(ctx, teacherActor("A", "S1"), dto.CreateSwapRequest{Day: "fri", Period: 7, Subject: "Music", ToID: "B"})
	require.NoError(t, err)

	_, err = f.swaps.Get(ctx, teacherActor("B", "S1"), direct.ID)
	require.NoError(t, err)

	_, err = f.swaps.Get(ctx, teacherActor("C", "S1"), direct.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.swaps.Get(ctx, teacherActor("B", "S2"), direct.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestSwapServiceDelete(t *testing.T) {
	f := newSwapFixture()
	ctx := context.Background()
	a := teacherActor("A", "S1")
	req, err := f.swaps.Create(ctx, a, dto.CreateSwapRequest{Day: "thu", Period: 4, Subject: "Science"})
	require.NoError(t, err)

	err = f.swaps.Delete(ctx, teacherActor("B", "S1"), req.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, f.swaps.Delete(ctx, a, req.ID))
	err = f.swaps.Delete(ctx, a, req.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Contains(t, f.audit.actions(), models.AuditActionSwapDelete)
}

func TestSwapServiceThirdPartyMutationsOnDirectRequest(t *testing.T) {
	f := newSwapFixture()
	ctx := context.Background()
	direct, err := f.swaps.Create(ctx, teacherActor("A", "S1"), dto.CreateSwapRequest{Day: "mon", Period: 2, Subject: "Art", ToID: "B"})
	require.NoError(t, err)
	c := teacherActor("C", "S1")

	_, err = f.swaps.Get(ctx, c, direct.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	err = f.swaps.Delete(ctx, c, direct.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	_, err = f.matching.Accept(ctx, c, direct.ID)
	assert.True(t, errors.Is(err, appErrors.ErrTargetMismatch))

	err = f.swaps.Delete(ctx, teacherActor("B", "S1"), direct.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.Contains(t, f.store.items, direct.ID)

	err = f.swaps.Delete(ctx, teacherActor("A", "S2"), direct.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestSwapServiceDeleteMatchedRequestConflicts(t *testing.T) {
	f := newSwapFixture()
	ctx := context.Background()
	a := teacherActor("A", "S1")
	req, err := f.swaps.Create(ctx, a, dto.CreateSwapRequest{Day: "thu", Period: 4, Subject: "Science"})
	require.NoError(t, err)
	_, err = f.matching.Accept(ctx, teacherActor("B", "S1"), req.ID)
	require.NoError(t, err)

	err = f.swaps.Delete(ctx, a, req.ID)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Contains(t, f.store.items, req.ID)
}

func TestSwapServiceStoreFailureIsUnavailable(t *testing.T) {
	f := newSwapFixture()
	f.store.getErr = context.DeadlineExceeded
	_, err := f.swaps.Get(context.Background(), teacherActor("A", "S1"), "req-1")
	assert.True(t, errors.Is(err, appErrors.ErrStoreUnavailable))
}
