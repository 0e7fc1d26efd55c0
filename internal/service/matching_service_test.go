package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-swap-api/internal/dto"
	"github.com/noah-isme/sma-swap-api/internal/models"
	"github.com/noah-isme/sma-swap-api/internal/repository"
	appErrors "github.com/noah-isme/sma-swap-api/pkg/errors"
)

func TestMatchingServiceOpenRequestRace(t *testing.T) {
	f := newSwapFixture()
	ctx := context.Background()
	req, err := f.swaps.Create(ctx, teacherActor("A", "S1"), dto.CreateSwapRequest{Day: "tue", Period: 3, Subject: "Math"})
	require.NoError(t, err)

	matched, err := f.matching.Accept(ctx, teacherActor("B", "S1"), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusMatched, matched.Status)
	require.NotNil(t, matched.AccepterID)
	assert.Equal(t, "B", *matched.AccepterID)
	assert.Equal(t, "Teacher B", *matched.AccepterName)
	assert.NotNil(t, matched.MatchedAt)

	_, err = f.matching.Accept(ctx, teacherActor("C", "S1"), req.ID)
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyMatched))

	stored, err := f.store.GetByID(ctx, "S1", req.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", *stored.AccepterID)
	assert.Equal(t, []string{req.ID}, f.notifier.accepted)
}

func TestMatchingServiceDirectRequestTargetMismatch(t *testing.T) {
	f := newSwapFixture()
	ctx := context.Background()
	req, err := f.swaps.Create(ctx, teacherActor("A", "S1"), dto.CreateSwapRequest{Day: "wed", Period: 1, Subject: "Art", ToID: "B"})
	require.NoError(t, err)

	_, err = f.matching.Accept(ctx, teacherActor("C", "S1"), req.ID)
	assert.True(t, errors.Is(err, appErrors.ErrTargetMismatch))

	stored, err := f.store.GetByID(ctx, "S1", req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusPending, stored.Status)

	matched, err := f.matching.Accept(ctx, teacherActor("B", "S1"), req.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", *matched.AccepterID)
}

func TestMatchingServiceSelfAccept(t *testing.T) {
	f := newSwapFixture()
	ctx := context.Background()
	a := teacherActor("A", "S1")
	req, err := f.swaps.Create(ctx, a, dto.CreateSwapRequest{Day: "mon", Period: 5, Subject: "PE"})
	require.NoError(t, err)

	_, err = f.matching.Accept(ctx, a, req.ID)
	assert.True(t, errors.Is(err, appErrors.ErrSelfAcceptNotAllowed))

	stored, _ := f.store.GetByID(ctx, "S1", req.ID)
	assert.Equal(t, models.SwapStatusPending, stored.Status)
}

func TestMatchingServiceAcceptAfterDeleteIsNotFound(t *testing.T) {
	f := newSwapFixture()
	ctx := context.Background()
	a := teacherActor("A", "S1")
	req, err := f.swaps.Create(ctx, a, dto.CreateSwapRequest{Day: "mon", Period: 5, Subject: "PE"})
	require.NoError(t, err)
	require.NoError(t, f.swaps.Delete(ctx, a, req.ID))

	_, err = f.matching.Accept(ctx, teacherActor("B", "S1"), req.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestMatchingServiceOtherSchoolIsNotFound(t *testing.T) {
	f := newSwapFixture()
	ctx := context.Background()
	req, err := f.swaps.Create(ctx, teacherActor("A", "S1"), dto.CreateSwapRequest{Day: "mon", Period: 5, Subject: "PE"})
	require.NoError(t, err)

	_, err = f.matching.Accept(ctx, teacherActor("X", "S2"), req.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestMatchingServiceConcurrentAcceptsHaveOneWinner(t *testing.T) {
	f := newSwapFixture()
	ctx := context.Background()
	req, err := f.swaps.Create(ctx, teacherActor("A", "S1"), dto.CreateSwapRequest{Day: "thu", Period: 6, Subject: "History"})
	require.NoError(t, err)

	const contenders = 32
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  []string
		conflict int
		other    []error
	)
	start := make(chan struct{})
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			<-start
			matched, err := f.matching.Accept(ctx, teacherActor(id, "S1"), req.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, *matched.AccepterID)
			case errors.Is(err, appErrors.ErrAlreadyMatched):
				conflict++
			default:
				other = append(other, err)
			}
		}(fmt.Sprintf("T%02d", i))
	}
	close(start)
	wg.Wait()

	require.Empty(t, other)
	require.Len(t, winners, 1)
	assert.Equal(t, contenders-1, conflict)

	stored, err := f.store.GetByID(ctx, "S1", req.ID)
	require.NoError(t, err)
	assert.Equal(t, winners[0], *stored.AccepterID)
	assert.Len(t, f.notifier.accepted, 1)
}

func TestMatchingServiceLostCASReportsAlreadyMatched(t *testing.T) {
	f := newSwapFixture()
	ctx := context.Background()
	req, err := f.swaps.Create(ctx, teacherActor("A", "S1"), dto.CreateSwapRequest{Day: "thu", Period: 6, Subject: "History"})
	require.NoError(t, err)

	// Simulate a winner landing between the read and the conditional write.
	racing := &racingSwapStore{memSwapStore: f.store, winner: "C"}
	coordinator := NewMatchingService(racing, nil, nil, nil, nil)

	_, err = coordinator.Accept(ctx, teacherActor("B", "S1"), req.ID)
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyMatched))

	stored, _ := f.store.GetByID(ctx, "S1", req.ID)
	assert.Equal(t, "C", *stored.AccepterID)
}

func TestMatchingServiceStoreFailure(t *testing.T) {
	f := newSwapFixture()
	ctx := context.Background()
	req, err := f.swaps.Create(ctx, teacherActor("A", "S1"), dto.CreateSwapRequest{Day: "thu", Period: 6, Subject: "History"})
	require.NoError(t, err)
	f.store.acceptErr = errors.New("boom")

	_, err = f.matching.Accept(ctx, teacherActor("B", "S1"), req.ID)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Empty(t, f.notifier.accepted)
}

func TestAcceptOutcome(t *testing.T) {
	assert.Equal(t, AcceptOutcomeMatched, acceptOutcome(nil))
	assert.Equal(t, AcceptOutcomeAlreadyMatched, acceptOutcome(appErrors.WithEntity(appErrors.ErrAlreadyMatched, "x", "")))
	assert.Equal(t, AcceptOutcomeRejected, acceptOutcome(appErrors.ErrTargetMismatch))
	assert.Equal(t, AcceptOutcomeNotFound, acceptOutcome(appErrors.ErrNotFound))
	assert.Equal(t, AcceptOutcomeError, acceptOutcome(errors.New("x")))
}

type racingSwapStore struct {
	*memSwapStore
	winner string
	once   sync.Once
}

func (r *racingSwapStore) Accept(ctx context.Context, params repository.AcceptParams) (*models.SwapRequest, error) {
	r.once.Do(func() {
		winner := params
		winner.AccepterID = r.winner
		winner.AccepterName = "Teacher " + r.winner
		_, _ = r.memSwapStore.Accept(ctx, winner)
	})
	return r.memSwapStore.Accept(ctx, params)
}
