package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func TestRevokeExpired(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := newRecorder()
	f.svc.SetMetrics(rec)

	f.st.EXPECT().RevokeExpiredSessions(gomock.Any(), epoch).Return(int64(3), nil)

	n, err := f.svc.RevokeExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
	require.EqualValues(t, 3, rec.revoked["janitor"])

	f.st.EXPECT().RevokeExpiredSessions(gomock.Any(), epoch).Return(int64(0), errors.New("db down"))

	_, err = f.svc.RevokeExpired(context.Background())
	require.ErrorIs(t, err, ErrInternalStore)
}

func TestRunJanitor_TicksUntilCanceled(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	called := make(chan time.Time, 2)
	f.st.EXPECT().RevokeExpiredSessions(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, now time.Time) (int64, error) {
			called <- now
			return 1, nil
		}).Times(2)

	done := make(chan struct{})
	go func() {
		f.svc.RunJanitor(ctx, time.Minute)
		close(done)
	}()

	f.clk.BlockUntil(1)

	f.clk.Advance(time.Minute)
	require.Equal(t, epoch.Add(time.Minute), <-called)

	f.clk.Advance(time.Minute)
	require.Equal(t, epoch.Add(2*time.Minute), <-called)

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestRunJanitor_DisabledPeriod(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.svc.RunJanitor(context.Background(), 0)
}
