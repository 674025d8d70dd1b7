package aggregator

import (
	"context"
	"sync"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/stretchr/testify/mock"
)

type mockAdapter struct {
	mock.Mock
	provider domain.ProviderID
}

func newMockAdapter(p domain.ProviderID) *mockAdapter {
	return &mockAdapter{provider: p}
}

func (m *mockAdapter) Provider() domain.ProviderID {
	return m.provider
}

func (m *mockAdapter) Fetch(ctx context.Context, creds domain.Credentials) (domain.ProviderResult, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(domain.ProviderResult), args.Error(1)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context) (domain.Credentials, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Credentials), args.Error(1)
}

type mockRuns struct {
	mock.Mock
}

func (m *mockRuns) Record(ctx context.Context, run domain.RunRecord) error {
	return m.Called(ctx, run).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, title, message string) error {
	return m.Called(ctx, title, message).Error(0)
}

// memorySnapshots keeps every saved snapshot.
type memorySnapshots struct {
	mu    sync.Mutex
	saved []*domain.Snapshot
	err   error
}

func (s *memorySnapshots) Save(_ context.Context, snapshot *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, snapshot)
	return nil
}

func (s *memorySnapshots) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}
