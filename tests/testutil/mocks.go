package testutil

import (
	"context"

	"github.com/contesthub/contesthub/internal/api"
	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/session"
	"github.com/contesthub/contesthub/internal/sse"
	"github.com/stretchr/testify/mock"
)

// MockSessionService mocks the session Store
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Snapshot() session.Snapshot {
	args := m.Called()
	return args.Get(0).(session.Snapshot)
}

func (m *MockSessionService) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockSessionService) SignUp(ctx context.Context, in session.SignUpInput) (*models.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// SignInWithOAuth runs the Run hook registered on the expectation, if any, so tests can drive
// the opener.
func (m *MockSessionService) SignInWithOAuth(ctx context.Context, open session.Opener) (*models.User, error) {
	args := m.Called(ctx, open)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockSessionService) SignOut(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockSessionService) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error) {
	args := m.Called(ctx, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockPopupService mocks the OAuth popup broker
type MockPopupService struct {
	mock.Mock
}

func (m *MockPopupService) Complete(ctx context.Context, state, code, providerErr string) error {
	args := m.Called(ctx, state, code, providerErr)
	return args.Error(0)
}

func (m *MockPopupService) Cancel(state string) bool {
	args := m.Called(state)
	return args.Bool(0)
}

// MockEventHub mocks the SSE hub
type MockEventHub struct {
	mock.Mock
}

func (m *MockEventHub) Register(client *sse.Client) {
	m.Called(client)
}

func (m *MockEventHub) Unregister(client *sse.Client) {
	m.Called(client)
}

// MockBackend mocks the ContestHub API client
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) ListContests(ctx context.Context, q models.ContestQuery) ([]models.Contest, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Contest), args.Error(1)
}

func (m *MockBackend) GetContest(ctx context.Context, id string) (*models.Contest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contest), args.Error(1)
}

func (m *MockBackend) CreateContest(ctx context.Context, in models.ContestInput) (*models.Contest, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contest), args.Error(1)
}

func (m *MockBackend) UpdateContest(ctx context.Context, id string, in models.ContestInput) (*models.Contest, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contest), args.Error(1)
}

func (m *MockBackend) DeleteContest(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBackend) RegisterForContest(ctx context.Context, id, transactionID string) (*models.Registration, error) {
	args := m.Called(ctx, id, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Registration), args.Error(1)
}

func (m *MockBackend) SubmitEntry(ctx context.Context, id string, sub models.Submission) error {
	args := m.Called(ctx, id, sub)
	return args.Error(0)
}

func (m *MockBackend) DeclareWinner(ctx context.Context, id, participantEmail string) (*models.Contest, error) {
	args := m.Called(ctx, id, participantEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contest), args.Error(1)
}

func (m *MockBackend) Winners(ctx context.Context) ([]models.Winner, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Winner), args.Error(1)
}

func (m *MockBackend) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LeaderboardEntry), args.Error(1)
}

func (m *MockBackend) MyRegistrations(ctx context.Context) ([]models.Registration, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Registration), args.Error(1)
}

func (m *MockBackend) GetProfile(ctx context.Context) (*api.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.Profile), args.Error(1)
}

func (m *MockBackend) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*api.Profile, error) {
	args := m.Called(ctx, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.Profile), args.Error(1)
}

func (m *MockBackend) ListUsers(ctx context.Context) ([]models.PlatformUser, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PlatformUser), args.Error(1)
}

func (m *MockBackend) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *MockBackend) ListCreatorRequests(ctx context.Context) ([]models.CreatorRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CreatorRequest), args.Error(1)
}

func (m *MockBackend) ReviewCreatorRequest(ctx context.Context, id string, status models.CreatorRequestStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockBackend) CreateCheckoutSession(ctx context.Context, contestID string) (*models.CheckoutSession, error) {
	args := m.Called(ctx, contestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckoutSession), args.Error(1)
}

func (m *MockBackend) ConfirmPayment(ctx context.Context, sessionID, contestID string) (*models.Registration, error) {
	args := m.Called(ctx, sessionID, contestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Registration), args.Error(1)
}
