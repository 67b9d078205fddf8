package handlers

import (
	"context"

	"github.com/contesthub/contesthub/internal/api"
	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/session"
	"github.com/contesthub/contesthub/internal/sse"
)

// SessionServiceInterface defines the methods used by handlers from session.Store
type SessionServiceInterface interface {
	Snapshot() session.Snapshot
	SignIn(ctx context.Context, email, password string) (*models.User, error)
	SignUp(ctx context.Context, in session.SignUpInput) (*models.User, error)
	SignInWithOAuth(ctx context.Context, open session.Opener) (*models.User, error)
	SignOut(ctx context.Context)
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error)
}

// PopupServiceInterface defines the methods used by handlers from oauth.PopupBroker
type PopupServiceInterface interface {
	Complete(ctx context.Context, state, code, providerErr string) error
	Cancel(state string) bool
}

// EventHubInterface defines the methods used by handlers from sse.Hub
type EventHubInterface interface {
	Register(client *sse.Client)
	Unregister(client *sse.Client)
}

// BackendInterface defines the methods used by handlers from api.Client
type BackendInterface interface {
	ListContests(ctx context.Context, q models.ContestQuery) ([]models.Contest, error)
	GetContest(ctx context.Context, id string) (*models.Contest, error)
	CreateContest(ctx context.Context, in models.ContestInput) (*models.Contest, error)
	UpdateContest(ctx context.Context, id string, in models.ContestInput) (*models.Contest, error)
	DeleteContest(ctx context.Context, id string) error
	RegisterForContest(ctx context.Context, id, transactionID string) (*models.Registration, error)
	SubmitEntry(ctx context.Context, id string, sub models.Submission) error
	DeclareWinner(ctx context.Context, id, participantEmail string) (*models.Contest, error)
	Winners(ctx context.Context) ([]models.Winner, error)
	Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error)
	MyRegistrations(ctx context.Context) ([]models.Registration, error)
	GetProfile(ctx context.Context) (*api.Profile, error)
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*api.Profile, error)
	ListUsers(ctx context.Context) ([]models.PlatformUser, error)
	UpdateUserRole(ctx context.Context, id string, role models.Role) error
	ListCreatorRequests(ctx context.Context) ([]models.CreatorRequest, error)
	ReviewCreatorRequest(ctx context.Context, id string, status models.CreatorRequestStatus) error
	CreateCheckoutSession(ctx context.Context, contestID string) (*models.CheckoutSession, error)
	ConfirmPayment(ctx context.Context, sessionID, contestID string) (*models.Registration, error)
}
