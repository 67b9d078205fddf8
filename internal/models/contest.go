package models

import "time"

type ContestStatus string

const (
	ContestPending   ContestStatus = "pending"
	ContestConfirmed ContestStatus = "confirmed"
	ContestRejected  ContestStatus = "rejected"
)

// Contest mirrors the backend document; its id travels as _id.
type Contest struct {
	ID                string        `json:"_id"`
	Name              string        `json:"name"`
	Image             string        `json:"image,omitempty"`
	Description       string        `json:"description"`
	Price             float64       `json:"price"`
	PrizeMoney        float64       `json:"prizeMoney"`
	TaskInstruction   string        `json:"taskInstruction,omitempty"`
	ContestType       string        `json:"contestType"`
	Deadline          string        `json:"deadline"`
	Status            ContestStatus `json:"status,omitempty"`
	CreatorEmail      string        `json:"creatorEmail,omitempty"`
	ParticipantsCount int           `json:"participantsCount"`
	Winner            *Winner       `json:"winner,omitempty"`
}

type ContestInput struct {
	Name            string  `json:"name"`
	Image           string  `json:"image,omitempty"`
	Description     string  `json:"description"`
	Price           float64 `json:"price"`
	PrizeMoney      float64 `json:"prizeMoney"`
	TaskInstruction string  `json:"taskInstruction,omitempty"`
	ContestType     string  `json:"contestType"`
	Deadline        string  `json:"deadline"`
}

type ContestQuery struct {
	Type   string
	Search string
	Page   int
	Limit  int
}

type Registration struct {
	ID            string    `json:"_id,omitempty"`
	ContestID     string    `json:"contestId"`
	ContestName   string    `json:"contestName,omitempty"`
	UserEmail     string    `json:"userEmail,omitempty"`
	TransactionID string    `json:"transactionId,omitempty"`
	PaymentStatus string    `json:"paymentStatus,omitempty"`
	Submitted     bool      `json:"submitted"`
	Deadline      string    `json:"deadline,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
}

type Submission struct {
	TaskLink string `json:"taskLink"`
	Note     string `json:"note,omitempty"`
}

type Winner struct {
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	PhotoURL    string  `json:"photoURL,omitempty"`
	ContestID   string  `json:"contestId,omitempty"`
	ContestName string  `json:"contestName,omitempty"`
	PrizeMoney  float64 `json:"prizeMoney,omitempty"`
}

type LeaderboardEntry struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL,omitempty"`
	Wins     int    `json:"wins"`
}

type CreatorRequestStatus string

const (
	CreatorRequestPending  CreatorRequestStatus = "pending"
	CreatorRequestApproved CreatorRequestStatus = "approved"
	CreatorRequestRejected CreatorRequestStatus = "rejected"
)

type CreatorRequest struct {
	ID        string               `json:"_id"`
	Name      string               `json:"name"`
	Email     string               `json:"email"`
	Status    CreatorRequestStatus `json:"status"`
	CreatedAt time.Time            `json:"createdAt,omitempty"`
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PlatformUser is a user row as the admin endpoints list it.
type PlatformUser struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL,omitempty"`
	Role     Role   `json:"role"`
}
