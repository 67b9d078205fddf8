package dto

type RegisterRequest struct {
	TransactionID string `json:"transactionId"`
}

type DeclareWinnerRequest struct {
	ParticipantEmail string `json:"participantEmail"`
}

type CheckoutRequest struct {
	ContestID string `json:"contestId"`
}

type ConfirmPaymentRequest struct {
	SessionID string `json:"sessionId"`
	ContestID string `json:"contestId"`
}
