package api

import (
	"context"
	"net/http"

	"github.com/contesthub/contesthub/internal/models"
)

func (c *Client) CreateCheckoutSession(ctx context.Context, contestID string) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	body := map[string]string{"contestId": contestID}
	if err := c.do(ctx, http.MethodPost, "/create-checkout-session", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ConfirmPayment marks the checkout session paid once the payment page redirects back.
func (c *Client) ConfirmPayment(ctx context.Context, sessionID, contestID string) (*models.Registration, error) {
	var reg models.Registration
	body := map[string]string{"sessionId": sessionID, "contestId": contestID}
	if err := c.do(ctx, http.MethodPatch, "/payment-success", body, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}
