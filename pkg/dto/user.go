package dto

import "github.com/contesthub/contesthub/internal/models"

type UpdateProfileRequest struct {
	Name     *string `json:"name,omitempty"`
	PhotoURL *string `json:"photoURL,omitempty"`
}

func (r UpdateProfileRequest) ToUpdate() models.ProfileUpdate {
	return models.ProfileUpdate{Name: r.Name, PhotoURL: r.PhotoURL}
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

type ReviewCreatorRequest struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}
