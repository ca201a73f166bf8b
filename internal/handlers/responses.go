package handlers

import (
	"time"

	"ecommerce/api/internal/models"
)

type userResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Role              string     `json:"role"`
	Active            bool       `json:"active"`
	PasswordChangedAt *time.Time `json:"passwordChangedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              string(u.Role),
		Active:            u.Active,
		PasswordChangedAt: u.PasswordChangedAt,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

type authResponse struct {
	Status       string        `json:"status"`
	Message      string        `json:"message"`
	Data         *userResponse `json:"data,omitempty"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	TokenExpires time.Time     `json:"tokenExpires"`
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type tokenResponse struct {
	Status       string    `json:"status"`
	Message      string    `json:"message,omitempty"`
	Token        string    `json:"token"`
	TokenExpires time.Time `json:"tokenExpires"`
}

type kickResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Blacklisted bool   `json:"blacklisted"`
}

type userEnvelope struct {
	Status  string       `json:"status"`
	Message string       `json:"message,omitempty"`
	Data    userResponse `json:"data"`
}
