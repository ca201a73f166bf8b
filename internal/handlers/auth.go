package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ecommerce/api/internal/middleware"
	"ecommerce/api/internal/service"
)

type signupRequest struct {
	Name            string `json:"name" binding:"required,min=3,max=32"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

func (h HandlerSet) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	result, err := h.auth.Signup(c.Request.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, newAuthResponse("User created successfully", result, true))
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, newAuthResponse("User logged in successfully", result, true))
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required,len=64,hexadecimal"`
}

func (h HandlerSet) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, newAuthResponse("Token refreshed successfully", result, false))
}

func (h HandlerSet) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.AccessToken(c)); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Status: "success", Message: "Logged out successfully"})
}

type kickRequest struct {
	UserID string `uri:"userId" binding:"required,ksuid"`
}

func (h HandlerSet) KickUser(c *gin.Context) {
	var req kickRequest
	if err := c.ShouldBindUri(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	actor, _ := service.UserFromContext(c.Request.Context())
	result, err := h.auth.KickUser(c.Request.Context(), actor, req.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, kickResponse{
		Status:      "success",
		Message:     result.Message,
		Blacklisted: result.Blacklisted,
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h HandlerSet) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Status: "success", Message: "Password reset code sent to email"})
}

type verifyResetCodeRequest struct {
	ResetCode string `json:"resetCode" binding:"required,len=6,numeric"`
}

func (h HandlerSet) VerifyResetCode(c *gin.Context) {
	var req verifyResetCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	if err := h.auth.VerifyResetCode(c.Request.Context(), req.ResetCode); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Status: "success", Message: "Reset code verified successfully"})
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

func (h HandlerSet) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	token, err := h.auth.ResetPassword(c.Request.Context(), req.Email, req.NewPassword)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{Status: "success", Token: token.Token, TokenExpires: token.ExpiresAt})
}

func newAuthResponse(message string, result service.AuthResult, withUser bool) authResponse {
	resp := authResponse{
		Status:       "success",
		Message:      message,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenExpires: result.AccessExpiresAt,
	}
	if withUser {
		user := newUserResponse(result.User)
		resp.Data = &user
	}
	return resp
}
