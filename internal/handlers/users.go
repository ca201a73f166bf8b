package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ecommerce/api/internal/models"
	"ecommerce/api/internal/service"
)

func (h HandlerSet) Me(c *gin.Context) {
	user, err := h.users.Me(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, userEnvelope{Status: "success", Data: newUserResponse(user)})
}

type changeMyPasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	Password        string `json:"password" binding:"required,min=6"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

func (h HandlerSet) ChangeMyPassword(c *gin.Context) {
	var req changeMyPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	token, err := h.users.ChangeMyPassword(c.Request.Context(), req.CurrentPassword, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		Status:       "success",
		Message:      "User password updated successfully",
		Token:        token.Token,
		TokenExpires: token.ExpiresAt,
	})
}

type userIDURI struct {
	ID string `uri:"id" binding:"required,ksuid"`
}

type changeUserPasswordRequest struct {
	Password        string `json:"password" binding:"required,min=6"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

func (h HandlerSet) ChangeUserPassword(c *gin.Context) {
	var uri userIDURI
	if err := c.ShouldBindUri(&uri); err != nil {
		_ = c.Error(bindError(err))
		return
	}
	var req changeUserPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	user, err := h.users.ChangeUserPassword(c.Request.Context(), uri.ID, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, userEnvelope{
		Status:  "success",
		Message: "User password updated successfully",
		Data:    newUserResponse(user),
	})
}

func (h HandlerSet) DeleteMe(c *gin.Context) {
	if err := h.users.DeactivateMe(c.Request.Context()); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Status: "success", Message: "User account deleted successfully"})
}

type updateMeRequest struct {
	Name string `json:"name" binding:"required,min=3,max=32"`
}

func (h HandlerSet) UpdateMe(c *gin.Context) {
	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	user, err := h.users.UpdateMe(c.Request.Context(), req.Name)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, userEnvelope{
		Status:  "success",
		Message: "User data updated successfully",
		Data:    newUserResponse(user),
	})
}

func (h HandlerSet) GetUser(c *gin.Context) {
	var uri userIDURI
	if err := c.ShouldBindUri(&uri); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), uri.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, userEnvelope{Status: "success", Data: newUserResponse(user)})
}

type createUserRequest struct {
	Name            string `json:"name" binding:"required,min=3,max=32"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
	Role            string `json:"role" binding:"omitempty,oneof=user manager admin"`
}

func (h HandlerSet) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, userEnvelope{
		Status:  "success",
		Message: "User created successfully",
		Data:    newUserResponse(user),
	})
}

type updateUserRequest struct {
	Name   *string `json:"name" binding:"omitempty,min=3,max=32"`
	Email  *string `json:"email" binding:"omitempty,email"`
	Role   *string `json:"role" binding:"omitempty,oneof=user manager admin"`
	Active *bool   `json:"active"`
}

func (h HandlerSet) UpdateUser(c *gin.Context) {
	var uri userIDURI
	if err := c.ShouldBindUri(&uri); err != nil {
		_ = c.Error(bindError(err))
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	input := service.UpdateUserInput{Name: req.Name, Email: req.Email, Active: req.Active}
	if req.Role != nil {
		role := models.Role(*req.Role)
		input.Role = &role
	}

	user, err := h.users.UpdateUser(c.Request.Context(), uri.ID, input)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, userEnvelope{
		Status:  "success",
		Message: "User updated successfully",
		Data:    newUserResponse(user),
	})
}
