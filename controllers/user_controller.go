package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"Gin_postgres_redis_gear_inventory/app"
	"Gin_postgres_redis_gear_inventory/auth"
	"Gin_postgres_redis_gear_inventory/models"
)

type UserController struct{ *Srv }

func NewUserController(s *Srv) *UserController { return &UserController{Srv: s} }

func (uc *UserController) Create(c *gin.Context) {
	var in struct {
		Username    string `json:"username" binding:"required"`
		DisplayName string `json:"displayName"`
		Password    string `json:"password" binding:"required,min=8"`
		Role        string `json:"role"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	switch in.Role {
	case "":
		in.Role = models.RoleMember
	case models.RoleAdmin, models.RoleMember, models.RoleGuest:
	default:
		c.JSON(http.StatusBadRequest, app.H{"error": "unknown role"})
		return
	}
	if in.DisplayName == "" {
		in.DisplayName = in.Username
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		DisplayName:  in.DisplayName,
		Role:         in.Role,
		PasswordHash: hash,
	}
	if err := uc.Repo.CreateUser(c.Request.Context(), u); err != nil {
		c.JSON(http.StatusConflict, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (uc *UserController) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	res, err := uc.Repo.ListUsers(c.Request.Context(), c.Query("q"), page, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (uc *UserController) Get(c *gin.Context) {
	u, err := uc.Repo.FindUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, app.H{"error": "not found"})
		return
	}
	open, _ := uc.Repo.CountOpenByBorrower(c.Request.Context(), u.ID)
	c.JSON(http.StatusOK, app.H{"user": u, "openBorrows": open})
}

func (uc *UserController) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := uc.Repo.DeleteUser(c.Request.Context(), id); err != nil {
		writeInventoryError(c, err)
		return
	}
	_ = uc.AppSess.RevokeAllForUser(c.Request.Context(), id)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// Device tokens for the mobile scanner clients.

func (uc *UserController) IssueDeviceToken(c *gin.Context) {
	var in struct {
		UserID string `json:"userId" binding:"required"`
		Name   string `json:"name"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	u, err := uc.Repo.FindUserByID(c.Request.Context(), in.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, app.H{"error": "user not found"})
		return
	}

	token, jti, err := auth.GenerateDeviceToken(uc.Cfg.TokenSecret, u.ID, auth.DefaultDeviceTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	rec := &models.DeviceToken{
		UserID:    u.ID,
		JTI:       jti,
		Name:      in.Name,
		ExpiresAt: time.Now().Add(auth.DefaultDeviceTokenTTL),
	}
	if err := uc.Repo.CreateDeviceToken(c.Request.Context(), rec); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	// The signed token is shown exactly once.
	c.JSON(http.StatusCreated, app.H{"token": token, "deviceToken": rec})
}

func (uc *UserController) ListDeviceTokens(c *gin.Context) {
	ts, err := uc.Repo.ListDeviceTokens(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"tokens": ts})
}

func (uc *UserController) RevokeDeviceToken(c *gin.Context) {
	if err := uc.Repo.RevokeDeviceToken(c.Request.Context(), c.Param("jti")); err != nil {
		writeInventoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
