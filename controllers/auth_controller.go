package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"Gin_postgres_redis_gear_inventory/app"
)

type AuthController struct{ *Srv }

func NewAuthController(s *Srv) *AuthController { return &AuthController{Srv: s} }

func (ac *AuthController) Login(c *gin.Context) {
	var in struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	u, err := ac.Repo.FindUserByUsername(c.Request.Context(), in.Username)
	if err != nil || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(in.Password)) != nil {
		// Same answer for unknown user and wrong password.
		c.JSON(http.StatusUnauthorized, app.H{"error": "invalid credentials"})
		return
	}

	// Login snapshot is best effort, not worth failing the login over.
	_ = ac.Repo.TouchUserLogin(c.Request.Context(), u.ID, c.ClientIP(), c.Request.UserAgent())
	sid := uuid.NewString()
	if err := ac.AppSess.Create(c.Request.Context(), sid, u.ID); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	ac.setAppCookie(c.Writer, sid, ac.Cfg.SessionTTL)
	c.JSON(http.StatusOK, app.H{"user": u})
}

func (ac *AuthController) Logout(c *gin.Context) {
	if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" {
		_ = ac.AppSess.Delete(c.Request.Context(), ck.Value)
	}
	ac.setAppCookie(c.Writer, "", -time.Second)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (ac *AuthController) Whoami(c *gin.Context) {
	u, err := ac.Repo.FindUserByID(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u})
}
