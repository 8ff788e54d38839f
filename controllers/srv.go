package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_gear_inventory/app"
	"Gin_postgres_redis_gear_inventory/db"
	"Gin_postgres_redis_gear_inventory/inventory"
	"Gin_postgres_redis_gear_inventory/qrcode"
	"Gin_postgres_redis_gear_inventory/session"
)

// Srv bundles what every controller needs.
type Srv struct {
	Repo      *db.Repo
	Engine    *inventory.Engine
	AppSess   *session.AppSessionStore
	WebOrigin string
	Cfg       app.Config
}

func GetSrv(a *app.App) *Srv {
	repo := db.NewRepo(a.DB)
	return &Srv{
		Repo:      repo,
		Engine:    inventory.New(repo),
		AppSess:   a.AppSessions(),
		WebOrigin: a.Config.WebOrigin,
		Cfg:       a.Config,
	}
}

func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	secure := strings.HasPrefix(s.WebOrigin, "https://")
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   int(maxAge / time.Second),
	})
}

// actorFrom rebuilds the acting principal the auth middleware stored.
func actorFrom(c *gin.Context) inventory.Actor {
	return inventory.Actor{
		UserID: c.GetString("userID"),
		Role:   c.GetString("role"),
	}
}

// writeInventoryError maps the engine's error taxonomy to HTTP statuses.
// Every error is a per-request outcome, never fatal.
func writeInventoryError(c *gin.Context, err error) {
	var ve *inventory.ValidationError
	var me *inventory.GroupMemberError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, app.H{"error": ve.Message, "field": ve.Field})
	case errors.As(err, &me):
		status := http.StatusConflict
		if errors.Is(me.Err, inventory.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, app.H{"error": me.Error(), "productId": me.ProductID})
	case errors.Is(err, qrcode.ErrMalformedPayload):
		c.JSON(http.StatusBadRequest, app.H{"error": "malformed qr payload"})
	case errors.Is(err, inventory.ErrForbidden):
		c.JSON(http.StatusForbidden, app.H{"error": "forbidden"})
	case errors.Is(err, inventory.ErrNotFound):
		c.JSON(http.StatusNotFound, app.H{"error": "not found"})
	case errors.Is(err, inventory.ErrAmbiguousOrNotFound):
		c.JSON(http.StatusNotFound, app.H{"error": "no open transaction matches"})
	case errors.Is(err, inventory.ErrNotBorrowable):
		c.JSON(http.StatusConflict, app.H{"error": "product is not borrowable"})
	case errors.Is(err, inventory.ErrHasOpenTransaction):
		c.JSON(http.StatusConflict, app.H{"error": "open borrow transaction exists"})
	default:
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
	}
}
