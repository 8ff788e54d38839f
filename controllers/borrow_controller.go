package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_gear_inventory/app"
	"Gin_postgres_redis_gear_inventory/db"
	"Gin_postgres_redis_gear_inventory/inventory"
)

// BorrowController exposes the borrow/return engine. The same handlers serve
// the web UI and the mobile routes; only the auth middleware differs.
type BorrowController struct {
	Engine *inventory.Engine
	Repo   *db.Repo
}

func NewBorrowController(engine *inventory.Engine, repo *db.Repo) *BorrowController {
	return &BorrowController{Engine: engine, Repo: repo}
}

func (bc *BorrowController) Borrow(c *gin.Context) {
	var in inventory.BorrowRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	tx, err := bc.Engine.Borrow(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		writeInventoryError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (bc *BorrowController) BorrowGroup(c *gin.Context) {
	var in inventory.GroupBorrowRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	res, err := bc.Engine.BorrowGroup(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		writeInventoryError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (bc *BorrowController) Return(c *gin.Context) {
	var in inventory.ReturnRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	tx, err := bc.Engine.Return(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		writeInventoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// Scan resolves a QR payload for the scanner screens.
func (bc *BorrowController) Scan(c *gin.Context) {
	payload := c.Query("qrCode")
	if payload == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "missing qrCode"})
		return
	}
	res, err := bc.Engine.Scan(c.Request.Context(), payload)
	if err != nil {
		writeInventoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (bc *BorrowController) ListTransactions(c *gin.Context) {
	q := db.TransactionsQuery{
		Status:     c.Query("status"), // "", "open", "returned", "overdue"
		BorrowerID: c.Query("borrowerId"),
		GroupID:    c.Query("groupId"),
	}
	if v := c.Query("productId"); v != "" {
		q.ProductID, _ = strconv.ParseUint(v, 10, 64)
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Size, _ = strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := bc.Repo.ListTransactions(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListMine returns the caller's open borrows.
func (bc *BorrowController) ListMine(c *gin.Context) {
	q := db.TransactionsQuery{
		Status:     "open",
		BorrowerID: c.GetString("userID"),
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Size, _ = strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := bc.Repo.ListTransactions(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// Group returns every transaction of one borrow group.
func (bc *BorrowController) Group(c *gin.Context) {
	items, err := bc.Repo.GroupTransactions(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	if len(items) == 0 {
		c.JSON(http.StatusNotFound, app.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, app.H{"borrowGroupId": c.Param("groupId"), "transactions": items})
}
