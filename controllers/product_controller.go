package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_gear_inventory/app"
	"Gin_postgres_redis_gear_inventory/db"
	"Gin_postgres_redis_gear_inventory/models"
	"Gin_postgres_redis_gear_inventory/qrcode"
)

type ProductController struct{ *Srv }

func NewProductController(s *Srv) *ProductController { return &ProductController{Srv: s} }

type productInput struct {
	Name      string   `json:"name" binding:"required"`
	Category  string   `json:"category"`
	Serial    string   `json:"serial"`
	Condition string   `json:"condition"`
	Location  string   `json:"location"`
	LengthM   *float64 `json:"lengthM"`
	Folder    string   `json:"folder"`
}

func (pc *ProductController) Create(c *gin.Context) {
	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	p := &models.Product{
		Name:      in.Name,
		Category:  in.Category,
		Serial:    in.Serial,
		Condition: in.Condition,
		Location:  in.Location,
		LengthM:   in.LengthM,
		Folder:    in.Folder,
		Status:    models.StatusAvailable,
	}
	if err := pc.Repo.CreateProduct(c.Request.Context(), p); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, app.H{"product": p, "qrPayload": p.QRPayload()})
}

func (pc *ProductController) Get(c *gin.Context) {
	id, err := parseProductID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid product id"})
		return
	}
	p, err := pc.Repo.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeInventoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"product": p, "qrPayload": p.QRPayload()})
}

func (pc *ProductController) Update(c *gin.Context) {
	id, err := parseProductID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid product id"})
		return
	}
	p, err := pc.Repo.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeInventoryError(c, err)
		return
	}
	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	// Status is deliberately not editable here; it belongs to the engine
	// and the mark-missing/mark-available endpoints.
	p.Name = in.Name
	p.Category = in.Category
	p.Serial = in.Serial
	p.Condition = in.Condition
	p.Location = in.Location
	p.LengthM = in.LengthM
	p.Folder = in.Folder
	if err := pc.Repo.SaveProduct(c.Request.Context(), p); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"product": p})
}

func (pc *ProductController) Delete(c *gin.Context) {
	id, err := parseProductID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid product id"})
		return
	}
	if err := pc.Repo.DeleteProduct(c.Request.Context(), id); err != nil {
		writeInventoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (pc *ProductController) List(c *gin.Context) {
	q := db.ProductsQuery{
		Q:        c.Query("q"),
		Status:   c.Query("status"), // "", "available", "borrowed", "missing", "overdue"
		Category: c.Query("category"),
		Folder:   c.Query("folder"),
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Size, _ = strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := pc.Repo.ListProducts(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (pc *ProductController) MarkMissing(c *gin.Context) {
	id, err := parseProductID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid product id"})
		return
	}
	if err := pc.Repo.MarkMissing(c.Request.Context(), id); err != nil {
		writeInventoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (pc *ProductController) MarkAvailable(c *gin.Context) {
	id, err := parseProductID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid product id"})
		return
	}
	if err := pc.Repo.MarkAvailable(c.Request.Context(), id); err != nil {
		writeInventoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// QRPayload returns the label text so the print-sheet collaborator can
// render it however it likes.
func (pc *ProductController) QRPayload(c *gin.Context) {
	id, err := parseProductID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid product id"})
		return
	}
	p, err := pc.Repo.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeInventoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"id": p.ID, "qrPayload": p.QRPayload()})
}

// QRImage serves a ready-to-stick PNG label.
func (pc *ProductController) QRImage(c *gin.Context) {
	id, err := parseProductID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid product id"})
		return
	}
	p, err := pc.Repo.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeInventoryError(c, err)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))
	png, err := qrcode.ImagePNG(p.QRPayload(), size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// PrintSheet returns the payload strings for a batch of products, for the
// external PDF renderer.
func (pc *ProductController) PrintSheet(c *gin.Context) {
	var in struct {
		ProductIDs []uint64 `json:"productIds" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	type label struct {
		ID        uint64 `json:"id"`
		Name      string `json:"name"`
		QRPayload string `json:"qrPayload"`
	}
	labels := make([]label, 0, len(in.ProductIDs))
	for _, id := range in.ProductIDs {
		p, err := pc.Repo.GetProduct(c.Request.Context(), id)
		if err != nil {
			writeInventoryError(c, err)
			return
		}
		labels = append(labels, label{ID: p.ID, Name: p.Name, QRPayload: p.QRPayload()})
	}
	c.JSON(http.StatusOK, app.H{"labels": labels})
}

func parseProductID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid product id")
	}
	return id, nil
}
