package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_gear_inventory/app"
	"Gin_postgres_redis_gear_inventory/controllers"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	s := controllers.GetSrv(a)
	authCtl := controllers.NewAuthController(s)
	borrowCtl := controllers.NewBorrowController(s.Engine, s.Repo)
	productCtl := controllers.NewProductController(s)
	userCtl := controllers.NewUserController(s)

	authMW := app.AuthRequired(s.AppSess, s.Repo)
	deviceMW := app.DeviceTokenAuth(s.Repo, a.Config.TokenSecret)
	adminMW := app.AdminOnly()
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, 5*time.Minute)

	// ------------------------------
	// Session auth
	// ------------------------------
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authCtl.Login)
	}
	authProtected := auth.Group("", authMW)
	{
		authProtected.POST("/logout", authCtl.Logout)
		authProtected.GET("/whoami", authCtl.Whoami)
	}

	// ------------------------------
	// Products
	// ------------------------------
	products := r.Group("/api/products", authMW, seenMW)
	{
		products.GET("", productCtl.List) // ?q=&category=&folder=&status=&page=&size=
		products.GET("/:id", productCtl.Get)
		products.GET("/:id/qr", productCtl.QRPayload)
		products.GET("/:id/qr.png", productCtl.QRImage)
	}
	productsAdmin := r.Group("/api/products", authMW, adminMW)
	{
		productsAdmin.POST("", productCtl.Create)
		productsAdmin.PUT("/:id", productCtl.Update)
		productsAdmin.DELETE("/:id", productCtl.Delete)
		productsAdmin.POST("/:id/missing", productCtl.MarkMissing)
		productsAdmin.POST("/:id/available", productCtl.MarkAvailable)
		productsAdmin.POST("/print-sheet", productCtl.PrintSheet)
	}

	// ------------------------------
	// Borrow / return / scan
	// ------------------------------
	borrow := r.Group("/api/borrow", authMW, seenMW)
	{
		borrow.POST("", borrowCtl.Borrow)
		borrow.POST("/group", borrowCtl.BorrowGroup)
		borrow.POST("/return", borrowCtl.Return)
		borrow.GET("/scan", borrowCtl.Scan) // ?qrCode=
		borrow.GET("/transactions", borrowCtl.ListTransactions)
		borrow.GET("/mine", borrowCtl.ListMine)
		borrow.GET("/group/:groupId", borrowCtl.Group)
	}

	// Mobile scanner clients authenticate with a device token instead
	// of a session cookie. Same handlers behind different middleware.
	mobile := r.Group("/api/mobile", deviceMW)
	{
		mobile.POST("/borrow", borrowCtl.Borrow)
		mobile.POST("/borrow/group", borrowCtl.BorrowGroup)
		mobile.POST("/return", borrowCtl.Return)
		mobile.GET("/scan", borrowCtl.Scan)
		mobile.GET("/mine", borrowCtl.ListMine)
	}

	// ------------------------------
	// User management (admin only)
	// ------------------------------
	users := r.Group("/api/users", authMW, adminMW)
	{
		users.POST("", userCtl.Create)
		users.GET("", userCtl.List) // ?q=&page=&size=
		users.GET("/:id", userCtl.Get)
		users.DELETE("/:id", userCtl.Delete)
		users.GET("/:id/device-tokens", userCtl.ListDeviceTokens)
	}
	tokens := r.Group("/api/device-tokens", authMW, adminMW)
	{
		tokens.POST("", userCtl.IssueDeviceToken)
		tokens.DELETE("/:jti", userCtl.RevokeDeviceToken)
	}
}
