package router

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/tablebook/controllers"
	"github.com/yeremiapane/tablebook/hub"
	"github.com/yeremiapane/tablebook/middlewares"
	"github.com/yeremiapane/tablebook/services"
)

type Options struct {
	CORSOrigins []string
	// AuthLimiter guards /login and /register; nil uses the strict default.
	AuthLimiter gin.HandlerFunc
}

func SetupRouter(svc *services.Services, h *hub.Hub, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(opts.CORSOrigins))
	r.Use(middlewares.LoggerMiddleware())

	userCtrl := controllers.NewUserController(svc)
	tableCtrl := controllers.NewTableController(svc)
	timeslotCtrl := controllers.NewTimeslotController(svc)
	reservationCtrl := controllers.NewReservationController(svc)
	liveCtrl := controllers.NewLiveController(h)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	limiter := opts.AuthLimiter
	if limiter == nil {
		limiter = middlewares.NewStrictRateLimiter()
	}
	public := r.Group("/")
	public.Use(limiter)
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	r.GET("/tables", tableCtrl.GetAllTables)
	r.GET("/tables/:id", tableCtrl.GetTable)
	r.GET("/tables/:id/timeslots", tableCtrl.FreeTimeslots)

	r.GET("/timeslots", timeslotCtrl.ListTimeslots)
	r.GET("/timeslots/:id", timeslotCtrl.GetTimeslot)
	r.GET("/timeslots/:id/free-tables", timeslotCtrl.FreeTables)

	r.GET("/ws", middlewares.WebSocketAuthMiddleware(svc.Users), liveCtrl.LiveHandler)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/")
	auth.Use(middlewares.AuthMiddleware(svc.Users))
	{
		auth.POST("/logout", userCtrl.Logout)
		auth.GET("/profile", userCtrl.GetProfile)
		auth.PATCH("/users/:id", userCtrl.UpdateUser)
		auth.DELETE("/users/:id", userCtrl.DeleteUser)

		auth.GET("/reservations", reservationCtrl.ListReservations)
		auth.POST("/reservations", reservationCtrl.CreateReservation)
		auth.GET("/reservations/:id", reservationCtrl.GetReservation)
		auth.PATCH("/reservations/:id", reservationCtrl.UpdateReservation)
		auth.GET("/reservations/:id/cancel", reservationCtrl.CancelPreview)
		auth.POST("/reservations/:id/cancel", reservationCtrl.CancelReservation)
		auth.PATCH("/reservations/:id/cancel", reservationCtrl.CancelReservation)
	}

	// ----------------------------------------------------------------
	//                      ADMIN ROUTES
	// ----------------------------------------------------------------
	admin := r.Group("/admin")
	admin.Use(middlewares.AuthMiddleware(svc.Users), middlewares.RequireAdmin())
	{
		admin.POST("/tables", tableCtrl.CreateTable)
		admin.PATCH("/tables/:id", tableCtrl.UpdateTable)
		admin.DELETE("/tables/:id", tableCtrl.DeleteTable)

		admin.POST("/timeslots", timeslotCtrl.CreateTimeslot)
		admin.PATCH("/timeslots/:id", timeslotCtrl.UpdateTimeslot)
		admin.DELETE("/timeslots/:id", timeslotCtrl.DeleteTimeslot)
		admin.POST("/timeslots/:id/complete", timeslotCtrl.CompleteTimeslot)

		admin.GET("/users", userCtrl.GetAllUsers)
		admin.PATCH("/users/:id/role", userCtrl.ChangeRole)

		admin.GET("/reservations", reservationCtrl.ListAllReservations)
		admin.PATCH("/reservations/:id/status", reservationCtrl.UpdateStatus)
	}

	return r
}
