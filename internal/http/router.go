package api

import (
	stdhttp "net/http"

	intconfig "busyatri/internal/config"
	"busyatri/internal/domain"
	h "busyatri/internal/http/handlers"
	"busyatri/internal/http/middleware"
	"busyatri/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func init() {
	binding.EnableDecoderDisallowUnknownFields = true
}

func NewRouter(env intconfig.Env, hd h.Handler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		utils.Log.WithError(err).Warn("failed to set trusted proxies")
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	api := r.Group("/api")
	api.Use(middleware.Auth(hd.Auth))
	{
		api.GET("/health", hd.Health)
		api.GET("/routes", h.Routes)

		// Auth
		api.POST("/register", hd.Register)
		api.POST("/login", hd.Login)

		// Trips
		admin := []gin.HandlerFunc{middleware.RequireAuth(), middleware.RequireRoles(domain.RoleAdmin)}
		trips := api.Group("/trips")
		trips.GET("", hd.ListTrips)
		trips.GET("/:id", hd.GetTrip)
		trips.POST("", append(admin, hd.CreateTrip)...)
		// legacy path
		api.POST("/add-trip", append(admin, hd.CreateTrip)...)

		// Bookings
		api.POST("/book", hd.Reserve)
		api.GET("/my-bookings", hd.MyBookings)
		bookings := api.Group("/bookings")
		bookings.POST("", hd.Reserve)
		bookings.GET("/:id", hd.GetBooking)
		bookings.DELETE("/:id", hd.CancelBooking)
		bookings.GET("/:id/ticket", hd.GetETicketPDF)
		bookings.GET("/:id/receipt", hd.GetReceiptPDF)
	}

	h.SetRouter(r)
	return r
}
