package routes

import (
	"net/http"
	"time"

	"trackpulse/controllers"
	"trackpulse/middleware"
	"trackpulse/repositories"
	"trackpulse/services"
	"trackpulse/websocket"
	"trackpulse/workers"

	"github.com/gin-gonic/gin"
)

// Deps is everything the control API surfaces.
type Deps struct {
	Registry    *services.Registry
	Feeds       map[string]*services.DeviceFeed
	Tracking    *services.TrackingService
	Publish     *services.PublishService
	Reports     *repositories.ReportRepository
	Definitions *services.DefinitionService
	Geofences   *workers.GeofenceWorker
	Wake        *workers.WakeWorker
	Hub         *websocket.Hub
}

// SetupRoutes initializes the control API.
func SetupRoutes(deps Deps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS())

	tracking := controllers.NewTrackingController(deps.Tracking)
	devices := controllers.NewDeviceController(deps.Registry, deps.Publish, deps.Reports)
	geofences := controllers.NewGeofenceController(deps.Definitions, deps.Geofences)
	inputs := controllers.NewInputController(deps.Feeds)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"devices": deps.Registry.Devices(),
			"time":    time.Now(),
		})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWS(deps.Hub, c.Writer, c.Request)
	})

	v1 := router.Group("/api/v1")
	{
		device := v1.Group("/devices/:deviceId")
		{
			device.GET("/status", devices.GetStatus)
			device.GET("/latest", devices.GetLatest)
			device.GET("/history", devices.GetHistory)
			device.POST("/refresh", devices.Refresh)
			device.POST("/wifi", devices.NoteWifiChange)

			input := device.Group("/inputs")
			{
				input.POST("/position", inputs.PushPosition)
				input.POST("/power", inputs.PushPower)
				input.POST("/samples", inputs.PushSamples)
			}

			track := device.Group("/track")
			{
				track.GET("", tracking.GetSession)
				track.POST("/start", tracking.StartTracking)
				track.POST("/heartbeat", tracking.Heartbeat)
				track.POST("/stop", tracking.StopTracking)
			}
		}

		v1.POST("/entities/:entityId/positions", geofences.SubmitObservation)

		geofence := v1.Group("/geofences")
		{
			geofence.GET("", geofences.ListDefinitions)
			geofence.POST("", geofences.CreateDefinition)
			geofence.DELETE("/:definitionId", geofences.DeleteDefinition)
			geofence.GET("/stats", geofences.GetStats)
		}

		v1.GET("/stats", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"hub":      deps.Hub.GetStats(),
				"geofence": deps.Geofences.GetStats(),
				"wake":     deps.Wake.GetStats(),
			})
		})
	}

	return router
}
