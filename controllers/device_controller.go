package controllers

import (
	"strconv"
	"time"

	"trackpulse/models"
	"trackpulse/repositories"
	"trackpulse/services"
	"trackpulse/utils"

	"github.com/gin-gonic/gin"
)

type DeviceController struct {
	registry *services.Registry
	publish  *services.PublishService
	reports  *repositories.ReportRepository
}

func NewDeviceController(registry *services.Registry, publish *services.PublishService, reports *repositories.ReportRepository) *DeviceController {
	return &DeviceController{
		registry: registry,
		publish:  publish,
		reports:  reports,
	}
}

// GetStatus returns the device's report state and last policy decision.
func (dc *DeviceController) GetStatus(c *gin.Context) {
	deviceID := c.Param("deviceId")

	scheduler, ok := dc.registry.Scheduler(deviceID)
	if !ok {
		utils.NotFoundResponse(c, "Device not registered")
		return
	}

	state := scheduler.State()
	utils.SuccessResponse(c, "Device status", gin.H{
		"state":         state,
		"lastDecision":  scheduler.LastDecision(),
		"stationaryFor": utils.FormatDuration(state.StationaryFor(time.Now())),
	})
}

// Refresh requests an immediate report evaluation.
func (dc *DeviceController) Refresh(c *gin.Context) {
	deviceID := c.Param("deviceId")

	if !dc.registry.RequestReport(deviceID) {
		utils.NotFoundResponse(c, "Device not registered")
		return
	}

	utils.SuccessResponse(c, "Refresh requested", nil)
}

type wifiChangeRequest struct {
	Fingerprint string `json:"fingerprint" binding:"required"`
}

// NoteWifiChange records a new Wi-Fi environment for the device.
func (dc *DeviceController) NoteWifiChange(c *gin.Context) {
	deviceID := c.Param("deviceId")

	var req wifiChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "fingerprint is required")
		return
	}

	scheduler, ok := dc.registry.Scheduler(deviceID)
	if !ok {
		utils.NotFoundResponse(c, "Device not registered")
		return
	}

	scheduler.NoteWifiChange(req.Fingerprint)
	utils.SuccessResponse(c, "Wi-Fi change noted", nil)
}

// GetLatest returns the freshest published position for a device.
func (dc *DeviceController) GetLatest(c *gin.Context) {
	deviceID := c.Param("deviceId")

	report, err := dc.publish.Latest(c.Request.Context(), deviceID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Latest position", report)
}

// GetHistory returns recent reports for a device.
func (dc *DeviceController) GetHistory(c *gin.Context) {
	deviceID := c.Param("deviceId")

	hours, err := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if err != nil {
		hours = 24
	}
	hours = utils.ClampInt(hours, 1, 24*7)
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "200"), 10, 64)
	if err != nil || limit <= 0 {
		limit = 200
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	history, err := dc.reports.GetHistory(c.Request.Context(), deviceID, since, limit)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	if history == nil {
		history = []models.PositionReport{}
	}

	utils.SuccessResponse(c, "Position history", history)
}
