package controllers

import (
	"trackpulse/services"
	"trackpulse/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type TrackingController struct {
	tracking *services.TrackingService
}

func NewTrackingController(tracking *services.TrackingService) *TrackingController {
	return &TrackingController{tracking: tracking}
}

type trackingRequest struct {
	RequesterID string `json:"requesterId" binding:"required"`
}

// StartTracking enters live tracking for the target device.
func (tc *TrackingController) StartTracking(c *gin.Context) {
	deviceID := c.Param("deviceId")

	var req trackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "requesterId is required")
		return
	}

	if err := tc.tracking.Start(deviceID, req.RequesterID); err != nil {
		logrus.Errorf("Start tracking failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Tracking started", tc.tracking.Session())
}

// Heartbeat keeps a live session alive while the observer is watching.
func (tc *TrackingController) Heartbeat(c *gin.Context) {
	deviceID := c.Param("deviceId")

	var req trackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "requesterId is required")
		return
	}

	if err := tc.tracking.Heartbeat(deviceID, req.RequesterID); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Heartbeat accepted", tc.tracking.Session())
}

// StopTracking ends the session. Stopping an idle slot succeeds.
func (tc *TrackingController) StopTracking(c *gin.Context) {
	deviceID := c.Param("deviceId")

	if err := tc.tracking.Stop(deviceID); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Tracking stopped", tc.tracking.Session())
}

// GetSession returns the current session snapshot.
func (tc *TrackingController) GetSession(c *gin.Context) {
	utils.SuccessResponse(c, "Tracking session", tc.tracking.Session())
}
