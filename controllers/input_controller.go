package controllers

import (
	"time"

	"trackpulse/models"
	"trackpulse/services"
	"trackpulse/utils"

	"github.com/gin-gonic/gin"
)

// InputController receives platform-layer inputs (position fixes, power
// snapshots, motion samples) for locally hosted devices and forwards them
// into the matching feed.
type InputController struct {
	feeds map[string]*services.DeviceFeed
}

func NewInputController(feeds map[string]*services.DeviceFeed) *InputController {
	return &InputController{feeds: feeds}
}

func (ic *InputController) feed(c *gin.Context) (*services.DeviceFeed, bool) {
	feed, ok := ic.feeds[c.Param("deviceId")]
	if !ok {
		utils.NotFoundResponse(c, "Device not hosted on this node")
	}
	return feed, ok
}

type positionInput struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	Altitude   float64   `json:"altitude"`
	Speed      float64   `json:"speed"`
	Bearing    float64   `json:"bearing"`
	RecordedAt time.Time `json:"recordedAt"`
}

// PushPosition records a fresh position fix from the platform.
func (ic *InputController) PushPosition(c *gin.Context) {
	feed, ok := ic.feed(c)
	if !ok {
		return
	}

	var req positionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid position payload")
		return
	}
	if !utils.IsValidCoordinate(req.Latitude, req.Longitude) {
		utils.BadRequestResponse(c, "Coordinates out of range")
		return
	}
	if req.RecordedAt.IsZero() {
		req.RecordedAt = time.Now()
	}

	feed.PushPosition(models.Position{
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Accuracy:   req.Accuracy,
		Altitude:   req.Altitude,
		Speed:      req.Speed,
		Bearing:    req.Bearing,
		RecordedAt: req.RecordedAt,
	})
	utils.SuccessResponse(c, "Position recorded", nil)
}

// PushPower records a power snapshot from the platform.
func (ic *InputController) PushPower(c *gin.Context) {
	feed, ok := ic.feed(c)
	if !ok {
		return
	}

	var req models.PowerState
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid power payload")
		return
	}
	if req.BatteryPct < 0 || req.BatteryPct > 100 {
		utils.BadRequestResponse(c, "batteryPct must be 0-100")
		return
	}

	feed.PushPower(req)
	utils.SuccessResponse(c, "Power state recorded", nil)
}

type samplesInput struct {
	Samples []float64 `json:"samples" binding:"required"`
}

// PushSamples feeds raw motion-magnitude samples into the classifier.
func (ic *InputController) PushSamples(c *gin.Context) {
	feed, ok := ic.feed(c)
	if !ok {
		return
	}

	var req samplesInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "samples is required")
		return
	}

	state := feed.PushSamples(req.Samples)
	utils.SuccessResponse(c, "Samples recorded", gin.H{"motion": state})
}
