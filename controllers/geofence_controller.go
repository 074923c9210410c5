package controllers

import (
	"time"

	"trackpulse/models"
	"trackpulse/services"
	"trackpulse/utils"
	"trackpulse/workers"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type GeofenceController struct {
	definitions *services.DefinitionService
	worker      *workers.GeofenceWorker
}

func NewGeofenceController(definitions *services.DefinitionService, worker *workers.GeofenceWorker) *GeofenceController {
	return &GeofenceController{
		definitions: definitions,
		worker:      worker,
	}
}

// CreateDefinition ingests a geofence definition. Invalid configuration
// is rejected here and never reaches the evaluator.
func (gc *GeofenceController) CreateDefinition(c *gin.Context) {
	var def models.GeofenceDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		utils.BadRequestResponse(c, "Invalid geofence definition")
		return
	}
	if def.ID == "" {
		def.ID = utils.GenerateUUID()
	}

	if err := gc.definitions.Ingest(c.Request.Context(), def); err != nil {
		logrus.Warnf("Geofence ingestion rejected: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Geofence definition created", def)
}

// DeleteDefinition removes a definition and its runtime state.
func (gc *GeofenceController) DeleteDefinition(c *gin.Context) {
	definitionID := c.Param("definitionId")

	if err := gc.definitions.Delete(c.Request.Context(), definitionID); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Geofence definition deleted", nil)
}

// ListDefinitions returns the active definition snapshot.
func (gc *GeofenceController) ListDefinitions(c *gin.Context) {
	defs, err := gc.definitions.ActiveDefinitions(c.Request.Context(), "")
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Active geofence definitions", defs)
}

type observationRequest struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Speed     float64   `json:"speed"`
	Timestamp time.Time `json:"timestamp"`
}

// SubmitObservation feeds a watched entity's position into the evaluator.
func (gc *GeofenceController) SubmitObservation(c *gin.Context) {
	entityID := c.Param("entityId")

	var req observationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid position observation")
		return
	}
	if !utils.IsValidCoordinate(req.Latitude, req.Longitude) {
		utils.BadRequestResponse(c, "Coordinates out of range")
		return
	}

	recordedAt := req.Timestamp
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	position := models.Position{
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Accuracy:   req.Accuracy,
		Speed:      req.Speed,
		RecordedAt: recordedAt,
	}

	if err := gc.worker.SubmitObservation(entityID, position); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Observation queued", nil)
}

// GetStats exposes the geofence worker counters.
func (gc *GeofenceController) GetStats(c *gin.Context) {
	utils.SuccessResponse(c, "Geofence worker stats", gc.worker.GetStats())
}
