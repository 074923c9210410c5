package services

import (
	"context"
	"sync"
	"time"

	"trackpulse/models"
	"trackpulse/repositories"
	"trackpulse/utils"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// DefinitionService is the ingestion boundary for geofence definitions.
// Invalid configuration is rejected here and never reaches the evaluator.
// It keeps an in-memory snapshot of active definitions so evaluation never
// waits on the database.
type DefinitionService struct {
	repo      *repositories.GeofenceRepository
	evaluator *GeofenceEvaluator
	validate  *validator.Validate

	mu    sync.RWMutex
	cache map[string]models.GeofenceDefinition
}

func NewDefinitionService(repo *repositories.GeofenceRepository, evaluator *GeofenceEvaluator) *DefinitionService {
	return &DefinitionService{
		repo:      repo,
		evaluator: evaluator,
		validate:  validator.New(),
		cache:     make(map[string]models.GeofenceDefinition),
	}
}

// LoadActive warms the cache from persistence at startup.
func (ds *DefinitionService) LoadActive(ctx context.Context) error {
	if ds.repo == nil {
		return nil
	}

	defs, err := ds.repo.GetActiveDefinitions(ctx)
	if err != nil {
		return err
	}

	ds.mu.Lock()
	for _, def := range defs {
		ds.cache[def.ID] = def
	}
	ds.mu.Unlock()

	logrus.Infof("Loaded %d active geofence definitions", len(defs))
	return nil
}

// Ingest validates and stores a definition.
func (ds *DefinitionService) Ingest(ctx context.Context, def models.GeofenceDefinition) error {
	if err := ds.validate.Struct(def); err != nil {
		return utils.WrapError(err, utils.ErrCodeBadGeofence, "invalid geofence definition")
	}
	if !def.IsLeash {
		if def.Center == nil {
			return utils.NewServiceError(utils.ErrCodeBadGeofence, "fixed geofence requires a center")
		}
		if !utils.IsValidCoordinate(def.Center.Latitude, def.Center.Longitude) {
			return utils.NewServiceError(utils.ErrCodeBadGeofence, "geofence center out of range")
		}
	}
	if def.IsLeash && def.OwnerID == "" {
		return utils.NewServiceError(utils.ErrCodeBadGeofence, "leash geofence requires an owner")
	}
	if def.CreatedAt.IsZero() {
		def.CreatedAt = time.Now()
	}

	if ds.repo != nil {
		if err := ds.repo.UpsertDefinition(ctx, &def); err != nil {
			return err
		}
	}

	ds.mu.Lock()
	ds.cache[def.ID] = def
	ds.mu.Unlock()

	logrus.Infof("Geofence definition %s ingested (radius %.0fm)", def.ID, def.RadiusMeters)
	return nil
}

// Delete removes a definition and clears its runtime state in the
// evaluator so no orphaned membership survives.
func (ds *DefinitionService) Delete(ctx context.Context, definitionID string) error {
	ds.mu.Lock()
	_, known := ds.cache[definitionID]
	delete(ds.cache, definitionID)
	ds.mu.Unlock()

	if ds.evaluator != nil {
		ds.evaluator.DropDefinition(definitionID)
	}

	if ds.repo != nil {
		if err := ds.repo.DeleteDefinition(ctx, definitionID); err != nil {
			if !known {
				// Deleting something already gone is success.
				return nil
			}
			return err
		}
	}

	return nil
}

// Deactivate marks a spent one-shot definition inactive.
func (ds *DefinitionService) Deactivate(ctx context.Context, definitionID string) error {
	ds.mu.Lock()
	delete(ds.cache, definitionID)
	ds.mu.Unlock()

	if ds.repo == nil {
		return nil
	}
	return ds.repo.DeactivateDefinition(ctx, definitionID)
}

// ActiveDefinitions returns the current snapshot. All active definitions
// apply to every watched entity.
func (ds *DefinitionService) ActiveDefinitions(ctx context.Context, entityID string) ([]models.GeofenceDefinition, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	defs := make([]models.GeofenceDefinition, 0, len(ds.cache))
	for _, def := range ds.cache {
		defs = append(defs, def)
	}
	return defs, nil
}
