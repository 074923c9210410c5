package workers

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"trackpulse/interfaces"
	"trackpulse/models"
	"trackpulse/services"
	"trackpulse/utils"

	"github.com/sirupsen/logrus"
)

// OwnerLocator resolves the live position of a leash geofence's owner.
type OwnerLocator interface {
	Latest(ctx context.Context, deviceID string) (*models.PositionReport, error)
}

// GeofenceWorker consumes position observations for watched entities and
// runs them through the evaluator. Observations for the same entity are
// sharded onto one lane so its evaluations are serialized; different
// entities run fully in parallel.
type GeofenceWorker struct {
	evaluator *services.GeofenceEvaluator
	store     interfaces.GeofenceStore
	sink      interfaces.BoundaryEventSink
	owners    OwnerLocator

	config GeofenceWorkerConfig
	lanes  []chan GeofenceJob

	isRunning bool
	mutex     sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats      GeofenceWorkerStats
	statsMutex sync.RWMutex
}

type GeofenceWorkerConfig struct {
	WorkerCount       int           `json:"workerCount"`
	QueueSize         int           `json:"queueSize"`
	ProcessingTimeout time.Duration `json:"processingTimeout"`
}

// GeofenceJob is one entity position observation awaiting evaluation.
type GeofenceJob struct {
	ID       string          `json:"id"`
	EntityID string          `json:"entityId"`
	Position models.Position `json:"position"`
	Queued   time.Time       `json:"queued"`
}

type GeofenceWorkerStats struct {
	JobsProcessed   int64     `json:"jobsProcessed"`
	EventsDetected  int64     `json:"eventsDetected"`
	EntersDetected  int64     `json:"entersDetected"`
	ExitsDetected   int64     `json:"exitsDetected"`
	JobsDropped     int64     `json:"jobsDropped"`
	LastProcessedAt time.Time `json:"lastProcessedAt"`
	StartTime       time.Time `json:"startTime"`
}

func NewGeofenceWorker(
	evaluator *services.GeofenceEvaluator,
	store interfaces.GeofenceStore,
	sink interfaces.BoundaryEventSink,
	owners OwnerLocator,
	workerCount, queueSize int,
) *GeofenceWorker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerCount <= 0 {
		workerCount = 3
	}
	if queueSize <= 0 {
		queueSize = 500
	}

	config := GeofenceWorkerConfig{
		WorkerCount:       workerCount,
		QueueSize:         queueSize,
		ProcessingTimeout: 15 * time.Second,
	}

	lanes := make([]chan GeofenceJob, config.WorkerCount)
	for i := range lanes {
		lanes[i] = make(chan GeofenceJob, config.QueueSize)
	}

	return &GeofenceWorker{
		evaluator: evaluator,
		store:     store,
		sink:      sink,
		owners:    owners,
		config:    config,
		lanes:     lanes,
		ctx:       ctx,
		cancel:    cancel,
		stats: GeofenceWorkerStats{
			StartTime: time.Now(),
		},
	}
}

func (gw *GeofenceWorker) Start() error {
	gw.mutex.Lock()
	defer gw.mutex.Unlock()

	if gw.isRunning {
		return nil
	}
	gw.isRunning = true

	logrus.Infof("Starting geofence worker with %d lanes", gw.config.WorkerCount)

	for i := range gw.lanes {
		gw.wg.Add(1)
		go gw.worker(i)
	}

	return nil
}

func (gw *GeofenceWorker) Stop() error {
	gw.mutex.Lock()
	defer gw.mutex.Unlock()

	if !gw.isRunning {
		return nil
	}
	gw.isRunning = false

	gw.cancel()
	for _, lane := range gw.lanes {
		close(lane)
	}
	gw.wg.Wait()

	logrus.Info("Geofence worker stopped")
	return nil
}

// SubmitObservation queues a position observation for evaluation. The
// entity's lane is chosen by hash so its observations stay ordered.
func (gw *GeofenceWorker) SubmitObservation(entityID string, position models.Position) error {
	// Held across the send so Stop cannot close a lane mid-submit.
	gw.mutex.Lock()
	defer gw.mutex.Unlock()

	if !gw.isRunning {
		return utils.NewServiceError(utils.ErrCodeNotRunning, "geofence worker is not running")
	}

	job := GeofenceJob{
		ID:       utils.GenerateUUID(),
		EntityID: entityID,
		Position: position,
		Queued:   time.Now(),
	}

	select {
	case gw.laneFor(entityID) <- job:
		return nil
	default:
		gw.statsMutex.Lock()
		gw.stats.JobsDropped++
		gw.statsMutex.Unlock()
		return utils.NewServiceError(utils.ErrCodeQueueFull, "geofence queue is full")
	}
}

func (gw *GeofenceWorker) laneFor(entityID string) chan GeofenceJob {
	h := fnv.New32a()
	h.Write([]byte(entityID))
	return gw.lanes[int(h.Sum32())%len(gw.lanes)]
}

func (gw *GeofenceWorker) worker(lane int) {
	defer gw.wg.Done()

	for {
		select {
		case job, ok := <-gw.lanes[lane]:
			if !ok {
				return
			}
			gw.processJob(job)

		case <-gw.ctx.Done():
			return
		}
	}
}

func (gw *GeofenceWorker) processJob(job GeofenceJob) {
	ctx, cancel := context.WithTimeout(gw.ctx, gw.config.ProcessingTimeout)
	defer cancel()

	defs, err := gw.store.ActiveDefinitions(ctx, job.EntityID)
	if err != nil {
		logrus.Errorf("Failed to load definitions for entity %s: %v", job.EntityID, err)
		return
	}

	for i := range defs {
		def := &defs[i]

		var ownerPos *models.Position
		if def.IsLeash {
			ownerPos = gw.resolveOwner(ctx, def.OwnerID)
			if ownerPos == nil {
				logrus.Debugf("No owner fix for leash geofence %s, skipping", def.ID)
				continue
			}
		}

		event, err := gw.evaluator.Evaluate(def, job.EntityID, job.Position, ownerPos)
		if err != nil {
			logrus.Errorf("Geofence %s evaluation failed for entity %s: %v", def.ID, job.EntityID, err)
			continue
		}
		if event == nil {
			continue
		}

		gw.recordEvent(event.Type)
		gw.sink.OnBoundaryEvent(ctx, *event)
	}

	gw.statsMutex.Lock()
	gw.stats.JobsProcessed++
	gw.stats.LastProcessedAt = time.Now()
	gw.statsMutex.Unlock()
}

func (gw *GeofenceWorker) resolveOwner(ctx context.Context, ownerID string) *models.Position {
	if gw.owners == nil || ownerID == "" {
		return nil
	}

	report, err := gw.owners.Latest(ctx, ownerID)
	if err != nil {
		return nil
	}
	return &report.Position
}

func (gw *GeofenceWorker) recordEvent(eventType models.BoundaryEventType) {
	gw.statsMutex.Lock()
	defer gw.statsMutex.Unlock()

	gw.stats.EventsDetected++
	if eventType == models.BoundaryEnter {
		gw.stats.EntersDetected++
	} else {
		gw.stats.ExitsDetected++
	}
}

func (gw *GeofenceWorker) GetStats() GeofenceWorkerStats {
	gw.statsMutex.RLock()
	defer gw.statsMutex.RUnlock()
	return gw.stats
}
