package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"imgapi/internal/storage"
)

// Pipeline runs the deferred store-and-convert step: each job persists the
// original upload to the blob store, transcodes it, and persists the artifact
// alongside. Callers get an "ok" before any of this runs; failures are logged
// and counted but never surfaced to the uploader and never retried. The
// published metadata record stays published either way.
type Pipeline struct {
	store   storage.Storage
	workers int

	ctx    context.Context
	cancel context.CancelFunc

	queue chan job
	wg    sync.WaitGroup

	mu      sync.Mutex
	started bool

	jobsTotal *prometheus.CounterVec
}

type job struct {
	key     string
	payload []byte
}

// PipelineConfig configures the worker pool.
type PipelineConfig struct {
	Store     storage.Storage
	Workers   int
	QueueSize int
	Registry  prometheus.Registerer
}

const (
	defaultWorkers   = 2
	defaultQueueSize = 64

	resultOK           = "ok"
	resultDropped      = "dropped"
	resultStorageError = "storage_error"
	resultConvertError = "convert_error"
)

// NewPipeline creates a stopped pipeline. Call Start to launch the workers.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	jobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convert_jobs_total",
			Help: "Outcomes of deferred store-and-convert jobs.",
		},
		[]string{"result"},
	)
	if cfg.Registry != nil {
		if err := cfg.Registry.Register(jobsTotal); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		store:     cfg.Store,
		workers:   workers,
		ctx:       ctx,
		cancel:    cancel,
		queue:     make(chan job, queueSize),
		jobsTotal: jobsTotal,
	}, nil
}

// Start launches the worker goroutines. Idempotent.
func (p *Pipeline) Start() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Shutdown stops accepting work and waits for in-flight jobs, bounded by ctx.
// Jobs still sitting in the queue at cancel time are lost, matching the
// accepted no-completion-signal semantics of deferred work.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.cancel()
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue hands a store-and-convert job to the pool without blocking the
// request path. A full queue drops the job; there is no backpressure or retry.
func (p *Pipeline) Enqueue(key string, payload []byte) {
	select {
	case <-p.ctx.Done():
		return
	default:
	}

	select {
	case p.queue <- job{key: key, payload: payload}:
	default:
		p.jobsTotal.WithLabelValues(resultDropped).Inc()
		p.logJSON(map[string]any{
			"level": "error",
			"msg":   "convert_queue_full",
			"key":   key,
		})
	}
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case j := <-p.queue:
			p.process(j)
		}
	}
}

func (p *Pipeline) process(j job) {
	start := time.Now()

	_, err := p.store.Put(p.ctx, j.key, bytes.NewReader(j.payload), storage.PutObjectOptions{
		Size: int64(len(j.payload)),
	})
	if err != nil {
		p.jobsTotal.WithLabelValues(resultStorageError).Inc()
		p.logJSON(map[string]any{
			"level": "error",
			"msg":   "store_original_failed",
			"key":   j.key,
			"error": err.Error(),
		})
		return
	}

	artifact, err := ToWebP(j.payload)
	if err != nil {
		// The record is already published; retrieval will miss the artifact.
		p.jobsTotal.WithLabelValues(resultConvertError).Inc()
		p.logJSON(map[string]any{
			"level": "error",
			"msg":   "convert_failed",
			"key":   j.key,
			"error": err.Error(),
		})
		return
	}

	outKey := OutputKey(j.key)
	_, err = p.store.Put(p.ctx, outKey, bytes.NewReader(artifact), storage.PutObjectOptions{
		Size:        int64(len(artifact)),
		ContentType: ContentType,
	})
	if err != nil {
		p.jobsTotal.WithLabelValues(resultStorageError).Inc()
		p.logJSON(map[string]any{
			"level": "error",
			"msg":   "store_artifact_failed",
			"key":   outKey,
			"error": err.Error(),
		})
		return
	}

	p.jobsTotal.WithLabelValues(resultOK).Inc()
	p.logJSON(map[string]any{
		"level":       "info",
		"msg":         "convert_done",
		"key":         j.key,
		"artifact":    outKey,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

func (p *Pipeline) logJSON(data map[string]any) {
	data["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	data["component"] = "convert"

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal convert log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
