package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kudeepakh/farm-authz/authz"
	"go.uber.org/zap"
)

// RuleResult captures one rule's contribution to a verdict.
type RuleResult struct {
	Rule     string `json:"rule"`
	Priority int    `json:"priority"`
	Allowed  bool   `json:"allowed"`
	Fault    string `json:"fault,omitempty"` // set when the rule errored instead of deciding
}

// AuditRecord describes one engine decision: which rules ran, what each
// said, and the final verdict.
type AuditRecord struct {
	ID           uuid.UUID    `json:"id"`
	Timestamp    time.Time    `json:"timestamp"`
	UserID       string       `json:"user_id"`
	Action       string       `json:"action"`
	ResourceType string       `json:"resource_type"`
	Mode         Mode         `json:"mode"`
	Results      []RuleResult `json:"results"`
	Verdict      bool         `json:"verdict"`
}

func newAuditRecord(user authz.Claims, action string, resource any, mode Mode) *AuditRecord {
	resourceType := "resource"
	if res := authz.AsResource(resource); res != nil {
		resourceType = res.TypeName()
	}
	return &AuditRecord{
		ID:           uuid.New(),
		Timestamp:    time.Now().UTC(),
		UserID:       user.UserID(),
		Action:       action,
		ResourceType: resourceType,
		Mode:         mode,
	}
}

func (r *AuditRecord) addResult(rule Rule, allowed bool) {
	r.Results = append(r.Results, RuleResult{
		Rule:     rule.Name(),
		Priority: rule.Priority(),
		Allowed:  allowed,
	})
}

func (r *AuditRecord) addFault(rule Rule, err error) {
	r.Results = append(r.Results, RuleResult{
		Rule:     rule.Name(),
		Priority: rule.Priority(),
		Fault:    err.Error(),
	})
}

// Recorder receives the audit trail of engine decisions.
type Recorder interface {
	Record(record *AuditRecord)
}

// ZapRecorder writes audit records synchronously to a structured log.
type ZapRecorder struct {
	logger *zap.Logger
}

// NewZapRecorder creates a recorder logging at info level.
func NewZapRecorder(logger *zap.Logger) *ZapRecorder {
	return &ZapRecorder{logger: logger}
}

// Record implements Recorder.
func (r *ZapRecorder) Record(record *AuditRecord) {
	r.logger.Info("authorization audit",
		zap.String("audit_id", record.ID.String()),
		zap.Time("timestamp", record.Timestamp),
		zap.String("user_id", record.UserID),
		zap.String("action", record.Action),
		zap.String("resource_type", record.ResourceType),
		zap.String("mode", string(record.Mode)),
		zap.Bool("verdict", record.Verdict),
		zap.Any("rules", record.Results))
}

// RecorderConfig holds configuration for the AsyncRecorder.
type RecorderConfig struct {
	BufferSize  int // size of the record buffer channel
	WorkerCount int // number of concurrent delivery workers
}

// DefaultRecorderConfig returns the default configuration.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		BufferSize:  4096,
		WorkerCount: 2,
	}
}

// AsyncRecorder buffers records on a channel and delivers them to a wrapped
// sink from a pool of workers, so audit delivery never blocks the decision
// path. When the buffer is full records are dropped with a warning rather
// than stalling request handling.
type AsyncRecorder struct {
	sink        Recorder
	logger      *zap.Logger
	records     chan *AuditRecord
	workerCount int
	wg          sync.WaitGroup
	mu          sync.Mutex
	started     bool
	stopped     bool
}

// NewAsyncRecorder creates an AsyncRecorder wrapping the given sink.
func NewAsyncRecorder(sink Recorder, logger *zap.Logger, config RecorderConfig) *AsyncRecorder {
	return &AsyncRecorder{
		sink:        sink,
		logger:      logger,
		records:     make(chan *AuditRecord, config.BufferSize),
		workerCount: config.WorkerCount,
	}
}

// Start launches the delivery workers.
func (r *AsyncRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("audit recorder already started")
	}
	for i := 0; i < r.workerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.started = true
	r.logger.Info("started audit recorder",
		zap.Int("worker_count", r.workerCount),
		zap.Int("buffer_size", cap(r.records)))
	return nil
}

// Stop closes the buffer and waits for pending records to drain, up to the
// timeout.
func (r *AsyncRecorder) Stop(timeout time.Duration) error {
	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		return fmt.Errorf("audit recorder not running")
	}
	r.stopped = true
	r.mu.Unlock()

	r.logger.Info("stopping audit recorder", zap.Int("pending_records", len(r.records)))
	close(r.records)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("audit recorder stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit recorder stop timeout after %v", timeout)
	}
}

// Record implements Recorder. It never blocks.
func (r *AsyncRecorder) Record(record *AuditRecord) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	select {
	case r.records <- record:
	default:
		r.logger.Warn("audit buffer full, dropping record",
			zap.String("audit_id", record.ID.String()),
			zap.String("user_id", record.UserID))
	}
}

func (r *AsyncRecorder) worker(id int) {
	defer r.wg.Done()
	for record := range r.records {
		r.sink.Record(record)
	}
	r.logger.Debug("audit worker exiting", zap.Int("worker_id", id))
}
