package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/victoralfred/gowritter/safepath"
	"golang.org/x/time/rate"

	"github.com/victoralfred/gotrap/trap"
)

// AuditLogger provides append-only fault audit logging. It implements
// trap.AuditSink.
type AuditLogger interface {
	// Record persists the outcome of one guarded call.
	Record(ctx context.Context, call *trap.Call, result *trap.Result) error

	// Close closes the audit logger.
	Close() error
}

// AuditEvent represents an audit log entry for one guarded call.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	ID        string            `json:"id"`
	TraceID   string            `json:"trace_id,omitempty"`
	Call      string            `json:"call,omitempty"`
	Status    string            `json:"status"`
	Code      string            `json:"code,omitempty"`
	Signo     uint32            `json:"signo,omitempty"`
	Sicode    int32             `json:"sicode,omitempty"`
	Addr      string            `json:"addr,omitempty"`
	Duration  time.Duration     `json:"duration"`
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	LogLevel AuditLogLevel `yaml:"log_level"`
	BasePath string        `yaml:"base_path"`
	FilePath string        `yaml:"file_path"`

	// MaxEventsPerSecond damps fault storms: a procedure faulting in a
	// tight loop must not be able to flood the log. Events beyond the
	// rate are counted but not written.
	MaxEventsPerSecond float64 `yaml:"max_events_per_second"`
	Burst              int     `yaml:"burst"`
	Enabled            bool    `yaml:"enabled"`
}

// AuditLogLevel determines what events to log.
type AuditLogLevel string

const (
	// AuditLogAll logs every guarded call.
	AuditLogAll AuditLogLevel = "all"

	// AuditLogFaults logs only calls that faulted.
	AuditLogFaults AuditLogLevel = "faults"
)

// DefaultAuditConfig returns default audit configuration.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:            true,
		LogLevel:           AuditLogFaults,
		BasePath:           "/var/log",
		FilePath:           "gotrap/audit.log",
		MaxEventsPerSecond: 50,
		Burst:              100,
	}
}

// fileAuditLogger implements AuditLogger using gowritter.
type fileAuditLogger struct {
	safePath *safepath.SafePath
	limiter  *rate.Limiter
	config   AuditConfig
	dropped  int64
	mu       sync.Mutex
}

// NewFileAuditLogger creates a new file-based audit logger.
func NewFileAuditLogger(config AuditConfig) (AuditLogger, error) {
	sp, err := safepath.New(config.BasePath)
	if err != nil {
		return nil, fmt.Errorf("creating safe path: %w", err)
	}

	if config.MaxEventsPerSecond <= 0 {
		config.MaxEventsPerSecond = 50
	}
	if config.Burst <= 0 {
		config.Burst = 100
	}

	return &fileAuditLogger{
		config:   config,
		safePath: sp,
		limiter:  rate.NewLimiter(rate.Limit(config.MaxEventsPerSecond), config.Burst),
	}, nil
}

// Record implements AuditLogger.Record.
func (l *fileAuditLogger) Record(ctx context.Context, call *trap.Call, result *trap.Result) error {
	if !l.config.Enabled {
		return nil
	}

	if l.config.LogLevel == AuditLogFaults && !result.Faulted() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.limiter.Allow() {
		l.dropped++
		return nil
	}

	event := newAuditEvent(call, result)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling audit event: %w", err)
	}
	data = append(data, '\n')

	if err := l.safePath.AppendFile(l.config.FilePath, data, 0o644); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}

	return nil
}

// Dropped returns the number of events suppressed by storm damping.
func (l *fileAuditLogger) Dropped() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close implements AuditLogger.Close.
func (l *fileAuditLogger) Close() error {
	return nil
}

// newAuditEvent builds an audit event from a guarded-call result.
func newAuditEvent(call *trap.Call, result *trap.Result) *AuditEvent {
	event := &AuditEvent{
		ID:        result.CallID,
		TraceID:   result.TraceID,
		Timestamp: time.Now(),
		Status:    result.Status.String(),
		Duration:  result.Duration,
	}

	if call != nil {
		event.Call = call.Name
		event.Metadata = call.Metadata
	}

	if ex := result.Exception; ex != nil {
		event.Code = ex.Code().Name()
		event.Signo, event.Sicode = ex.Raw()
		if ex.Addr() != 0 {
			event.Addr = fmt.Sprintf("0x%x", uint64(ex.Addr()))
		}
	}

	return event
}

// NoopAuditLogger returns a no-op audit logger.
func NoopAuditLogger() AuditLogger {
	return &noopAuditLogger{}
}

type noopAuditLogger struct{}

func (l *noopAuditLogger) Record(ctx context.Context, call *trap.Call, result *trap.Result) error {
	return nil
}

func (l *noopAuditLogger) Close() error { return nil }
