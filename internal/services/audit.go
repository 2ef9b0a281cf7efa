package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ClusterM/google-assistant-smart-home/internal/models"
	"github.com/ClusterM/google-assistant-smart-home/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const auditBatchSize = 100

// AuditStore is the persistence the audit service writes through.
type AuditStore interface {
	CreateAuditLog(log *models.AuditLog) error
	CreateAuditLogBatch(logs []*models.AuditLog) error
	DeleteOldAuditLogs(cutoff time.Time) (int64, error)
}

// AuditLogEntry represents the data needed to create an audit log entry
type AuditLogEntry struct {
	EventType     models.EventType
	Severity      models.EventSeverity
	ActorUserID   string
	ActorIP       string
	ResourceType  models.ResourceType
	ResourceID    string
	Action        string
	Details       models.AuditDetails
	Success       bool
	ErrorMessage  string
	UserAgent     string
	RequestPath   string
	RequestMethod string
}

// AuditService records security-relevant events. Log is asynchronous and
// never blocks the caller; entries are batched by a single worker.
type AuditService struct {
	store      AuditStore
	enabled    bool
	bufferSize int
	log        *zap.Logger

	logChan chan *models.AuditLog

	batchBuffer []*models.AuditLog
	batchMutex  sync.Mutex
	batchTicker *time.Ticker

	wg           sync.WaitGroup
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewAuditService creates a new audit service
func NewAuditService(s AuditStore, enabled bool, bufferSize int, log *zap.Logger) *AuditService {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if log == nil {
		log = zap.NewNop()
	}

	service := &AuditService{
		store:       s,
		enabled:     enabled,
		bufferSize:  bufferSize,
		log:         log,
		logChan:     make(chan *models.AuditLog, bufferSize),
		batchBuffer: make([]*models.AuditLog, 0, auditBatchSize),
		shutdownCh:  make(chan struct{}),
	}

	if enabled {
		service.batchTicker = time.NewTicker(1 * time.Second)
		service.wg.Add(1)
		go service.worker()
		log.Info("audit service started", zap.Int("buffer_size", bufferSize))
	} else {
		log.Info("audit service is disabled")
	}

	return service
}

func (s *AuditService) worker() {
	defer s.wg.Done()

	for {
		select {
		case entry := <-s.logChan:
			s.addToBatch(entry)

		case <-s.batchTicker.C:
			s.flushBatch()

		case <-s.shutdownCh:
			// Drain whatever is still queued before the final flush.
			for {
				select {
				case entry := <-s.logChan:
					s.addToBatch(entry)
				default:
					s.flushBatch()
					return
				}
			}
		}
	}
}

func (s *AuditService) addToBatch(entry *models.AuditLog) {
	s.batchMutex.Lock()
	defer s.batchMutex.Unlock()

	s.batchBuffer = append(s.batchBuffer, entry)
	if len(s.batchBuffer) >= auditBatchSize {
		s.flushBatchUnsafe()
	}
}

func (s *AuditService) flushBatch() {
	s.batchMutex.Lock()
	defer s.batchMutex.Unlock()
	s.flushBatchUnsafe()
}

// flushBatchUnsafe writes the buffer; the caller must hold batchMutex.
func (s *AuditService) flushBatchUnsafe() {
	if len(s.batchBuffer) == 0 {
		return
	}

	toWrite := make([]*models.AuditLog, len(s.batchBuffer))
	copy(toWrite, s.batchBuffer)
	s.batchBuffer = s.batchBuffer[:0]

	if err := s.store.CreateAuditLogBatch(toWrite); err != nil {
		s.log.Error("failed to write audit log batch",
			zap.Int("entries", len(toWrite)),
			zap.Error(err),
		)
	}
}

func (s *AuditService) build(ctx context.Context, entry AuditLogEntry) *models.AuditLog {
	if entry.ActorIP == "" {
		entry.ActorIP = util.GetIPFromContext(ctx)
	}
	if entry.ActorUserID == "" {
		entry.ActorUserID = models.GetUserIDFromContext(ctx)
	}
	if entry.Severity == "" {
		entry.Severity = models.SeverityInfo
	}

	now := time.Now()
	return &models.AuditLog{
		ID:            uuid.New().String(),
		EventType:     entry.EventType,
		EventTime:     now,
		Severity:      entry.Severity,
		ActorUserID:   entry.ActorUserID,
		ActorIP:       entry.ActorIP,
		ResourceType:  entry.ResourceType,
		ResourceID:    entry.ResourceID,
		Action:        entry.Action,
		Details:       maskSensitiveDetails(entry.Details),
		Success:       entry.Success,
		ErrorMessage:  entry.ErrorMessage,
		UserAgent:     entry.UserAgent,
		RequestPath:   entry.RequestPath,
		RequestMethod: entry.RequestMethod,
		CreatedAt:     now,
	}
}

// Log records an audit log entry asynchronously
func (s *AuditService) Log(ctx context.Context, entry AuditLogEntry) {
	if !s.enabled {
		return
	}

	select {
	case s.logChan <- s.build(ctx, entry):
	default:
		s.log.Warn("audit log buffer full, dropping event",
			zap.String("event_type", string(entry.EventType)),
			zap.String("action", entry.Action),
		)
	}
}

// LogSync records an audit log entry synchronously (for critical events)
func (s *AuditService) LogSync(ctx context.Context, entry AuditLogEntry) error {
	if !s.enabled {
		return nil
	}
	return s.store.CreateAuditLog(s.build(ctx, entry))
}

// CleanupOldLogs deletes audit logs older than the retention period
func (s *AuditService) CleanupOldLogs(retention time.Duration) (int64, error) {
	return s.store.DeleteOldAuditLogs(time.Now().Add(-retention))
}

// Shutdown flushes queued entries and stops the worker
func (s *AuditService) Shutdown(ctx context.Context) error {
	if !s.enabled {
		return nil
	}

	s.shutdownOnce.Do(func() {
		s.batchTicker.Stop()
		close(s.shutdownCh)
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("audit service shut down gracefully")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit service shutdown timeout: %w", ctx.Err())
	}
}

// maskSensitiveDetails masks sensitive information in audit log details
func maskSensitiveDetails(details models.AuditDetails) models.AuditDetails {
	if details == nil {
		return nil
	}

	masked := make(models.AuditDetails, len(details))
	for key, value := range details {
		if isSensitiveField(key) {
			masked[key] = "***REDACTED***"
			continue
		}
		if isPartialMaskField(key) {
			if str, ok := value.(string); ok && len(str) > 4 {
				masked[key] = str[:2] + "..." + str[len(str)-2:]
				continue
			}
		}
		masked[key] = value
	}
	return masked
}

func isSensitiveField(key string) bool {
	key = strings.ToLower(key)
	for _, field := range []string{"password", "client_secret", "token", "secret"} {
		if strings.Contains(key, field) {
			return true
		}
	}
	return false
}

// isPartialMaskField matches authorization code fields.
func isPartialMaskField(key string) bool {
	key = strings.ToLower(key)
	return strings.Contains(key, "code") && !strings.Contains(key, "error_code")
}
