package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-swap-api/internal/models"
	"github.com/noah-isme/sma-swap-api/pkg/jobs"
)

// Notification kinds.
const (
	NotificationDirectRequest = "swap.direct_request"
	NotificationAccepted      = "swap.accepted"
)

// Notification is a message for one teacher about a swap request.
type Notification struct {
	Kind        string `json:"kind"`
	SchoolCode  string `json:"schoolCode"`
	RecipientID string `json:"recipientId"`
	RequestID   string `json:"requestId"`
	Title       string `json:"title"`
	Body        string `json:"body"`
}

// Notifier delivers a notification. Push delivery lives outside this service.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the application log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs the default notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, msg Notification) error {
	n.logger.Info("swap notification",
		zap.String("kind", msg.Kind),
		zap.String("school_code", msg.SchoolCode),
		zap.String("recipient_id", msg.RecipientID),
		zap.String("request_id", msg.RequestID),
		zap.String("title", msg.Title))
	return nil
}

// NotificationConfig tunes the delivery queue.
type NotificationConfig struct {
	Enabled    bool
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationService fans swap events out to the notifier through a worker queue.
// Delivery is best-effort: callers never see notifier failures.
type NotificationService struct {
	notifier Notifier
	queue    *jobs.Queue[Notification]
	metrics  *MetricsService
	logger   *zap.Logger
	enabled  bool
}

// NewNotificationService constructs the service and its queue.
func NewNotificationService(notifier Notifier, cfg NotificationConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	s := &NotificationService{notifier: notifier, metrics: metrics, logger: logger, enabled: cfg.Enabled}
	s.queue = jobs.NewQueue[Notification]("swap-notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s == nil || !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains pending notifications.
func (s *NotificationService) Stop() {
	if s == nil || !s.enabled {
		return
	}
	s.queue.Stop()
}

// SwapCreated tells the addressed teacher about a direct request. Open requests notify nobody.
func (s *NotificationService) SwapCreated(req *models.SwapRequest) {
	if req == nil || !req.IsDirect() {
		return
	}
	s.publish(Notification{
		Kind:        NotificationDirectRequest,
		SchoolCode:  req.SchoolCode,
		RecipientID: *req.ToID,
		RequestID:   req.ID,
		Title:       "New swap request",
		Body:        fmt.Sprintf("%s asks you to cover %s period %d (%s)", req.RequesterName, req.DayLabel(), req.Period, req.SubjectLabel),
	})
}

// SwapAccepted tells the requester who took their slot.
func (s *NotificationService) SwapAccepted(req *models.SwapRequest) {
	if req == nil || req.AccepterID == nil {
		return
	}
	accepter := *req.AccepterID
	if req.AccepterName != nil && *req.AccepterName != "" {
		accepter = *req.AccepterName
	}
	s.publish(Notification{
		Kind:        NotificationAccepted,
		SchoolCode:  req.SchoolCode,
		RecipientID: req.RequesterID,
		RequestID:   req.ID,
		Title:       "Swap request accepted",
		Body:        fmt.Sprintf("%s accepted %s period %d (%s)", accepter, req.DayLabel(), req.Period, req.SubjectLabel),
	})
}

func (s *NotificationService) publish(n Notification) {
	if s == nil || !s.enabled {
		return
	}
	if err := s.queue.Enqueue(jobs.Job[Notification]{ID: n.Kind + ":" + n.RequestID, Payload: n}); err != nil {
		s.metrics.RecordNotification("dropped")
		s.logger.Warn("notification dropped", zap.String("kind", n.Kind), zap.String("request_id", n.RequestID), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job[Notification]) error {
	if err := s.notifier.Notify(ctx, job.Payload); err != nil {
		s.metrics.RecordNotification("failed")
		return err
	}
	s.metrics.RecordNotification("sent")
	return nil
}
