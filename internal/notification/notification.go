package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Notifier delivers operational alerts raised by reconciliation and ratio
// checks. Delivery is best-effort and must never block or fail the ledger
// write that triggered it.
type Notifier interface {
	SendAlert(ctx context.Context, title, message string)
}

// Alert is one delivered notification.
type Alert struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

const maxBufferedAlerts = 100

// Service logs every alert and retains the most recent ones in a bounded
// in-memory buffer for the alerts endpoint. Oldest entries are dropped first.
type Service struct {
	mu     sync.Mutex
	alerts []Alert
}

func NewService() *Service {
	return &Service{}
}

func (s *Service) SendAlert(_ context.Context, title, message string) {
	alert := Alert{Title: title, Message: message, CreatedAt: time.Now().UTC()}

	s.mu.Lock()
	s.alerts = append(s.alerts, alert)
	if len(s.alerts) > maxBufferedAlerts {
		s.alerts = s.alerts[len(s.alerts)-maxBufferedAlerts:]
	}
	s.mu.Unlock()

	zap.L().Warn("alert raised",
		zap.String("title", title),
		zap.String("message", message))
}

// Recent returns buffered alerts, newest last.
func (s *Service) Recent() []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Alert(nil), s.alerts...)
}
