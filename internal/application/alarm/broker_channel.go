package alarm

import (
	"context"
	"fmt"

	"github.com/dreschagin/health-checker/internal/application/dto"
	"github.com/dreschagin/health-checker/internal/application/port"
)

// BrokerChannel publishes reports to a message broker subject.
type BrokerChannel struct {
	publisher port.EventPublisher
	subject   string
}

func NewBrokerChannel(publisher port.EventPublisher, subject string) *BrokerChannel {
	return &BrokerChannel{publisher: publisher, subject: subject}
}

func (c *BrokerChannel) Name() string {
	return "broker"
}

func (c *BrokerChannel) Deliver(ctx context.Context, report *dto.ReportDTO) error {
	subject := c.subject + "." + report.Summary.OverallStatus
	if err := c.publisher.PublishEvent(ctx, subject, report); err != nil {
		return fmt.Errorf("failed to publish report to %s: %w", subject, err)
	}
	return nil
}
