package alarm

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/dreschagin/health-checker/internal/application/dto"
	"github.com/dreschagin/health-checker/internal/application/port"
)

// ArchiveChannel stores every report as a JSON object, keyed by date.
type ArchiveChannel struct {
	storage   port.ObjectStorage
	keyPrefix string
}

func NewArchiveChannel(storage port.ObjectStorage, keyPrefix string) *ArchiveChannel {
	return &ArchiveChannel{
		storage:   storage,
		keyPrefix: strings.Trim(keyPrefix, "/"),
	}
}

func (c *ArchiveChannel) Name() string {
	return "archive"
}

func (c *ArchiveChannel) Deliver(ctx context.Context, report *dto.ReportDTO) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	key := c.objectKey(report)
	if _, err := c.storage.PutObject(ctx, key, "application/json", body); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return nil
}

// reports/2026/10/14/20261014T120000Z_<id>.json
func (c *ArchiveChannel) objectKey(report *dto.ReportDTO) string {
	at := report.UpdateTime.UTC()
	name := fmt.Sprintf("%s_%s.json", at.Format("20060102T150405Z"), report.ID)
	return path.Join(c.keyPrefix, at.Format("2006/01/02"), name)
}
