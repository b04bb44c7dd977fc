package dispute

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

// Timeline returns the audit log of a dispute ordered by sequence
func (s *DisputeService) Timeline(ctx context.Context, actor domain.Actor, disputeID uuid.UUID) ([]*domain.TimelineEntry, error) {
	if _, err := s.GetDispute(ctx, actor, disputeID); err != nil {
		return nil, err
	}
	return s.TimelineRepo.ListByDispute(ctx, disputeID)
}

var csvHeader = []string{"seq", "dispute_id", "action", "actor_id", "timestamp", "metadata"}

// ExportTimelineCSV writes the audit log of a dispute as CSV for compliance review.
// Only administrators may export.
func (s *DisputeService) ExportTimelineCSV(ctx context.Context, actor domain.Actor, disputeID uuid.UUID, w io.Writer) error {
	if !actor.IsAdmin() {
		return domain.NewAuthorizationError("Only administrators can export dispute timelines")
	}
	entries, err := s.Timeline(ctx, actor, disputeID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, e := range entries {
		record := []string{
			strconv.FormatInt(e.Seq, 10),
			e.DisputeID.String(),
			string(e.Action),
			e.ActorID.String(),
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			encodeMetadata(e.Metadata),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// encodeMetadata renders metadata as key=value pairs sorted by key
func encodeMetadata(metadata map[string]string) string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+metadata[k])
	}
	return strings.Join(parts, ";")
}
