package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Codealike/Codealike-plugins-core/internal/api"
	"github.com/Codealike/Codealike-plugins-core/internal/core/tracking"
	"github.com/Codealike/Codealike-plugins-core/internal/data/spool"
	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

// ActivityPoster delivers encoded activity batches
type ActivityPoster interface {
	PostActivityPayload(ctx context.Context, payload []byte) error
}

// Spool keeps batches that could not be delivered
type Spool interface {
	Save(ctx context.Context, projectID, batchID string, payload []byte, createdAt time.Time) (int64, error)
	Pending(ctx context.Context, limit int) ([]spool.Entry, error)
	MarkAttempt(ctx context.Context, id int64, cause error) error
	Delete(ctx context.Context, id int64) error
}

// Shipper is the tracker's sink. It posts each batch to the collector,
// spools it when the post fails and drains the spool, oldest first, after
// every successful post.
type Shipper struct {
	poster     ActivityPoster
	spool      Spool
	meta       api.Metadata
	clock      util.Clock
	drainLimit int
}

// NewShipper creates a shipper. store may be nil, in which case failed
// batches are reported instead of spooled.
func NewShipper(poster ActivityPoster, store Spool, meta api.Metadata, clock util.Clock, drainLimit int) *Shipper {
	if clock == nil {
		clock = util.GetTimeProvider()
	}
	return &Shipper{
		poster:     poster,
		spool:      store,
		meta:       meta,
		clock:      clock,
		drainLimit: drainLimit,
	}
}

// Ship implements tracking.Sink
func (s *Shipper) Ship(ctx context.Context, flush tracking.Flush) error {
	info, err := api.NewActivityInfo(s.meta, flush.Project.ID, flush.Project.Name, flush.Batch)
	if err != nil {
		return err
	}
	payload, err := api.EncodeActivity(info)
	if err != nil {
		return err
	}

	if err := s.poster.PostActivityPayload(ctx, payload); err != nil {
		util.LogWarn("Data not sent to server",
			util.F("batch_id", info.BatchID),
			util.F("error", err.Error()))

		if s.spool == nil {
			return err
		}
		if _, spoolErr := s.spool.Save(ctx, flush.Project.ID, info.BatchID, payload, s.clock.Now()); spoolErr != nil {
			return errors.Join(err, spoolErr)
		}
		util.LogInfo("Batch kept for later delivery", util.F("batch_id", info.BatchID))
		return nil
	}

	util.LogDebug("Data successfully sent to server",
		util.F("batch_id", info.BatchID),
		util.F("states", len(info.States)),
		util.F("events", len(info.Events)))

	if s.spool != nil {
		if sent, err := s.Drain(ctx, s.drainLimit); err != nil {
			util.LogWarnf("Spool drain stopped after %d batches: %v", sent, err)
		} else if sent > 0 {
			util.LogInfof("Delivered %d spooled batches", sent)
		}
	}
	return nil
}

// Drain posts up to limit spooled batches, oldest first, stopping at the
// first failure so delivery order is preserved. A limit of zero drains all.
func (s *Shipper) Drain(ctx context.Context, limit int) (int, error) {
	if s.spool == nil {
		return 0, nil
	}

	entries, err := s.spool.Pending(ctx, limit)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, e := range entries {
		if err := s.poster.PostActivityPayload(ctx, e.Payload); err != nil {
			if markErr := s.spool.MarkAttempt(ctx, e.ID, err); markErr != nil {
				util.LogWarnf("Failed to record delivery attempt: %v", markErr)
			}
			return sent, fmt.Errorf("batch %s: %w", e.BatchID, err)
		}
		if err := s.spool.Delete(ctx, e.ID); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
