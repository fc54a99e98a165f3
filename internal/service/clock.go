package service

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"

	"timeledger/internal/apperr"
	"timeledger/internal/auth"
	"timeledger/internal/model"
)

const (
	// DefaultStaleCap is the longest a clock session may remain open.
	DefaultStaleCap = 8 * time.Hour

	// AutoClockOutDescription is written to entries synthesized for stale sessions.
	AutoClockOutDescription = "Auto clock-out - please update project and description"

	historyLimit = 20
)

type ClockService struct {
	tx       Tx
	sessions ClockStore
	entries  EntryStore
	notifier Notifier
	opts     options
}

func NewClockService(tx Tx, sessions ClockStore, entries EntryStore, notifier Notifier, opts ...Option) *ClockService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ClockService{tx: tx, sessions: sessions, entries: entries, notifier: notifier, opts: newOptions(opts)}
}

type ClockOutResult struct {
	Hours       decimal.Decimal `json:"hours"`
	TimeEntryID bson.ObjectID   `json:"timeEntryId"`
}

// RoundClockHours rounds elapsed to the nearest quarter hour and clamps it to [0.25, max].
func RoundClockHours(elapsed, max time.Duration) decimal.Decimal {
	quarters := int64(math.Round(elapsed.Hours() * 4))
	maxQuarters := int64(math.Floor(max.Hours() * 4))
	if quarters > maxQuarters {
		quarters = maxQuarters
	}
	if quarters < 1 {
		quarters = 1
	}
	return decimal.New(quarters*25, -2)
}

// ClockIn opens a new session for the caller. A stale open session is closed first; any
// other open session is a conflict.
func (s *ClockService) ClockIn(ctx context.Context, caller auth.Caller) (*model.ClockSession, error) {
	now := s.opts.now()

	open, err := s.sessions.GetOpenSession(ctx, caller.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "get open session")
	}
	if open != nil {
		if _, err := s.closeIfStale(ctx, open, now, false); err != nil {
			return nil, err
		}
	}

	session := &model.ClockSession{
		ID:        bson.NewObjectID(),
		UserID:    caller.UserID,
		Open:      true,
		ClockInAt: now,
		CreatedAt: now,
	}
	err = s.sessions.CreateSession(ctx, session)
	if errors.Is(err, model.ErrDuplicate) {
		return nil, apperr.Conflict("clock.err.already_clocked_in")
	}
	if err != nil {
		return nil, errors.Wrap(err, "create session")
	}
	return session, nil
}

// Status reports the caller's open session, closing it inline when it has gone stale.
func (s *ClockService) Status(ctx context.Context, caller auth.Caller) (*model.ClockStatus, error) {
	now := s.opts.now()

	open, err := s.sessions.GetOpenSession(ctx, caller.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "get open session")
	}
	if open != nil {
		elapsed := now.Sub(open.ClockInAt)
		if elapsed < s.opts.staleCap {
			return &model.ClockStatus{
				Active:         true,
				SessionID:      &open.ID,
				ClockInAt:      &open.ClockInAt,
				ElapsedSeconds: int64(elapsed / time.Second),
			}, nil
		}
		summary, err := s.closeIfStale(ctx, open, now, true)
		if err != nil {
			return nil, err
		}
		if summary != nil {
			return &model.ClockStatus{AutoClosedSession: summary}, nil
		}
		// Lost the race to the sweep; fall through and surface its closure.
	}

	acked, err := s.sessions.AcknowledgeAutoClose(ctx, caller.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "acknowledge auto clock-out")
	}
	status := &model.ClockStatus{}
	if acked != nil && acked.ClockOutAt != nil && acked.TimeEntryID != nil {
		status.AutoClosedSession = &model.AutoClosedSession{
			ID:          acked.ID,
			ClockInAt:   acked.ClockInAt,
			ClockOutAt:  *acked.ClockOutAt,
			TimeEntryID: *acked.TimeEntryID,
			Hours:       RoundClockHours(acked.ClockOutAt.Sub(acked.ClockInAt), s.opts.staleCap),
		}
	}
	return status, nil
}

// ClockOut closes the caller's open session and records it as a REGULAR entry dated on
// the clock-in day.
func (s *ClockService) ClockOut(ctx context.Context, caller auth.Caller, projectID *bson.ObjectID, description string) (*ClockOutResult, error) {
	if missingID(projectID) || description == "" {
		return nil, apperr.Validation("clock.err.project_description_required")
	}
	now := s.opts.now()

	open, err := s.sessions.GetOpenSession(ctx, caller.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "get open session")
	}
	if open == nil {
		return nil, apperr.NotFound("clock.err.no_active_session")
	}

	hours := RoundClockHours(now.Sub(open.ClockInAt), s.opts.staleCap)
	entry := &model.TimeEntry{
		ID:          bson.NewObjectID(),
		UserID:      open.UserID,
		ProjectID:   projectID,
		EntryType:   model.EntryTypeRegular,
		Date:        localDate(open.ClockInAt),
		Hours:       hours,
		Description: description,
		CreatedAt:   now,
	}

	// The entry goes in first so a failed write leaves the session open for a retry.
	err = s.tx.Atomic(ctx, func(ctx context.Context) error {
		if err := s.entries.CreateEntry(ctx, entry); err != nil {
			return errors.Wrap(err, "create entry")
		}
		closed, err := s.sessions.CloseSession(ctx, open.ID, model.SessionClose{
			ClockOutAt:  now,
			ProjectID:   projectID,
			Description: description,
			TimeEntryID: entry.ID,
		})
		if err == nil && !closed {
			err = apperr.NotFound("clock.err.no_active_session")
		}
		if err != nil {
			discardEntry(ctx, s.entries, entry.ID)
			return errors.Wrap(err, "close session")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ClockOutResult{Hours: hours, TimeEntryID: entry.ID}, nil
}

func (s *ClockService) History(ctx context.Context, caller auth.Caller) ([]*model.ClockSession, error) {
	sessions, err := s.sessions.ListSessions(ctx, caller.UserID, historyLimit)
	if err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}
	return sessions, nil
}

// SweepResult summarizes one pass of AutoCloseStaleSessions.
type SweepResult struct {
	Closed int
	Failed int
}

// AutoCloseStaleSessions closes every session open longer than the stale cap. Failures are
// logged per session and do not stop the pass.
func (s *ClockService) AutoCloseStaleSessions(ctx context.Context) (SweepResult, error) {
	now := s.opts.now()
	var res SweepResult

	stale, err := s.sessions.ListOpenSessionsBefore(ctx, now.Add(-s.opts.staleCap))
	if err != nil {
		return res, errors.Wrap(err, "list stale sessions")
	}
	for _, sess := range stale {
		summary, err := s.closeIfStale(ctx, sess, now, false)
		if err != nil {
			res.Failed++
			log.WithError(err).WithFields(log.Fields{
				"session_id": sess.ID.Hex(),
				"user_id":    sess.UserID,
			}).Error("auto clock-out failed")
			continue
		}
		if summary != nil {
			res.Closed++
		}
	}
	return res, nil
}

// closeIfStale closes sess at clock-in + cap with a synthesized entry of exactly cap hours.
// It returns nil without writing when the session is not stale or another caller closed it
// first.
func (s *ClockService) closeIfStale(ctx context.Context, sess *model.ClockSession, now time.Time, acknowledged bool) (*model.AutoClosedSession, error) {
	if now.Sub(sess.ClockInAt) < s.opts.staleCap {
		return nil, nil
	}
	clockOutAt := sess.ClockInAt.Add(s.opts.staleCap)
	hours := RoundClockHours(s.opts.staleCap, s.opts.staleCap)
	entry := &model.TimeEntry{
		ID:          bson.NewObjectID(),
		UserID:      sess.UserID,
		EntryType:   model.EntryTypeRegular,
		Date:        localDate(sess.ClockInAt),
		Hours:       hours,
		Description: AutoClockOutDescription,
		CreatedAt:   now,
	}

	var closed bool
	err := s.tx.Atomic(ctx, func(ctx context.Context) error {
		if err := s.entries.CreateEntry(ctx, entry); err != nil {
			return errors.Wrap(err, "create auto clock-out entry")
		}
		var err error
		closed, err = s.sessions.CloseSession(ctx, sess.ID, model.SessionClose{
			ClockOutAt:   clockOutAt,
			Description:  AutoClockOutDescription,
			AutoClockOut: true,
			Acknowledged: acknowledged,
			TimeEntryID:  entry.ID,
		})
		if err != nil || !closed {
			// Another closer won, or the claim failed: the entry must not outlive it.
			discardEntry(ctx, s.entries, entry.ID)
		}
		return errors.Wrap(err, "close stale session")
	})
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, nil
	}

	sess.Open = false
	sess.ClockOutAt = &clockOutAt
	sess.AutoClockOut = true
	sess.Description = AutoClockOutDescription
	sess.TimeEntryID = &entry.ID
	s.notifier.SessionAutoClosed(ctx, sess, hours)

	return &model.AutoClosedSession{
		ID:          sess.ID,
		ClockInAt:   sess.ClockInAt,
		ClockOutAt:  clockOutAt,
		TimeEntryID: entry.ID,
		Hours:       hours,
	}, nil
}
