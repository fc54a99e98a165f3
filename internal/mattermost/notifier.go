package mattermost

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"timeledger/internal/i18n"
	"timeledger/internal/model"
)

const (
	colorApproved = "#2e7d32"
	colorRejected = "#c62828"
	colorWarning  = "#f9a825"

	notifyTimeout = 5 * time.Second
)

// Notifier posts workflow events to a single channel. Posts are delivered in the
// background; failures are logged and never surface to the caller.
type Notifier struct {
	client    *Client
	channelID string

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewNotifier(client *Client, channelID string) *Notifier {
	return &Notifier{client: client, channelID: channelID}
}

func (n *Notifier) LeaveReviewed(ctx context.Context, req *model.LeaveRequest) {
	status, color := i18n.T(ctx, "notify.status.approved"), colorApproved
	if req.Status == model.LeaveStatusRejected {
		status, color = i18n.T(ctx, "notify.status.rejected"), colorRejected
	}
	msg := formatLeaveMsg(ctx, i18n.T(ctx, "notify.leave.reviewed_title"), req, status)
	n.post(ctx, &Post{
		ChannelID: n.channelID,
		Message:   msg,
		Props:     Props{Attachments: reviewAttachment(ctx, req, color)},
	})
}

func (n *Notifier) LeaveGranted(ctx context.Context, req *model.LeaveRequest) {
	msg := formatLeaveMsg(ctx, i18n.T(ctx, "notify.leave.granted_title"), req, i18n.T(ctx, "notify.status.approved"))
	n.post(ctx, &Post{ChannelID: n.channelID, Message: msg})
}

func (n *Notifier) SessionAutoClosed(ctx context.Context, s *model.ClockSession, hours decimal.Decimal) {
	var clockOut string
	if s.ClockOutAt != nil {
		clockOut = s.ClockOutAt.Local().Format("2006-01-02 15:04")
	}
	n.post(ctx, &Post{
		ChannelID: n.channelID,
		Message:   i18n.T(ctx, "notify.clock.auto_closed", map[string]any{"User": s.UserID}),
		Props: Props{Attachments: []Attachment{{
			Color: colorWarning,
			Fields: []Field{
				{Title: i18n.T(ctx, "notify.field.clock_in"), Value: s.ClockInAt.Local().Format("2006-01-02 15:04"), Short: true},
				{Title: i18n.T(ctx, "notify.field.clock_out"), Value: clockOut, Short: true},
				{Title: i18n.T(ctx, "notify.field.hours"), Value: hours.String(), Short: true},
			},
		}}},
	})
}

// Close stops accepting posts and blocks until in-flight ones are delivered or have
// timed out. Events after Close are dropped.
func (n *Notifier) Close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	n.wg.Wait()
}

func (n *Notifier) post(ctx context.Context, p *Post) {
	// Detached: the triggering request usually finishes before delivery does.
	ctx = context.WithoutCancel(ctx)

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		log.WithField("channel_id", p.ChannelID).Warn("mattermost notifier closed, dropping notification")
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if _, err := n.client.CreatePost(ctx, p); err != nil {
			log.WithError(err).WithField("channel_id", p.ChannelID).Warn("mattermost notification failed")
		}
	}()
}

func formatLeaveMsg(ctx context.Context, title string, req *model.LeaveRequest, status string) string {
	reason := req.Reason
	if reason == "" {
		reason = "-"
	}
	return i18n.T(ctx, "notify.leave.table", map[string]any{
		"Title":  title,
		"User":   req.UserID,
		"Date":   req.Date,
		"Hours":  req.Hours.String(),
		"Reason": reason,
		"Status": status,
	})
}

func reviewAttachment(ctx context.Context, req *model.LeaveRequest, color string) []Attachment {
	fields := []Field{{Title: i18n.T(ctx, "notify.field.reviewed_by"), Value: req.ReviewedBy, Short: true}}
	if req.ReviewNote != "" {
		fields = append(fields, Field{Title: i18n.T(ctx, "notify.field.note"), Value: req.ReviewNote})
	}
	return []Attachment{{Color: color, Fields: fields}}
}
