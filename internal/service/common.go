package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"

	"timeledger/internal/apperr"
	"timeledger/internal/auth"
)

var (
	// DefaultLeaveHours applies when a leave request or holiday omits its hours.
	DefaultLeaveHours = decimal.NewFromInt(8)
	hundred           = decimal.NewFromInt(100)
)

func requireAdmin(c auth.Caller) error {
	if !c.IsAdmin() {
		return apperr.Forbidden("auth.err.admin_required")
	}
	return nil
}

// ParseID parses a hex object id, reporting malformed ids as not found.
func ParseID(hex, notFoundKey string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return bson.ObjectID{}, apperr.NotFound(notFoundKey)
	}
	return id, nil
}

func validDate(date string) bool {
	_, err := time.Parse(time.DateOnly, date)
	return err == nil
}

// normalizeHours rounds to the stored precision and requires a positive value.
func normalizeHours(h decimal.Decimal) (decimal.Decimal, error) {
	h = h.Round(2)
	if !h.IsPositive() {
		return decimal.Zero, apperr.Validation("entry.err.hours_positive")
	}
	return h, nil
}

func localDate(t time.Time) string {
	return t.Local().Format(time.DateOnly)
}

// missingID reports whether a client-supplied reference is absent. JSON "" decodes to
// the zero ObjectID, which never names a document.
func missingID(id *bson.ObjectID) bool {
	return id == nil || id.IsZero()
}

// discardEntry removes an entry written ahead of a claim that did not go through.
func discardEntry(ctx context.Context, entries EntryStore, id bson.ObjectID) {
	if _, err := entries.DeleteEntry(ctx, id); err != nil {
		log.WithError(err).WithField("entry_id", id.Hex()).Warn("discard unclaimed entry")
	}
}
