package db

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Screen is one physical display identified by its token. BoundDeviceID pins
// the screen to the first device that claimed it; a null value means the
// screen is up for grabs.
type Screen struct {
	ID            int64          `db:"id"`
	Token         string         `db:"token"`
	SchoolID      int64          `db:"school_id"`
	BoundDeviceID sql.NullString `db:"bound_device_id"`
	BoundAt       sql.NullTime   `db:"bound_at"`
	IsActive      bool           `db:"is_active"`
	LastSeenAt    sql.NullTime   `db:"last_seen_at"`
}

const screenColumns = `id, token, school_id, bound_device_id, bound_at, is_active, last_seen_at`

// ScreenByToken resolves an active screen by its token. Unknown and inactive
// tokens are indistinguishable to callers.
func (d *Database) ScreenByToken(ctx context.Context, token string) (*Screen, error) {
	var s Screen
	err := d.db.GetContext(ctx, &s,
		`SELECT `+screenColumns+` FROM display_screens WHERE token = $1 AND is_active`, token)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not query screen")
	}
	return &s, nil
}

// ClaimScreen binds a device to an unbound screen. The conditional UPDATE is
// the race arbiter: exactly one concurrent claimer sees a row updated.
// BoundAt records the first successful claim and is never refreshed.
func (d *Database) ClaimScreen(ctx context.Context, screenID int64, device string) (bool, error) {
	res, err := d.db.ExecContext(ctx,
		`UPDATE display_screens SET bound_device_id = $2, bound_at = NOW()
		 WHERE id = $1 AND bound_device_id IS NULL`, screenID, device)
	if err != nil {
		return false, errors.Wrap(err, "could not claim screen")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "could not read claim result")
	}
	return n > 0, nil
}

// UnbindScreen clears the device binding so another device may claim the
// screen. Operator recovery path.
func (d *Database) UnbindScreen(ctx context.Context, token string) (bool, error) {
	res, err := d.db.ExecContext(ctx,
		`UPDATE display_screens SET bound_device_id = NULL, bound_at = NULL WHERE token = $1`, token)
	if err != nil {
		return false, errors.Wrap(err, "could not unbind screen")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "could not read unbind result")
	}
	return n > 0, nil
}

// TouchScreen records that the screen was seen just now. Failures are the
// caller's to ignore; liveness bookkeeping never gates a response.
func (d *Database) TouchScreen(ctx context.Context, screenID int64) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE display_screens SET last_seen_at = NOW() WHERE id = $1`, screenID)
	return errors.Wrap(err, "could not touch screen")
}
