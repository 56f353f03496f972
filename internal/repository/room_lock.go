package repository

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/iliyamo/meeting-room-booking/internal/booking"
)

// MySQL rejects lock names longer than 64 characters.
const maxLockName = 64

// lockKeys returns the distinct lock names for rooms in a stable order.
func lockKeys(rooms []booking.RoomRef) []string {
	seen := make(map[string]struct{}, len(rooms))
	keys := make([]string, 0, len(rooms))
	for _, r := range rooms {
		if r.IsZero() {
			continue
		}
		k := lockName(r.LockKey())
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lockName(key string) string {
	if len(key) <= maxLockName {
		return key
	}
	sum := sha1.Sum([]byte(key))
	return "room:h:" + hex.EncodeToString(sum[:])
}

// acquireLock blocks for at most timeout waiting for the named lock.
// GET_LOCK returns 1 on success, 0 on timeout and NULL on error.
func acquireLock(ctx context.Context, conn *sql.Conn, name string, timeout time.Duration) error {
	secs := int(math.Ceil(timeout.Seconds()))
	if secs < 1 {
		secs = 1
	}
	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, `SELECT GET_LOCK(?, ?)`, name, secs).Scan(&got); err != nil {
		return fmt.Errorf("acquire %s: %w", name, err)
	}
	if !got.Valid || got.Int64 != 1 {
		return ErrLockTimeout
	}
	return nil
}
