package storage

import (
	"math/rand"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// backoff retries writes that fail on SQLite lock contention. WAL mode with
// busy_timeout still surfaces SQLITE_LOCKED and IOERR_SHORT_READ to the
// caller when several processes share one database file.
type backoff struct {
	attempts int
	base     time.Duration
	ceiling  time.Duration
}

var contention = backoff{attempts: 4, base: 50 * time.Millisecond, ceiling: 500 * time.Millisecond}

// contentionMarkers are substrings modernc.org/sqlite puts in lock errors.
var contentionMarkers = []string{
	"SQLITE_BUSY", "(5)",
	"SQLITE_LOCKED", "(6)",
	"IOERR_SHORT_READ", "(522)",
	"database is locked",
	"database table is locked",
}

func isContention(err error) bool {
	if err == nil {
		return false
	}
	msg := errors.Cause(err).Error()
	for _, m := range contentionMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// do runs fn until it succeeds, fails with a non-contention error, or the
// attempts are used up. The last error is returned wrapped with op.
func (b backoff) do(op string, fn func() error) error {
	var err error
	for i := 0; i < b.attempts; i++ {
		if err = fn(); !isContention(err) {
			break
		}
		if i == b.attempts-1 {
			break
		}
		d := b.delay(i)
		log.WithError(err).WithFields(log.Fields{"op": op, "attempt": i + 1, "delay": d}).
			Debug("sqlite contention, retrying")
		time.Sleep(d)
	}
	return errors.Wrap(err, op)
}

// MaxWriteWait bounds how long one SQLite write may block: every attempt
// can wait out the busy timeout, plus the delays between attempts.
func MaxWriteWait() time.Duration { return contention.maxWait(SQLiteBusyTimeout) }

func (b backoff) maxWait(perAttempt time.Duration) time.Duration {
	total := time.Duration(b.attempts) * perAttempt
	for i := 0; i < b.attempts-1; i++ {
		d := b.base << uint(i)
		if d > b.ceiling || d <= 0 {
			d = b.ceiling
		}
		total += d + b.base
	}
	return total
}

// delay is base*2^i, capped at ceiling, plus up to base of jitter.
func (b backoff) delay(i int) time.Duration {
	d := b.base << uint(i)
	if d > b.ceiling || d <= 0 {
		d = b.ceiling
	}
	return d + time.Duration(rand.Int63n(int64(b.base)))
}
