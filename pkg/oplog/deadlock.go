package oplog

import (
	"time"

	"github.com/algorand/go-deadlock"
	log "github.com/sirupsen/logrus"

	"github.com/daviddao/merklelog/pkg/storage"
)

// Log operations hold the write lock across storage writes that have no
// timeout of their own, and go-deadlock's defaults exit the process after a
// 30s wait. Detection stays off unless the host enables it.
func init() {
	deadlock.Opts.Disable = true
}

// MinDeadlockTimeout is the shortest lock wait SetDeadlockDetection accepts.
// A single durable write may block for storage.MaxWriteWait.
var MinDeadlockTimeout = storage.MaxWriteWait() + time.Minute

// SetDeadlockDetection turns go-deadlock checking of the log and storage
// locks on or off for the whole process. When enabled, a lock waited on for
// longer than timeout (raised to MinDeadlockTimeout) is reported to logger
// at Error level and the process keeps running.
func SetDeadlockDetection(enabled bool, timeout time.Duration, logger *log.Entry) {
	deadlock.Opts.Disable = !enabled
	if !enabled {
		return
	}
	if timeout < MinDeadlockTimeout {
		timeout = MinDeadlockTimeout
	}
	if logger == nil {
		logger = log.WithField("pkg", "oplog")
	}
	deadlock.Opts.DeadlockTimeout = timeout
	deadlock.Opts.OnPotentialDeadlock = func() {
		logger.WithField("timeout", timeout).Error("potential deadlock, see lock report on stderr")
	}
}
