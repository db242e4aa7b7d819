package daq

import (
	"errors"
	"time"
)

// ErrIdleTimeout is returned by WaitForIdle if ctx is done before the
// instrument reports an idle status.
var ErrIdleTimeout = errors.New("daq: timed out waiting for instrument to report idle")

// idlePollInterval is the fixed polling interval spec.md §4.7/§5 gives
// for WaitForIdle.
const idlePollInterval = 10 * time.Millisecond
