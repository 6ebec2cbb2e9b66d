// Package loader implements the hot-reload loop that polls the
// configuration file, detects changes, and publishes a new tenant
// registry and desired listen port (spec.md §4.D).
package loader

import (
	"bytes"
	"context"
	"os"
	"time"

	"github.com/oauthmw/redirect-gateway/config"
	"github.com/oauthmw/redirect-gateway/internal/log"
)

// Metrics is the subset of internal/telemetry this package depends on.
// Kept as a narrow interface so loader never imports the telemetry
// package's Prometheus wiring directly.
type Metrics interface {
	ObserveConfigReload(result string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveConfigReload(string) {}

// Loader polls Path at a dynamically-adjustable period and, on every
// successful decode of changed content, invokes OnReload with the new
// Document. It never removes a working registry because of a transient
// read failure (spec.md §4.D).
type Loader struct {
	Path     string
	Logger   log.Logger
	Metrics  Metrics
	OnReload func(config.Document)

	// OnUnchanged fires when a tick reads the file successfully and finds
	// it byte-identical to the last successfully decoded content — i.e.
	// the previously confirmed-good state still holds. A read-only file
	// that never changes is not the error state spec.md §4.D describes,
	// so health reporting (internal/telemetry.ConfigHealth) treats this
	// the same as a fresh successful reload; it must NOT fire on a read
	// whose decode then fails, since that tick has not reconfirmed
	// anything good.
	OnUnchanged func()

	lastContents []byte
	haveRead     bool
	readFailing  bool
	period       time.Duration
}

// New constructs a Loader. bootstrapPeriod is used for the very first
// read, before any configuration has been decoded to learn the real
// configSamplePeriod.
func New(path string, bootstrapPeriod time.Duration, logger log.Logger, metrics Metrics, onReload func(config.Document)) *Loader {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Loader{
		Path:     path,
		Logger:   logger,
		Metrics:  metrics,
		OnReload: onReload,
		period:   bootstrapPeriod,
	}
}

// Run loads the configuration once immediately, then polls on a
// self-rescheduling timer (never a ticker — a ticker can queue up
// ticks behind a slow read, which would violate the "one read at a
// time" contract in spec.md §5). Run blocks until ctx is canceled.
func (l *Loader) Run(ctx context.Context) error {
	l.tick()

	for {
		if l.period <= 0 {
			<-ctx.Done()
			return ctx.Err()
		}

		timer := time.NewTimer(l.period)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			l.tick()
		}
	}
}

func (l *Loader) tick() {
	contents, err := os.ReadFile(l.Path)
	if err != nil {
		if !l.readFailing {
			l.Logger.Errorf("failed to read configuration file %s: %v", l.Path, err)
			l.readFailing = true
		}
		l.Metrics.ObserveConfigReload("read_error")
		return
	}
	l.readFailing = false

	if l.haveRead && bytes.Equal(contents, l.lastContents) {
		l.Metrics.ObserveConfigReload("unchanged")
		if l.OnUnchanged != nil {
			l.OnUnchanged()
		}
		return
	}

	doc, err := config.Parse(contents)
	if err != nil {
		l.Logger.Errorf("failed to decode configuration file %s: %v", l.Path, err)
		l.Metrics.ObserveConfigReload("decode_error")
		return
	}

	l.lastContents = contents
	l.haveRead = true

	if doc.Local.ConfigSamplePeriod > 0 {
		l.period = time.Duration(doc.Local.ConfigSamplePeriod) * time.Second
	} else {
		l.period = 0
	}

	l.Metrics.ObserveConfigReload("ok")
	l.OnReload(doc)
}
