package store

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"web/gridcluster/cluster"
)

// Loader fetches the points of an extent from a Store in the background and
// hands them to deliver, which is expected to call Source.SetPoints. Only the
// newest request is delivered; older in-flight requests are cancelled.
type Loader struct {
	store       *Store
	dataset     string
	deliver     func([]cluster.Point)
	deliverLock sync.Locker
	log         *logrus.Entry

	timeout    time.Duration
	maxRetries uint64

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

type LoaderOption func(*Loader)

// WithTimeout bounds each fetch including retries. Default 30s.
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) { l.timeout = d }
}

// WithMaxRetries sets how often a failed query is retried. Default 3.
func WithMaxRetries(n uint64) LoaderOption {
	return func(l *Loader) { l.maxRetries = n }
}

// WithDeliverLock makes the loader hold lock while it checks a fetch is still
// the newest request and delivers it. Pass the lock that guards the Source so
// a Load issued from RequestView cannot slip in between the check and the
// delivery.
func WithDeliverLock(lock sync.Locker) LoaderOption {
	return func(l *Loader) { l.deliverLock = lock }
}

func WithLogger(log *logrus.Entry) LoaderOption {
	return func(l *Loader) { l.log = log }
}

func NewLoader(s *Store, dataset string, deliver func([]cluster.Point), opts ...LoaderOption) *Loader {
	l := &Loader{
		store:      s,
		dataset:    dataset,
		deliver:    deliver,
		log:        logrus.NewEntry(logrus.StandardLogger()),
		timeout:    30 * time.Second,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.WithField("dataset", dataset)
	return l
}

// Load implements cluster.Loader.
func (l *Loader) Load(extent cluster.Extent, resolution float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}

	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	l.cancel = cancel
	l.seq++
	seq := l.seq

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer cancel()

		start := time.Now()
		points, err := l.fetch(ctx, extent)
		if err != nil {
			l.log.WithError(err).WithField("extent", extent).Error("failed to load points")
			return
		}

		if l.deliverLock != nil {
			l.deliverLock.Lock()
			defer l.deliverLock.Unlock()
		}
		if !l.current(seq) {
			return
		}

		l.log.WithFields(logrus.Fields{
			"points":   len(points),
			"duration": time.Since(start),
		}).Debug("loaded points")
		l.deliver(points)
	}()
	return true
}

func (l *Loader) current(seq uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return seq == l.seq && !l.closed
}

func (l *Loader) fetch(ctx context.Context, extent cluster.Extent) ([]cluster.Point, error) {
	var points []cluster.Point
	op := func() error {
		var err error
		points, err = l.store.Within(ctx, l.dataset, extent)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), l.maxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		l.log.WithError(err).WithField("wait", wait).Warn("retrying point query")
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return points, nil
}

// Close cancels pending fetches and waits for them to finish. Load returns
// false afterwards.
func (l *Loader) Close() {
	l.mu.Lock()
	l.closed = true
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Unlock()
	l.wg.Wait()
}

// Wait blocks until every fetch started so far has finished.
func (l *Loader) Wait() {
	l.wg.Wait()
}
