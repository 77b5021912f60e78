package dataset

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/KaramelBytes/finlens/internal/logger"
)

// Loader fetches and decodes a dataset once per process. Concurrent first
// calls share a single fetch; failures are not cached.
type Loader struct {
	src   Source
	dec   Decoder
	group singleflight.Group

	mu sync.RWMutex
	ds *Dataset
}

// NewLoader builds a loader whose decoder is picked from the source location.
func NewLoader(src Source) *Loader {
	return &Loader{src: src, dec: DecoderFor(src.Location())}
}

// NewLoaderWithDecoder pins the decoder regardless of the location's extension.
func NewLoaderWithDecoder(src Source, dec Decoder) *Loader {
	return &Loader{src: src, dec: dec}
}

// Location returns the configured source location.
func (l *Loader) Location() string { return l.src.Location() }

// Cached returns the loaded dataset, or nil before the first successful Load.
func (l *Loader) Cached() *Dataset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ds
}

// Load returns the cached dataset, fetching it on first use.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	if ds := l.Cached(); ds != nil {
		return ds, nil
	}
	v, err, _ := l.group.Do("load", func() (any, error) {
		if ds := l.Cached(); ds != nil {
			return ds, nil
		}
		ds, err := l.fetch(ctx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.ds = ds
		l.mu.Unlock()
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dataset), nil
}

func (l *Loader) fetch(ctx context.Context) (*Dataset, error) {
	loc := l.src.Location()
	log := logger.WithComponent("dataset").WithFields(logger.Fields{"source": loc})
	start := time.Now()

	rc, err := l.src.Open(ctx)
	if err != nil {
		log.WithError(err).Warn("dataset source unreachable")
		return nil, &UnavailableError{Source: loc, Err: err}
	}
	defer rc.Close()

	records, err := l.dec.Decode(rc)
	if err != nil {
		log.WithError(err).Warn("dataset payload rejected")
		return nil, &UnavailableError{Source: loc, Err: err}
	}
	if len(records) == 0 {
		return nil, unavailable(loc, "no records")
	}
	ds := New(loc, records)
	log.WithFields(logger.Fields{
		"records":     ds.Len(),
		"snapshot_id": ds.ID(),
		"elapsed_ms":  time.Since(start).Milliseconds(),
	}).Info("dataset loaded")
	return ds, nil
}
