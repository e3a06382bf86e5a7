package simulator

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"strconv"
	"time"

	"FinWalk/internal/domain/models"
	domrepo "FinWalk/internal/domain/repository"
	domsvc "FinWalk/internal/domain/service"
	"FinWalk/internal/service/cache"
	applogger "FinWalk/pkg/logger"
)

// Cached memoizes scores of an underlying simulator. Keys are derived from the
// segment contents, so identical segments reused across runs hit the cache.
// Cache failures are logged and fall through to the wrapped simulator.
type Cached struct {
	next      domsvc.SignalSimulator
	store     cache.BytesCache
	ttl       time.Duration
	namespace string
	l         *applogger.Logger
	metrics   domrepo.Metrics
}

type CachedOption func(*Cached)

// WithNamespace separates keys of simulators configured differently,
// e.g. with different fees.
func WithNamespace(ns string) CachedOption {
	return func(c *Cached) { c.namespace = ns }
}

func WithCacheLogger(l *applogger.Logger) CachedOption {
	return func(c *Cached) {
		if l != nil {
			c.l = l
		}
	}
}

func WithCacheMetrics(m domrepo.Metrics) CachedOption {
	return func(c *Cached) {
		if m != nil {
			c.metrics = m
		}
	}
}

func NewCached(next domsvc.SignalSimulator, store cache.BytesCache, ttl time.Duration, opts ...CachedOption) *Cached {
	c := &Cached{
		next:    next,
		store:   store,
		ttl:     ttl,
		l:       applogger.Nop(),
		metrics: domrepo.NopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cached) Simulate(ctx context.Context, segment models.Series, params models.ParameterPair, direction models.Direction, freq models.Frequency) (float64, error) {
	key := c.key(segment, params, direction, freq)

	b, ok, err := c.store.GetBytes(ctx, key)
	switch {
	case err != nil:
		c.metrics.RecordCacheLookup("error")
		c.l.Warn("score cache get failed", applogger.String("key", key), applogger.Error(err))
	case ok:
		if v, perr := strconv.ParseFloat(string(b), 64); perr == nil {
			c.metrics.RecordCacheLookup("hit")
			return v, nil
		}
		c.metrics.RecordCacheLookup("error")
	default:
		c.metrics.RecordCacheLookup("miss")
	}

	score, err := c.next.Simulate(ctx, segment, params, direction, freq)
	if err != nil {
		return 0, err
	}
	if err := c.store.SetBytes(ctx, key, []byte(strconv.FormatFloat(score, 'g', -1, 64)), c.ttl); err != nil {
		c.l.Warn("score cache set failed", applogger.String("key", key), applogger.Error(err))
	}
	return score, nil
}

func (c *Cached) key(segment models.Series, params models.ParameterPair, direction models.Direction, freq models.Frequency) string {
	var buf [8]byte
	h := sha256.New()
	h.Write([]byte(segment.Symbol()))
	for _, p := range segment.Points() {
		binary.LittleEndian.PutUint64(buf[:], uint64(p.Time.UnixNano()))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.Value))
		h.Write(buf[:])
	}
	k := "score:"
	if c.namespace != "" {
		k += c.namespace + ":"
	}
	return k + hex.EncodeToString(h.Sum(nil)) + ":" + params.String() + ":" + string(direction) + ":" + string(freq)
}

var _ domsvc.SignalSimulator = (*Cached)(nil)
