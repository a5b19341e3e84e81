package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Noro2001/Valac/internal/cache"
	"github.com/Noro2001/Valac/internal/identity"
	"github.com/Noro2001/Valac/internal/ratelimit"
	"github.com/Noro2001/Valac/pkg/models"
)

// Doer is the one HTTP primitive this package needs.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Resolver resolves one target into its host record.
type Resolver interface {
	Resolve(ctx context.Context, target string) (Resolution, error)
}

// Resolution is a successfully resolved target plus its provenance.
type Resolution struct {
	Record models.HostRecord
	Cached bool
}

// Options configures the orchestrated fetch path.
type Options struct {
	HostURL  string
	Retries  int
	MinDelay time.Duration
	MaxDelay time.Duration
	Timeout  time.Duration
}

// Orchestrator composes the identity pool, rate limiter, and response
// cache into a single resolve-one-target operation with bounded retries
// and exponential backoff.
type Orchestrator struct {
	client  Doer
	ids     *identity.Pool
	limiter *ratelimit.Limiter
	cache   *cache.Cache
	opts    Options
	log     *logrus.Entry

	sleep  func(context.Context, time.Duration) error
	jitter func(max time.Duration) time.Duration
}

// NewOrchestrator wires the bypass fetch path together.
func NewOrchestrator(client Doer, ids *identity.Pool, limiter *ratelimit.Limiter, store *cache.Cache, opts Options, log *logrus.Entry) *Orchestrator {
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	return &Orchestrator{
		client:  client,
		ids:     ids,
		limiter: limiter,
		cache:   store,
		opts:    opts,
		log:     log,
		sleep:   sleepContext,
		jitter: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(max)))
		},
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Resolve serves target from cache when possible, otherwise performs up
// to Retries live attempts. A cache hit does not consume a rate-limiter
// slot. 404 is terminal (ErrNotFound); 429 records a rejection and backs
// off exponentially; any other failure retries on a shorter schedule
// until the budget runs out (ErrFailed).
func (o *Orchestrator) Resolve(ctx context.Context, target string) (Resolution, error) {
	if raw, ok := o.cache.Get(target); ok {
		var rec models.HostRecord
		if err := json.Unmarshal(raw, &rec); err == nil {
			return Resolution{Record: rec, Cached: true}, nil
		}
		o.log.Debugf("Discarding undecodable cache entry for %s", target)
	}

	for attempt := 0; attempt < o.opts.Retries; attempt++ {
		if err := o.limiter.Acquire(ctx); err != nil {
			return Resolution{}, err
		}

		id := o.ids.Next()

		// Human-like pacing before each live request.
		delay := o.opts.MinDelay + o.jitter(o.opts.MaxDelay-o.opts.MinDelay)
		if err := o.sleep(ctx, delay); err != nil {
			return Resolution{}, err
		}

		status, body, err := o.get(ctx, target, id)
		if err != nil {
			if ctx.Err() != nil {
				return Resolution{}, ctx.Err()
			}
			o.log.Debugf("Transport error for %s (attempt %d): %v", target, attempt+1, err)
			if attempt < o.opts.Retries-1 {
				if err := o.sleep(ctx, time.Duration(1<<attempt)*time.Second); err != nil {
					return Resolution{}, err
				}
			}
			continue
		}

		switch status {
		case http.StatusOK:
			var rec models.HostRecord
			if err := json.Unmarshal(body, &rec); err != nil {
				o.log.Debugf("Undecodable payload for %s: %v", target, err)
				if attempt < o.opts.Retries-1 {
					if err := o.sleep(ctx, time.Duration(1<<attempt)*2*time.Second); err != nil {
						return Resolution{}, err
					}
				}
				continue
			}
			o.cache.Put(target, body)
			o.limiter.RecordSuccess()
			return Resolution{Record: rec}, nil

		case http.StatusNotFound:
			return Resolution{}, ErrNotFound

		case http.StatusTooManyRequests:
			o.limiter.RecordRejection()
			backoff := time.Duration(1<<attempt)*5*time.Second + o.jitter(5*time.Second)
			o.log.Debugf("Rate limited on %s, backing off %s", target, backoff)
			if err := o.sleep(ctx, backoff); err != nil {
				return Resolution{}, err
			}

		default:
			o.log.Debugf("HTTP %d for %s (attempt %d)", status, target, attempt+1)
			if attempt < o.opts.Retries-1 {
				if err := o.sleep(ctx, time.Duration(1<<attempt)*2*time.Second); err != nil {
					return Resolution{}, err
				}
			}
		}
	}

	return Resolution{}, ErrFailed
}

func (o *Orchestrator) get(ctx context.Context, target string, id identity.Identity) (int, []byte, error) {
	reqCtx := ctx
	var cancel context.CancelFunc
	if o.opts.Timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, fmt.Sprintf("%s/%s", o.opts.HostURL, target), nil)
	if err != nil {
		return 0, nil, err
	}
	id.Apply(req)

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}
