package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Noro2001/Valac/pkg/models"
)

const directRetries = 3

// Direct is the plain fetch path used when bypass mode is off: no
// identity rotation, no response cache, just an optional fixed
// requests-per-second pacer and a short fixed-backoff retry policy for
// 429 and 5xx responses.
type Direct struct {
	client  Doer
	hostURL string
	timeout time.Duration
	delay   time.Duration
	pacer   *rate.Limiter
	log     *logrus.Entry

	sleep func(context.Context, time.Duration) error
}

// NewDirect builds the direct fetch path. rps <= 0 disables pacing;
// delay adds a fixed pause before every request.
func NewDirect(client Doer, hostURL string, timeout, delay time.Duration, rps float64, log *logrus.Entry) *Direct {
	d := &Direct{
		client:  client,
		hostURL: hostURL,
		timeout: timeout,
		delay:   delay,
		log:     log,
		sleep:   sleepContext,
	}
	if rps > 0 {
		d.pacer = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return d
}

// Resolve performs one paced GET for target, retrying up to three times
// on 429 and server errors with a fixed half-second backoff factor.
func (d *Direct) Resolve(ctx context.Context, target string) (Resolution, error) {
	var lastErr error

	for attempt := 0; attempt < directRetries; attempt++ {
		if d.pacer != nil {
			if err := d.pacer.Wait(ctx); err != nil {
				return Resolution{}, err
			}
		}
		if err := d.sleep(ctx, d.delay); err != nil {
			return Resolution{}, err
		}

		status, body, err := d.get(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return Resolution{}, ctx.Err()
			}
			lastErr = err
			if attempt < directRetries-1 {
				if err := d.sleep(ctx, backoffDelay(attempt)); err != nil {
					return Resolution{}, err
				}
			}
			continue
		}

		switch {
		case status == http.StatusOK:
			var rec models.HostRecord
			if err := json.Unmarshal(body, &rec); err != nil {
				return Resolution{}, fmt.Errorf("decoding payload for %s: %w", target, err)
			}
			return Resolution{Record: rec}, nil

		case status == http.StatusNotFound:
			return Resolution{}, ErrNotFound

		case status == http.StatusTooManyRequests || status >= 500:
			d.log.Debugf("HTTP %d for %s (attempt %d)", status, target, attempt+1)
			lastErr = fmt.Errorf("http %d", status)
			if attempt < directRetries-1 {
				if err := d.sleep(ctx, backoffDelay(attempt)); err != nil {
					return Resolution{}, err
				}
			}

		default:
			return Resolution{}, fmt.Errorf("%w: http %d for %s", ErrFailed, status, target)
		}
	}

	return Resolution{}, fmt.Errorf("%w: %v", ErrFailed, lastErr)
}

// backoffDelay mirrors the usual 0.5 * 2^attempt retry schedule.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<attempt) * 500 * time.Millisecond
}

func (d *Direct) get(ctx context.Context, target string) (int, []byte, error) {
	reqCtx := ctx
	var cancel context.CancelFunc
	if d.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, fmt.Sprintf("%s/%s", d.hostURL, target), nil)
	if err != nil {
		return 0, nil, err
	}

	resp, err := d.client.Do(req)
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
