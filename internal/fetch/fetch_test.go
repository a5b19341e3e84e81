package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noro2001/Valac/internal/cache"
	"github.com/Noro2001/Valac/internal/identity"
	"github.com/Noro2001/Valac/internal/ratelimit"
)

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log.WithField("component", "fetch")
}

// scriptedDoer replays a fixed sequence of responses.
type scriptedDoer struct {
	t         *testing.T
	responses []scriptedResponse
	calls     int
}

type scriptedResponse struct {
	status int
	body   string
	err    error
}

func (d *scriptedDoer) Do(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	require.Less(d.t, d.calls, len(d.responses), "unexpected extra request")
	r := d.responses[d.calls]
	d.calls++

	if r.err != nil {
		return nil, r.err
	}
	return &http.Response{
		StatusCode: r.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(r.body))),
	}, nil
}

func newTestOrchestrator(t *testing.T, doer Doer) (*Orchestrator, *[]time.Duration) {
	o := NewOrchestrator(
		doer,
		identity.NewPool(2),
		ratelimit.New(0),
		cache.New("", time.Hour, testLog()),
		Options{HostURL: "http://db.test", Retries: 3},
		testLog(),
	)

	var slept []time.Duration
	o.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	o.jitter = func(time.Duration) time.Duration { return 0 }
	return o, &slept
}

func TestResolveSuccessCachesResponse(t *testing.T) {
	doer := &scriptedDoer{t: t, responses: []scriptedResponse{
		{status: 200, body: `{"ports":[22,80],"vulns":["CVE-2023-1234"]}`},
	}}
	o, _ := newTestOrchestrator(t, doer)

	res, err := o.Resolve(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, []int{22, 80}, res.Record.Ports)

	// Second resolve is served from cache without a request.
	res, err = o.Resolve(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, 1, doer.calls)
}

func TestCacheHitConsumesNoLimiterSlot(t *testing.T) {
	store := cache.New("", time.Hour, testLog())
	payload, _ := json.Marshal(map[string]any{"ports": []int{443}})
	store.Put("1.2.3.4", payload)

	limiter := ratelimit.New(1)
	o := NewOrchestrator(
		&scriptedDoer{t: t},
		identity.NewPool(1),
		limiter,
		store,
		Options{HostURL: "http://db.test"},
		testLog(),
	)
	o.sleep = func(context.Context, time.Duration) error { return nil }
	o.jitter = func(time.Duration) time.Duration { return 0 }

	// With a ceiling of one, many cached resolves must all pass without
	// ever touching the window.
	for i := 0; i < 10; i++ {
		res, err := o.Resolve(context.Background(), "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Cached)
	}
}

func TestResolveNotFoundIsTerminal(t *testing.T) {
	doer := &scriptedDoer{t: t, responses: []scriptedResponse{
		{status: 404, body: `{"detail":"No information available"}`},
	}}
	o, _ := newTestOrchestrator(t, doer)

	_, err := o.Resolve(context.Background(), "10.0.0.1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, doer.calls)
}

func TestResolveRateLimitedBacksOffAndRecovers(t *testing.T) {
	doer := &scriptedDoer{t: t, responses: []scriptedResponse{
		{status: 429},
		{status: 429},
		{status: 200, body: `{"ports":[80]}`},
	}}
	o, slept := newTestOrchestrator(t, doer)

	res, err := o.Resolve(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, []int{80}, res.Record.Ports)
	assert.Equal(t, 3, doer.calls)

	// Backoffs grow: 5s after the first rejection, 10s after the second.
	assert.Contains(t, *slept, 5*time.Second)
	assert.Contains(t, *slept, 10*time.Second)
}

func TestResolveExhaustedBudgetFails(t *testing.T) {
	doer := &scriptedDoer{t: t, responses: []scriptedResponse{
		{status: 500},
		{status: 502},
		{status: 503},
	}}
	o, _ := newTestOrchestrator(t, doer)

	_, err := o.Resolve(context.Background(), "1.2.3.4")
	assert.ErrorIs(t, err, ErrFailed)
	assert.Equal(t, 3, doer.calls)
}

func TestResolveTransportErrorsRetry(t *testing.T) {
	doer := &scriptedDoer{t: t, responses: []scriptedResponse{
		{err: errors.New("connection reset")},
		{status: 200, body: `{"ports":[]}`},
	}}
	o, _ := newTestOrchestrator(t, doer)

	_, err := o.Resolve(context.Background(), "1.2.3.4")
	assert.NoError(t, err)
	assert.Equal(t, 2, doer.calls)
}

func TestResolveStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doer := &scriptedDoer{t: t}
	o, _ := newTestOrchestrator(t, doer)
	o.sleep = sleepContext

	_, err := o.Resolve(ctx, "1.2.3.4")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, doer.calls)
}

func TestDirectRetriesServerErrors(t *testing.T) {
	doer := &scriptedDoer{t: t, responses: []scriptedResponse{
		{status: 503},
		{status: 200, body: `{"ports":[8080]}`},
	}}

	d := NewDirect(doer, "http://db.test", 0, 0, 0, testLog())
	d.sleep = func(context.Context, time.Duration) error { return nil }

	res, err := d.Resolve(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, []int{8080}, res.Record.Ports)
}

func TestDirectNotFound(t *testing.T) {
	doer := &scriptedDoer{t: t, responses: []scriptedResponse{{status: 404}}}

	d := NewDirect(doer, "http://db.test", 0, 0, 0, testLog())

	_, err := d.Resolve(context.Background(), "10.0.0.1")
	assert.ErrorIs(t, err, ErrNotFound)
}
