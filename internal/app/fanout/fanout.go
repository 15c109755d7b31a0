// Package fanout pushes one frame to many connections without letting a slow
// connection hold up the rest.
package fanout

import (
	"context"
	"linkup/internal/core/contracts"
	"time"
)

// Failure is a push that returned an error or did not finish in time.
type Failure struct {
	Client contracts.Client
	Err    error
}

type result struct {
	client contracts.Client
	err    error
}

// Push sends data to every client concurrently, each push bounded by timeout.
// It returns once all pushes finished or the timeout elapsed; pushes still
// running at that point are reported as failures with the context error.
func Push(ctx context.Context, clients []contracts.Client, data []byte, timeout time.Duration) []Failure {
	if len(clients) == 0 {
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make(chan result, len(clients))
	for _, c := range clients {
		go func(c contracts.Client) {
			results <- result{client: c, err: c.Send(pctx, data)}
		}(c)
	}

	pending := make(map[contracts.Client]struct{}, len(clients))
	for _, c := range clients {
		pending[c] = struct{}{}
	}
	var failures []Failure
	collect := func(res result) {
		delete(pending, res.client)
		if res.err != nil {
			failures = append(failures, Failure{Client: res.client, Err: res.err})
		}
	}
	for len(pending) > 0 {
		select {
		case res := <-results:
			collect(res)
		case <-pctx.Done():
			// A Send that ignores its context must not stall the caller.
			for drained := false; !drained; {
				select {
				case res := <-results:
					collect(res)
				default:
					drained = true
				}
			}
			for c := range pending {
				failures = append(failures, Failure{Client: c, Err: pctx.Err()})
			}
			return failures
		}
	}
	return failures
}

// Evict closes and deregisters every failed client. It reports whether any
// user lost its last connection as a result.
func Evict(registry contracts.Registry, failures []Failure) bool {
	wentOffline := false
	for _, f := range failures {
		f.Client.Close()
		if registry.Unregister(f.Client) {
			wentOffline = true
		}
	}
	return wentOffline
}
