package adapters

import (
	"context"
	"fmt"
	"sync"

	"github.com/Rajchodisetti/market-gateway/internal/observ"
)

// AttemptRecorder is the part of observ.Recorder the runners need.
type AttemptRecorder interface {
	Begin(requestID, route, provider string) observ.CompleteFunc
	RecordSkipped(requestID, route, provider, reason string) observ.ProviderAttempt
}

// Call identifies one logical request flowing through a runner.
type Call struct {
	RequestID string
	Route     string
}

// ChainResult is the first successful provider's value plus every attempt made.
type ChainResult[T any] struct {
	Value    T
	Provider string
	Attempts []observ.ProviderAttempt
}

const skipReasonNoKey = "no API key configured"

// RunChain tries providers in order and stops at the first success. Providers
// without credentials are recorded as skipped. When every provider fails or
// is skipped the error is a *ChainError carrying all reasons and attempts.
func RunChain[P Provider, T any](ctx context.Context, rec AttemptRecorder, call Call, providers []P, fn func(context.Context, P) (T, error)) (*ChainResult[T], error) {
	chainErr := &ChainError{Route: call.Route, Reasons: map[string]string{}}
	for _, p := range providers {
		name := p.Name()
		if !p.Configured() {
			chainErr.Attempts = append(chainErr.Attempts, rec.RecordSkipped(call.RequestID, call.Route, name, skipReasonNoKey))
			chainErr.Reasons[name] = skipReasonNoKey
			continue
		}
		chainErr.Configured++
		if err := ctx.Err(); err != nil {
			chainErr.Attempts = append(chainErr.Attempts, rec.RecordSkipped(call.RequestID, call.Route, name, "request cancelled"))
			chainErr.Reasons[name] = "request cancelled"
			continue
		}

		complete := rec.Begin(call.RequestID, call.Route, name)
		value, err := fn(ctx, p)
		if err != nil {
			chainErr.Attempts = append(chainErr.Attempts, complete(observ.StatusError, err))
			chainErr.Reasons[name] = Reason(err)
			continue
		}
		chainErr.Attempts = append(chainErr.Attempts, complete(observ.StatusOK, nil))
		return &ChainResult[T]{Value: value, Provider: name, Attempts: chainErr.Attempts}, nil
	}
	return nil, chainErr
}

// FanOutResult is one provider's outcome in a concurrent call.
type FanOutResult[T any] struct {
	Provider string
	Value    T
	Err      error
}

// FanOut calls every configured provider concurrently and waits for all of
// them. Results and attempts keep the order of providers. The error is a
// *ChainError when no provider succeeded.
func FanOut[P Provider, T any](ctx context.Context, rec AttemptRecorder, call Call, providers []P, fn func(context.Context, P) (T, error)) ([]FanOutResult[T], []observ.ProviderAttempt, error) {
	results := make([]FanOutResult[T], len(providers))
	attempts := make([]observ.ProviderAttempt, len(providers))
	chainErr := &ChainError{Route: call.Route, Reasons: map[string]string{}}

	var wg sync.WaitGroup
	for i, p := range providers {
		name := p.Name()
		results[i].Provider = name
		if !p.Configured() {
			attempts[i] = rec.RecordSkipped(call.RequestID, call.Route, name, skipReasonNoKey)
			results[i].Err = NewConfigMissingError(name)
			continue
		}
		chainErr.Configured++
		wg.Add(1)
		go func(i int, p P) {
			defer wg.Done()
			complete := rec.Begin(call.RequestID, call.Route, p.Name())
			defer func() {
				if r := recover(); r != nil {
					err := NewTransportError(p.Name(), "", fmt.Sprintf("adapter panic: %v", r), nil)
					attempts[i] = complete(observ.StatusError, err)
					results[i].Err = err
				}
			}()
			value, err := fn(ctx, p)
			if err != nil {
				attempts[i] = complete(observ.StatusError, err)
				results[i].Err = err
				return
			}
			attempts[i] = complete(observ.StatusOK, nil)
			results[i].Value = value
		}(i, p)
	}
	wg.Wait()

	succeeded := false
	for i, r := range results {
		switch {
		case r.Err == nil:
			succeeded = true
		case attempts[i].Status == observ.StatusSkipped:
			chainErr.Reasons[r.Provider] = skipReasonNoKey
		default:
			chainErr.Reasons[r.Provider] = Reason(r.Err)
		}
	}
	chainErr.Attempts = attempts
	if !succeeded {
		return results, attempts, chainErr
	}
	return results, attempts, nil
}
