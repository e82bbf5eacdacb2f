package adapters

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Rajchodisetti/market-gateway/internal/observ"
)

// ErrorKind classifies why a provider could not serve a request.
type ErrorKind string

const (
	KindConfigMissing ErrorKind = "configuration_missing"
	KindTransport     ErrorKind = "upstream_transport" // non-2xx, network, malformed JSON
	KindSemantic      ErrorKind = "upstream_semantic"  // 2xx but no data / rate limited / bad symbol
	KindEmpty         ErrorKind = "empty_result"       // well formed but nothing usable
)

// ProviderError is the only error shape that leaves an adapter.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Symbol   string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Symbol != "" {
		fmt.Fprintf(&b, " (%s)", e.Symbol)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Cause }

func NewTransportError(provider, symbol, message string, cause error) *ProviderError {
	return &ProviderError{Kind: KindTransport, Provider: provider, Symbol: symbol, Message: message, Cause: cause}
}

func NewSemanticError(provider, symbol, message string) *ProviderError {
	return &ProviderError{Kind: KindSemantic, Provider: provider, Symbol: symbol, Message: message}
}

func NewEmptyError(provider, symbol, message string) *ProviderError {
	return &ProviderError{Kind: KindEmpty, Provider: provider, Symbol: symbol, Message: message}
}

func NewConfigMissingError(provider string) *ProviderError {
	return &ProviderError{Kind: KindConfigMissing, Provider: provider, Message: "no API key configured"}
}

// KindOf reports the ErrorKind of err, or KindTransport for foreign errors.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransport
}

// Reason converts any adapter failure into the bounded string shown to clients.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	return observ.SanitizeError(err.Error())
}

// ChainError is returned when no provider in a chain or fan-out produced a result.
type ChainError struct {
	Route      string
	Reasons    map[string]string
	Attempts   []observ.ProviderAttempt
	Configured int
}

// NoneConfigured is true when every provider was skipped for a missing key.
func (e *ChainError) NoneConfigured() bool { return e.Configured == 0 }

func (e *ChainError) Error() string {
	if len(e.Reasons) == 0 {
		return "no providers available"
	}
	names := make([]string, 0, len(e.Reasons))
	for name := range e.Reasons {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Reasons[name])
	}
	prefix := "all providers failed"
	if e.NoneConfigured() {
		prefix = "no providers configured"
	}
	return prefix + ": " + strings.Join(parts, "; ")
}
