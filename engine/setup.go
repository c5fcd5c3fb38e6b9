package engine

import (
	"github.com/use-agent/recipescrape/config"
)

// NewFromConfig builds the standard stack: the Chrome-fingerprint engine
// starts first and the plain HTTP engine joins after the configured delay.
// The returned stop function releases the domain memory.
func NewFromConfig(cfg config.FetchConfig, opts ...DispatcherOption) (*Dispatcher, func(), error) {
	std, err := NewStdEngine(cfg.Proxy, cfg.MaxBodyBytes)
	if err != nil {
		return nil, nil, err
	}
	engines := []Engine{NewHTTPEngine(cfg.MaxBodyBytes), std}

	memory := NewDomainMemory(cfg.DomainMemoryTTL, 0)
	opts = append([]DispatcherOption{WithHostLimiter(NewHostLimiter(cfg.PerHostRPS))}, opts...)
	return NewDispatcher(engines, cfg.EscalationDelays, memory, opts...), memory.Stop, nil
}
