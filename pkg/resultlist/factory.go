package resultlist

import (
	"fmt"

	"github.com/KevoDB/rowcursor/pkg/common/log"
	"github.com/KevoDB/rowcursor/pkg/config"
	"github.com/KevoDB/rowcursor/pkg/provider"
)

var (
	_ View[any] = (*Eager[any])(nil)
	_ View[any] = (*SimpleRandomAccess[any])(nil)
	_ View[any] = (*ForwardCaching[any])(nil)
	_ View[any] = (*RandomAccessCaching[any])(nil)
	_ View[any] = (*Windowed[any])(nil)
	_ View[any] = (*subRange[any])(nil)
)

// Resolve returns the concrete strategy used for strategy over p. Auto reads
// random access providers in place and windows sequential ones.
func Resolve[T any](strategy config.Strategy, p provider.RowProvider[T]) config.Strategy {
	if strategy != config.StrategyAuto {
		return strategy
	}
	if p != nil && p.SupportsRandomAccess() {
		return config.StrategySimple
	}
	return config.StrategyWindow
}

// New builds a view of the given strategy over p. Like every constructor in
// this package it opens p, and closes it again if building the view fails.
func New[T any](strategy config.Strategy, p provider.RowProvider[T], opts ...Option) (View[T], error) {
	var (
		view View[T]
		err  error
	)

	switch Resolve(strategy, p) {
	case config.StrategyEager:
		view, err = NewEager(p, opts...)
	case config.StrategySimple:
		view, err = NewSimpleRandomAccess(p, opts...)
	case config.StrategyForward:
		view, err = NewForwardCaching(p, opts...)
	case config.StrategyRandom:
		view, err = NewRandomAccessCaching(p, opts...)
	case config.StrategyWindow:
		view, err = NewWindowed(p, opts...)
	default:
		if p != nil {
			_ = p.Close()
		}
		return nil, fmt.Errorf("%w: unknown strategy %q", config.ErrInvalidConfig, strategy)
	}

	if err != nil {
		return nil, err
	}
	return view, nil
}

// NewFromConfig builds the view described by cfg. Options given explicitly
// override the configured ones.
func NewFromConfig[T any](cfg *config.Config, p provider.RowProvider[T], opts ...Option) (View[T], error) {
	if err := cfg.Validate(); err != nil {
		if p != nil {
			_ = p.Close()
		}
		return nil, err
	}

	strategy, windowSize, capacity := cfg.Snapshot()
	strategy = Resolve(strategy, p)
	configured := []Option{
		WithWindowSize(windowSize),
		WithCacheCapacity(capacity),
	}

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger := log.WithFields(map[string]interface{}{
			"component": "resultlist",
			"strategy":  string(strategy),
		})
		logger.SetLevel(level)
		configured = append(configured, WithLogger(logger))
	}

	return New(strategy, p, append(configured, opts...)...)
}
