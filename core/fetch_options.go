package core

import (
	"fmt"
	"time"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultMaxPoll      = 10 * time.Second
	DefaultRowLimit     = 500

	// DefaultNotReadyCeiling caps NOT_READY retries when no wall-clock budget is set.
	DefaultNotReadyCeiling = 3000
)

// RowKindPolicy decides what happens to rows that aren't tagged INSERT.
type RowKindPolicy int

const (
	// RowKindsInsertOnly drops non-insert rows, counts them and logs a warning.
	RowKindsInsertOnly RowKindPolicy = iota
	// RowKindsKeepAll keeps every row and records its kind.
	RowKindsKeepAll
	// RowKindsStrict fails the fetch on the first non-insert row.
	RowKindsStrict
)

func (p RowKindPolicy) String() string {
	switch p {
	case RowKindsInsertOnly:
		return "insert_only"
	case RowKindsKeepAll:
		return "keep_all"
	case RowKindsStrict:
		return "strict"
	default:
		return "insert_only"
	}
}

func RowKindPolicyFromString(s string) (RowKindPolicy, error) {
	switch s {
	case "", RowKindsInsertOnly.String():
		return RowKindsInsertOnly, nil
	case RowKindsKeepAll.String():
		return RowKindsKeepAll, nil
	case RowKindsStrict.String():
		return RowKindsStrict, nil
	default:
		return RowKindsInsertOnly, fmt.Errorf("%w: unknown row kind policy %q", ErrInvalidFetchOptions, s)
	}
}

// FetchOptions is the termination and retry policy of a single fetch.
// Use NewFetchOptions to build a validated value.
type FetchOptions struct {
	PollInterval time.Duration
	// MaxPoll of zero with HasMaxPoll set stops after the first accepted page
	MaxPoll    time.Duration
	HasMaxPoll bool
	RowLimit   int
	HasLimit   bool
	// MaxNotReadyRetries of zero means "pick a default"
	MaxNotReadyRetries int
	RowKinds           RowKindPolicy
}

type FetchOption func(*FetchOptions)

func WithPollInterval(d time.Duration) FetchOption {
	return func(o *FetchOptions) {
		o.PollInterval = d
	}
}

func WithMaxPoll(d time.Duration) FetchOption {
	return func(o *FetchOptions) {
		o.MaxPoll = d
		o.HasMaxPoll = true
	}
}

func WithoutMaxPoll() FetchOption {
	return func(o *FetchOptions) {
		o.MaxPoll = 0
		o.HasMaxPoll = false
	}
}

func WithRowLimit(n int) FetchOption {
	return func(o *FetchOptions) {
		o.RowLimit = n
		o.HasLimit = true
	}
}

func WithoutRowLimit() FetchOption {
	return func(o *FetchOptions) {
		o.RowLimit = 0
		o.HasLimit = false
	}
}

func WithMaxNotReadyRetries(n int) FetchOption {
	return func(o *FetchOptions) {
		o.MaxNotReadyRetries = n
	}
}

func WithRowKindPolicy(p RowKindPolicy) FetchOption {
	return func(o *FetchOptions) {
		o.RowKinds = p
	}
}

// DefaultFetchOptions returns the defaults: 100ms poll interval, 10s poll
// budget and a 500 row limit.
func DefaultFetchOptions() *FetchOptions {
	return &FetchOptions{
		PollInterval: DefaultPollInterval,
		MaxPoll:      DefaultMaxPoll,
		HasMaxPoll:   true,
		RowLimit:     DefaultRowLimit,
		HasLimit:     true,
		RowKinds:     RowKindsInsertOnly,
	}
}

// NewFetchOptions applies opts over the defaults and validates the result.
func NewFetchOptions(opts ...FetchOption) (*FetchOptions, error) {
	o := DefaultFetchOptions()
	for _, opt := range opts {
		opt(o)
	}

	if err := o.validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// FetchOptionsFromSeconds builds options from float seconds. Nil pointers keep
// the defaults, extra opts are applied last.
func FetchOptionsFromSeconds(pollInterval, maxPoll *float64, rowLimit *int, opts ...FetchOption) (*FetchOptions, error) {
	var all []FetchOption

	if pollInterval != nil {
		if *pollInterval < 0 {
			return nil, fmt.Errorf("%w: poll interval must be non-negative, got %v", ErrInvalidFetchOptions, *pollInterval)
		}
		all = append(all, WithPollInterval(secondsToDuration(*pollInterval)))
	}
	if maxPoll != nil {
		if *maxPoll < 0 {
			return nil, fmt.Errorf("%w: max poll must be non-negative, got %v", ErrInvalidFetchOptions, *maxPoll)
		}
		all = append(all, WithMaxPoll(secondsToDuration(*maxPoll)))
	}
	if rowLimit != nil {
		all = append(all, WithRowLimit(*rowLimit))
	}

	return NewFetchOptions(append(all, opts...)...)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (o *FetchOptions) validate() error {
	if o.PollInterval < 0 {
		return fmt.Errorf("%w: poll interval must be non-negative, got %s", ErrInvalidFetchOptions, o.PollInterval)
	}
	if o.HasMaxPoll && o.MaxPoll < 0 {
		return fmt.Errorf("%w: max poll must be non-negative, got %s", ErrInvalidFetchOptions, o.MaxPoll)
	}
	if o.HasLimit && o.RowLimit < 0 {
		return fmt.Errorf("%w: row limit must be non-negative, got %d", ErrInvalidFetchOptions, o.RowLimit)
	}
	if o.MaxNotReadyRetries < 0 {
		return fmt.Errorf("%w: not ready retries must be non-negative, got %d", ErrInvalidFetchOptions, o.MaxNotReadyRetries)
	}
	return nil
}

// notReadyCeiling returns the retry cap for NOT_READY pages, 0 means unbounded.
func (o *FetchOptions) notReadyCeiling() int {
	if o.MaxNotReadyRetries > 0 {
		return o.MaxNotReadyRetries
	}
	if o.HasMaxPoll {
		return 0
	}
	return DefaultNotReadyCeiling
}
