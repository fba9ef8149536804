package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/resinkit/resinkit-go/core"
)

func TestNewFetchOptions_Defaults(t *testing.T) {
	r := require.New(t)

	opts, err := core.NewFetchOptions()
	r.NoError(err)

	r.Equal(core.DefaultFetchOptions(), opts)
	r.Equal(100*time.Millisecond, opts.PollInterval)
	r.Equal(500, opts.RowLimit)
	r.True(opts.HasLimit)
	r.Equal(core.RowKindsInsertOnly, opts.RowKinds)
}

func TestNewFetchOptions_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		opt  core.FetchOption
	}{
		{"negative poll interval", core.WithPollInterval(-time.Second)},
		{"negative max poll", core.WithMaxPoll(-time.Second)},
		{"negative row limit", core.WithRowLimit(-1)},
		{"negative retries", core.WithMaxNotReadyRetries(-1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := core.NewFetchOptions(tc.opt)
			require.ErrorIs(t, err, core.ErrInvalidFetchOptions)
		})
	}
}

func TestFetchOptionsFromSeconds(t *testing.T) {
	r := require.New(t)

	poll, maxPoll, limit := 0.25, 3.0, 10
	opts, err := core.FetchOptionsFromSeconds(&poll, &maxPoll, &limit)
	r.NoError(err)

	r.Equal(250*time.Millisecond, opts.PollInterval)
	r.Equal(3*time.Second, opts.MaxPoll)
	r.True(opts.HasMaxPoll)
	r.Equal(10, opts.RowLimit)

	negative := -0.1
	_, err = core.FetchOptionsFromSeconds(&negative, nil, nil)
	r.ErrorIs(err, core.ErrInvalidFetchOptions)

	opts, err = core.FetchOptionsFromSeconds(nil, nil, nil, core.WithoutRowLimit())
	r.NoError(err)
	r.False(opts.HasLimit)
	r.Equal(core.DefaultMaxPoll, opts.MaxPoll)
}

func TestRowKindPolicyFromString(t *testing.T) {
	r := require.New(t)

	for _, p := range []core.RowKindPolicy{core.RowKindsInsertOnly, core.RowKindsKeepAll, core.RowKindsStrict} {
		actual, err := core.RowKindPolicyFromString(p.String())
		r.NoError(err)
		r.Equal(p, actual)
	}

	_, err := core.RowKindPolicyFromString("sometimes")
	r.ErrorIs(err, core.ErrInvalidFetchOptions)
}
