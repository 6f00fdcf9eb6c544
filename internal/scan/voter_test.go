package scan

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/Raven/internal/llmagent"
	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

func twoCandidates() []store.CandidateIssue {
	return []store.CandidateIssue{
		{ID: "c1", Title: "issue one", FilePath: "a.go"},
		{ID: "c2", Title: "issue two", FilePath: "b.go"},
	}
}

func TestVoterPool_Run_FansOutAcrossVoters(t *testing.T) {
	t.Parallel()

	var calls int64
	mock := llmagent.NewMockAgent("claude").WithRunFunc(func(ctx context.Context, opts llmagent.RunOpts) (*llmagent.RunResult, error) {
		atomic.AddInt64(&calls, 1)
		return &llmagent.RunResult{ExitCode: 0, Stdout: `{"approve": true, "reasoning": "looks real"}`}, nil
	})

	pool := NewVoterPool(mock, 3, nil)
	votes, _, err := pool.Run(context.Background(), "/repo", twoCandidates())
	require.NoError(t, err)

	assert.Len(t, votes, 6) // 3 voters * 2 candidates
	assert.EqualValues(t, 6, calls)
	for _, v := range votes {
		assert.True(t, v.Approve)
	}
}

func TestVoterPool_Run_NoCandidatesShortCircuits(t *testing.T) {
	t.Parallel()

	mock := llmagent.NewMockAgent("claude")
	pool := NewVoterPool(mock, 3, nil)

	votes, cost, err := pool.Run(context.Background(), "/repo", nil)
	require.NoError(t, err)
	assert.Nil(t, votes)
	assert.Zero(t, cost)
	assert.Empty(t, mock.Calls)
}

func TestVoterPool_Run_TransportErrorYieldsImplicitReject(t *testing.T) {
	t.Parallel()

	mock := llmagent.NewMockAgent("claude").WithRunFunc(func(ctx context.Context, opts llmagent.RunOpts) (*llmagent.RunResult, error) {
		return nil, assert.AnError
	})

	pool := NewVoterPool(mock, 1, nil)
	votes, _, err := pool.Run(context.Background(), "/repo", twoCandidates())
	require.NoError(t, err)
	require.Len(t, votes, 2)
	for _, v := range votes {
		assert.False(t, v.Approve)
		assert.NotEmpty(t, v.Reasoning)
	}
}

func TestVoterPool_Run_UnparseableOutputYieldsImplicitReject(t *testing.T) {
	t.Parallel()

	mock := llmagent.NewMockAgent("claude").WithRunFunc(func(ctx context.Context, opts llmagent.RunOpts) (*llmagent.RunResult, error) {
		return &llmagent.RunResult{ExitCode: 0, Stdout: "garbage"}, nil
	})

	pool := NewVoterPool(mock, 1, nil)
	votes, _, err := pool.Run(context.Background(), "/repo", twoCandidates())
	require.NoError(t, err)
	require.Len(t, votes, 2)
	for _, v := range votes {
		assert.False(t, v.Approve)
	}
}

func TestNewVoterPool_ClampsNonPositiveToDefault(t *testing.T) {
	t.Parallel()

	pool := NewVoterPool(llmagent.NewMockAgent("claude"), 0, nil)
	assert.Equal(t, DefaultVoters, pool.voters)
}

func TestBuildVotePrompt_IncludesLocationAndDescription(t *testing.T) {
	t.Parallel()

	c := store.CandidateIssue{
		Title:          "Leaky abstraction",
		Category:       "architecture",
		Severity:       store.SeverityMedium,
		FilePath:       "pkg/foo.go",
		LineRange:      &store.LineRange{Start: 10, End: 20},
		Description:    "desc",
		Recommendation: "rec",
	}
	prompt := buildVotePrompt(c)
	assert.True(t, strings.Contains(prompt, "pkg/foo.go:10-20"))
	assert.True(t, strings.Contains(prompt, "Leaky abstraction"))
}
