package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskSubmission_StateMachine(t *testing.T) {
	at := time.Now().UTC()
	in := SubmissionInput{ChildID: "kid", TaskTemplateID: "dishes", Stars: 3}

	approved := NewTaskSubmission(in, at)
	require.True(t, approved.Pending())
	require.NoError(t, approved.MarkApproved(at))
	assert.Equal(t, SubmissionApproved, approved.Status)
	require.NotNil(t, approved.ReviewedAt)
	assert.ErrorIs(t, approved.MarkApproved(at), ErrSubmissionNotPending)
	assert.ErrorIs(t, approved.MarkRejected("late", at), ErrSubmissionNotPending)

	rejected := NewTaskSubmission(in, at)
	require.NoError(t, rejected.MarkRejected("not finished", at))
	assert.Equal(t, SubmissionRejected, rejected.Status)
	assert.Equal(t, "not finished", rejected.RejectReason)
	assert.ErrorIs(t, rejected.MarkApproved(at), ErrSubmissionNotPending)
}

func TestRewardRedemption_Fulfill(t *testing.T) {
	at := time.Now().UTC()
	r := NewRewardRedemption("kid", Reward{ID: "ice-cream", Cost: 15}, at)
	assert.Equal(t, RedemptionPending, r.Status)
	assert.Equal(t, int64(15), r.StarsSpent)

	require.NoError(t, r.MarkFulfilled(at.Add(time.Hour)))
	assert.Equal(t, RedemptionFulfilled, r.Status)
	assert.ErrorIs(t, r.MarkFulfilled(at), ErrRedemptionFulfilled)
}
