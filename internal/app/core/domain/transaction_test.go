package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransaction_CausalRef(t *testing.T) {
	at := time.Now().UTC()

	earn := NewTransaction("kid", TransactionTypeEarn, 5, "dishes", TaskRef("sub-1"), at)
	assert.Equal(t, "sub-1", earn.TaskSubmissionID)
	assert.Empty(t, earn.RewardID)
	assert.Empty(t, earn.ShopItemID)

	reward := NewTransaction("kid", TransactionTypeRedeem, 5, "ice cream", RewardRef("r-1"), at)
	assert.Equal(t, "r-1", reward.RewardID)

	item := NewTransaction("kid", TransactionTypeRedeem, 5, "hat", ShopItemRef("hat"), at)
	assert.Equal(t, "hat", item.ShopItemID)

	manual := NewTransaction("kid", TransactionTypeEarn, 5, "bonus", nil, at)
	assert.Empty(t, manual.TaskSubmissionID+manual.RewardID+manual.ShopItemID)

	assert.NotEqual(t, earn.ID, reward.ID)
}

func TestReplay(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	trans := []Transaction{
		NewTransaction("kid", TransactionTypeEarn, 10, "", nil, base),
		NewTransaction("kid", TransactionTypeRedeem, 4, "", nil, base.Add(time.Hour)),
		NewTransaction("kid", TransactionTypeEarn, 3, "", nil, base.Add(2*time.Hour)),
	}

	b := Replay("kid", trans)
	assert.Equal(t, int64(9), b.TotalStars)
	assert.Equal(t, int64(13), b.LifetimeStars)
	assert.Equal(t, base.Add(2*time.Hour), b.LastUpdated)

	empty := Replay("nobody", nil)
	assert.Zero(t, empty.TotalStars)
	assert.Zero(t, empty.LifetimeStars)
}

func TestSortNewestFirst_TieBreaksOnSeq(t *testing.T) {
	at := time.Now().UTC()
	a := NewTransaction("kid", TransactionTypeEarn, 1, "a", nil, at)
	a.Seq = 1
	b := NewTransaction("kid", TransactionTypeEarn, 1, "b", nil, at)
	b.Seq = 2
	c := NewTransaction("kid", TransactionTypeEarn, 1, "c", nil, at.Add(-time.Second))
	c.Seq = 3

	trans := []Transaction{a, c, b}
	SortNewestFirst(trans)
	assert.Equal(t, []string{"b", "a", "c"}, []string{trans[0].Description, trans[1].Description, trans[2].Description})
}

func TestTransactionFilter_Apply(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var trans []Transaction
	for i := 0; i < 6; i++ {
		typ := TransactionTypeEarn
		if i%2 == 1 {
			typ = TransactionTypeRedeem
		}
		tr := NewTransaction("kid", typ, int64(i+1), "", nil, base.Add(time.Duration(i)*24*time.Hour))
		tr.Seq = uint64(i + 1)
		trans = append(trans, tr)
	}

	t.Run("type", func(t *testing.T) {
		out := TransactionFilter{Type: TransactionTypeEarn}.Apply(trans)
		require.Len(t, out, 3)
		for _, tr := range out {
			assert.Equal(t, TransactionTypeEarn, tr.Type)
		}
	})

	t.Run("window is since inclusive until exclusive", func(t *testing.T) {
		out := TransactionFilter{Since: base.Add(24 * time.Hour), Until: base.Add(3 * 24 * time.Hour)}.Apply(trans)
		require.Len(t, out, 2)
		assert.Equal(t, uint64(3), out[0].Seq)
		assert.Equal(t, uint64(2), out[1].Seq)
	})

	t.Run("limit keeps newest", func(t *testing.T) {
		out := TransactionFilter{Limit: 2}.Apply(trans)
		require.Len(t, out, 2)
		assert.Equal(t, uint64(6), out[0].Seq)
		assert.Equal(t, uint64(5), out[1].Seq)
	})

	t.Run("input untouched", func(t *testing.T) {
		assert.Equal(t, uint64(1), trans[0].Seq)
	})
}

func TestSumEarned(t *testing.T) {
	at := time.Now()
	trans := []Transaction{
		NewTransaction("kid", TransactionTypeEarn, 5, "", nil, at),
		NewTransaction("kid", TransactionTypeRedeem, 3, "", nil, at),
		NewTransaction("kid", TransactionTypeEarn, 2, "", nil, at),
	}
	assert.Equal(t, int64(7), SumEarned(trans))
}
