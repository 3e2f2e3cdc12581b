package catalog

import (
	"fmt"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/usecase"
)

// Static 由設定檔載入的固定目錄，建立後唯讀
type Static struct {
	items   map[string]domain.ShopItem
	rewards map[string]domain.Reward
}

// NewStatic 建立目錄，每個物品與獎勵都必須通過驗證且 ID 不重複
func NewStatic(items []domain.ShopItem, rewards []domain.Reward) (*Static, error) {
	c := &Static{
		items:   make(map[string]domain.ShopItem, len(items)),
		rewards: make(map[string]domain.Reward, len(rewards)),
	}
	for _, item := range items {
		if err := domain.Validate(item); err != nil {
			return nil, fmt.Errorf("shop item %q: %w", item.ID, err)
		}
		if _, dup := c.items[item.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate shop item %q", domain.ErrInvalidInput, item.ID)
		}
		c.items[item.ID] = item
	}
	for _, reward := range rewards {
		if err := domain.Validate(reward); err != nil {
			return nil, fmt.Errorf("reward %q: %w", reward.ID, err)
		}
		if _, dup := c.rewards[reward.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate reward %q", domain.ErrInvalidInput, reward.ID)
		}
		c.rewards[reward.ID] = reward
	}
	return c, nil
}

func (c *Static) ShopItem(id string) (domain.ShopItem, error) {
	item, ok := c.items[id]
	if !ok {
		return domain.ShopItem{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
	}
	return item, nil
}

func (c *Static) Reward(id string) (domain.Reward, error) {
	reward, ok := c.rewards[id]
	if !ok {
		return domain.Reward{}, fmt.Errorf("%w: %s", domain.ErrRewardNotFound, id)
	}
	return reward, nil
}

var _ usecase.Catalog = (*Static)(nil)
