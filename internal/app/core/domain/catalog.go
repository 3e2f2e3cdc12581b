package domain

// ShopItem 商店裡的造型物品 (目錄內容由外部提供)
type ShopItem struct {
	ID    string `json:"id" yaml:"id" validate:"required,max=64"`
	Name  string `json:"name" yaml:"name"`
	Price int64  `json:"price" yaml:"price" validate:"gt=0"`
}

// Reward 可兌換的獎勵
type Reward struct {
	ID   string `json:"id" yaml:"id" validate:"required,max=64"`
	Name string `json:"name" yaml:"name"`
	Cost int64  `json:"cost" yaml:"cost" validate:"gt=0"`
}

// Label 顯示用名稱，沒有名稱時用 ID
func (i ShopItem) Label() string {
	if i.Name != "" {
		return i.Name
	}
	return i.ID
}

func (r Reward) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}
