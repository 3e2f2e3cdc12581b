package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput 輸入不合法 (在任何讀取之前就拒絕)
	ErrInvalidInput = errors.New("invalid input")

	// ErrAmountMustBePositive 金額必須為正數
	ErrAmountMustBePositive = fmt.Errorf("%w: amount must be positive", ErrInvalidInput)

	// ErrInsufficientFunds 星星不足
	ErrInsufficientFunds = errors.New("insufficient stars")

	// ErrAlreadyOwned 物品已擁有
	ErrAlreadyOwned = errors.New("item already owned")

	// ErrNotFound 找不到資料
	ErrNotFound = errors.New("not found")

	ErrSubmissionNotFound = fmt.Errorf("submission %w", ErrNotFound)
	ErrRedemptionNotFound = fmt.Errorf("redemption %w", ErrNotFound)
	ErrItemNotFound       = fmt.Errorf("shop item %w", ErrNotFound)
	ErrRewardNotFound     = fmt.Errorf("reward %w", ErrNotFound)

	// ErrSubmissionNotPending 任務提交已審核過 (approved / rejected 都是終態)
	ErrSubmissionNotPending = errors.New("submission already reviewed")

	// ErrRedemptionFulfilled 兌換已完成
	ErrRedemptionFulfilled = errors.New("redemption already fulfilled")

	// ErrConflict 交易範圍衝突 (deadlock / lock timeout / duplicate key)，可重試
	ErrConflict = errors.New("transaction conflict")

	// ErrRetriesExhausted 衝突重試次數用完
	ErrRetriesExhausted = errors.New("transaction retries exhausted")

	// ErrBackendUnavailable 儲存後端無法連線
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrWALWriteFailed WAL 寫入失敗
	ErrWALWriteFailed = errors.New("wal write failed")
)

// IsDeclined 回傳 err 是否為預期中的拒絕結果 (不是基礎設施錯誤)
func IsDeclined(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrAlreadyOwned)
}
