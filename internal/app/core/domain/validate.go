package domain

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate 共用的 validator 實例 (thread-safe，會快取 struct 資訊)
var validate = validator.New(validator.WithRequiredStructEnabled())

// Entry 單筆入帳 / 扣款的輸入
type Entry struct {
	ChildID     string `validate:"required,max=64"`
	Amount      int64  `validate:"gt=0"`
	Description string `validate:"max=256"`
	Ref         *CausalRef
}

// Validate 驗證輸入，失敗時回傳包裝 ErrInvalidInput 的錯誤
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Tag() == "gt" {
			return fmt.Errorf("%w (%s)", ErrAmountMustBePositive, fe.Namespace())
		}
		return fmt.Errorf("%w: %s failed on %q", ErrInvalidInput, fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// ValidateID 檢查必填的 ID
func ValidateID(name, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, name)
	}
	return nil
}
