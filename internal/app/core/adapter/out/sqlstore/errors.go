package sqlstore

import (
	"errors"
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
)

// MySQL 錯誤碼
const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDuplicateEntry  = 1062
	mysqlErrDeadlock        = 1213
)

// translate 把資料庫層的衝突轉成 domain.ErrConflict，其他錯誤原樣回傳
func translate(err error) error {
	if err == nil {
		return nil
	}
	if isConflict(err) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}

func isConflict(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlErrDeadlock, mysqlErrLockWaitTimeout, mysqlErrDuplicateEntry:
			return true
		}
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch {
		case liteErr.Code == sqlite3.ErrBusy, liteErr.Code == sqlite3.ErrLocked:
			return true
		case liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey,
			liteErr.ExtendedCode == sqlite3.ErrConstraintUnique:
			return true
		}
	}
	return false
}
