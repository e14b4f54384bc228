package service

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrDailyCapReached 该 persona 当天已成功发过帖，硬性限制
	ErrDailyCapReached = errors.New("daily post cap reached")

	// ErrDuplicateAction 唯一约束冲突，等价于"已做过"，按成功处理
	ErrDuplicateAction = errors.New("duplicate action")
)

// isDuplicate 判断写入冲突（依赖 gorm.Config.TranslateError）
func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicateAction)
}
