package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ユーザーが見つかりませんを統一
	ErrUserNotFound = errors.New("user not found")
	// 一意制約違反
	ErrDuplicate = errors.New("duplicate")
	// 外部キーで参照されていて消せない
	ErrReferenced = errors.New("referenced by other records")
)
