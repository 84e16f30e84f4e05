package repository

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQLのSQLSTATEコード
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translatePQError はPostgreSQLの制約違反エラーをリポジトリ共通のエラーに変換する。
// 該当しない場合はnilを返す。
func translatePQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return ErrDuplicateKey
	case pqForeignKeyViolation:
		return ErrForeignKey
	default:
		return nil
	}
}
