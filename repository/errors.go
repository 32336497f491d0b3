package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrVersionConflict means the row changed since the caller read it.
	ErrVersionConflict   = errors.New("record was modified by someone else")
	ErrActiveLabelExists = errors.New("order already has an active shipping label")
	ErrAlreadyLinked     = errors.New("product is already linked")
	ErrDuplicateNumber   = errors.New("number already taken")
)

// IsNotFound reports whether err is a missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func paginate(page, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 20
		}
		return db.Offset((page - 1) * limit).Limit(limit)
	}
}

// checkVersion turns an optimistic update that matched no row into
// ErrVersionConflict.
func checkVersion(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}
