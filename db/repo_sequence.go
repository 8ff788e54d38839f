package db

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Gin_postgres_redis_gear_inventory/inventory"
	"Gin_postgres_redis_gear_inventory/models"
	"Gin_postgres_redis_gear_inventory/txnumber"
)

const maxSequenceAttempts = 5

// nextNumber issues the next transaction number for the given day. It must
// run inside the caller's transaction: the row lock on the day's counter is
// what serializes concurrent borrows, and a rollback returns the number to
// the sequence before anyone saw it.
func nextNumber(tx *gorm.DB, day time.Time) (string, error) {
	key := txnumber.DayKey(day)

	for attempt := 0; attempt < maxSequenceAttempts; attempt++ {
		// First borrow of the day creates the counter row.
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.DaySequence{Day: key, NextSeq: 1}).Error; err != nil {
			return "", err
		}

		var seq models.DaySequence
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&seq, "day = ?", key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The insert we conflicted with rolled back; try again.
			continue
		}
		if err != nil {
			return "", err
		}

		if err := tx.Model(&models.DaySequence{}).
			Where("day = ?", key).
			Update("next_seq", gorm.Expr("next_seq + 1")).Error; err != nil {
			return "", err
		}
		return txnumber.Format(day, seq.NextSeq), nil
	}
	return "", inventory.ErrSequenceExhausted
}
