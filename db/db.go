package db

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"Gin_postgres_redis_gear_inventory/models"
)

var DB *gorm.DB

func ConnectDB() *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatal("Failed to migrate models: ", err)
	}
	log.Println("Database connected")
	return DB
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.DeviceToken{},
		&models.Product{},
		&models.BorrowTransaction{},
		&models.DaySequence{},
	); err != nil {
		return err
	}

	// At most one open transaction per product. The conditional status
	// update is the first line of defense; this index is the backstop.
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_open_per_product
	  ON %s (product_id)
	  WHERE returned_at IS NULL;
	`, models.TransactionTable, models.TransactionTable)).Error; err != nil {
		return err
	}

	// Open-transaction lookups by borrower ("my borrows").
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_open_by_borrower
	  ON %s (borrower_id, borrowed_at DESC)
	  WHERE returned_at IS NULL;
	`, models.TransactionTable, models.TransactionTable)).Error; err != nil {
		return err
	}

	return nil
}
