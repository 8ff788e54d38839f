package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"Gin_postgres_redis_gear_inventory/inventory"
	"Gin_postgres_redis_gear_inventory/models"
)

func (r *Repo) CreateDeviceToken(ctx context.Context, t *models.DeviceToken) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

func (r *Repo) FindDeviceTokenByJTI(ctx context.Context, jti string) (*models.DeviceToken, error) {
	var t models.DeviceToken
	if err := r.DB.WithContext(ctx).First(&t, "jti = ?", jti).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *Repo) TouchDeviceTokenUsed(ctx context.Context, jti string) error {
	return r.DB.WithContext(ctx).Model(&models.DeviceToken{}).
		Where("jti = ?", jti).
		Update("last_used_at", gorm.Expr("NOW()")).Error
}

func (r *Repo) RevokeDeviceToken(ctx context.Context, jti string) error {
	res := r.DB.WithContext(ctx).Model(&models.DeviceToken{}).
		Where("jti = ? AND revoked_at IS NULL", jti).
		Update("revoked_at", gorm.Expr("NOW()"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

func (r *Repo) ListDeviceTokens(ctx context.Context, userID string) ([]models.DeviceToken, error) {
	var ts []models.DeviceToken
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&ts).Error
	return ts, err
}
