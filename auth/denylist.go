package auth

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"food-delivery-backend/models"
)

// Denylist records revoked token ids until they expire.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// GormDenylist keeps revoked ids in the revoked_tokens table.
type GormDenylist struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormDenylist(db *gorm.DB) *GormDenylist {
	return &GormDenylist{db: db, now: time.Now}
}

func (d *GormDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expires_at <= ?", d.now()).Delete(&models.RevokedToken{}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.RevokedToken{TokenID: tokenID, ExpiresAt: expiresAt}).Error
	})
}

func (d *GormDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var n int64
	err := d.db.WithContext(ctx).Model(&models.RevokedToken{}).
		Where("token_id = ? AND expires_at > ?", tokenID, d.now()).
		Count(&n).Error
	return n > 0, err
}

// RedisDenylist keeps revoked ids as keys expiring with the token.
type RedisDenylist struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisDenylist(rdb *redis.Client) *RedisDenylist {
	return &RedisDenylist{rdb: rdb, prefix: "revoked:", now: time.Now}
}

func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	return d.rdb.Set(ctx, d.prefix+tokenID, 1, ttl).Err()
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := d.rdb.Get(ctx, d.prefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
