package repository

import (
	"photoquest_backend/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

// AwardXP atomically increments both balances so concurrent completions cannot
// drop an update. Level is recomputed by the caller inside the same transaction.
func (r *UserRepository) AwardXP(tx *gorm.DB, userID uint, amount int) error {
	return tx.Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"xp":       gorm.Expr("xp + ?", amount),
			"total_xp": gorm.Expr("total_xp + ?", amount),
		}).Error
}

func (r *UserRepository) SetLevel(tx *gorm.DB, userID uint, level int) error {
	return tx.Model(&model.User{}).Where("id = ?", userID).Update("level", level).Error
}

func (r *UserRepository) FindTopByTotalXP(limit int) ([]model.User, error) {
	var users []model.User
	err := r.DB.Order("total_xp DESC").Limit(limit).Find(&users).Error
	return users, err
}
