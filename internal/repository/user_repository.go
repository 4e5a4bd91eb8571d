package repository

import (
	"skillplan_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// WithTx 返回绑定到事务的仓库
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByIDs(ids []uint) ([]model.User, error) {
	var users []model.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// LockByID 在事务内加行锁读取用户（sqlite 下锁子句被忽略）
func (r *UserRepository) LockByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProgress 只写连续天数和完成技能相关字段
func (r *UserRepository) UpdateProgress(user *model.User) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"streak":              user.Streak,
			"longest_streak":      user.LongestStreak,
			"last_completed_date": user.LastCompletedDate,
			"completed_skills":    user.CompletedSkills,
		}).Error
}

func (r *UserRepository) UpdatePreferences(user *model.User) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"notify_streak_reminder": user.NotificationPreferences.StreakReminder,
			"notify_daily_reminder":  user.NotificationPreferences.DailyReminder,
		}).Error
}
