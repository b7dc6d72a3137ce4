package models

import (
	"context"
	"errors"
	"time"

	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID          int       `gorm:"primary_key" json:"id"`
	CompanyId   string    `gorm:"index;size:36;not null" json:"company_id"`
	Username    string    `gorm:"uniqueIndex;size:100;not null" json:"username" binding:"required"`
	Password    string    `gorm:"size:255;not null" json:"-"`
	Name        string    `gorm:"size:255" json:"name"`
	Email       string    `gorm:"size:255" json:"email"`
	IsSuperuser *bool     `gorm:"not null;default:false" json:"is_superuser"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	CompanyId   string `json:"company_id" binding:"required"`
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	IsSuperuser *bool  `json:"is_superuser"`
}

type LoginInfo struct {
	Token       string `json:"token"`
	UserId      int    `json:"user_id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	CompanyId   string `json:"company_id"`
	IsSuperuser bool   `json:"is_superuser"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	db := config.GetDB()

	var count int64
	if err := db.WithContext(ctx).Model(&User{}).
		Where("username = ?", input.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("username already taken")
	}

	user := User{
		CompanyId:   input.CompanyId,
		Username:    input.Username,
		Password:    input.Password,
		Name:        input.Name,
		Email:       input.Email,
		IsSuperuser: input.IsSuperuser,
		IsActive:    utils.NewTrue(),
	}
	if user.IsSuperuser == nil {
		user.IsSuperuser = utils.NewFalse()
	}

	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Login verifies the credentials and issues a signed token.
func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {

	db := config.GetDB()

	var user User
	err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, errors.New("invalid username or password")
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, errors.New("user is inactive")
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, errors.New("invalid username or password")
	}

	isSuperuser := user.IsSuperuser != nil && *user.IsSuperuser
	token, err := utils.JwtGenerate(user.ID, isSuperuser)
	if err != nil {
		return nil, err
	}

	return &LoginInfo{
		Token:       token,
		UserId:      user.ID,
		Username:    user.Username,
		Name:        user.Name,
		CompanyId:   user.CompanyId,
		IsSuperuser: isSuperuser,
	}, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &user, nil
}
