package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/wealth_backend/config"
	"bitbucket.org/mmdatafocus/wealth_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type User struct {
	ID          string `gorm:"type:varchar(36);primaryKey" json:"id"`
	ClerkUserId string `gorm:"type:varchar(64);uniqueIndex;not null" json:"clerk_user_id"`
	Email       string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name        string `gorm:"size:255" json:"name"`
	ImageUrl    string `gorm:"type:text" json:"image_url"`

	Accounts     []Account     `gorm:"foreignKey:UserId" json:"accounts,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:UserId" json:"transactions,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type NewUser struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name"`
	ImageUrl string `json:"image_url"`
}

// ResolveUser maps the identity provider's user id (from the session
// context) to the internal user record. It is the single tenant-isolation
// gate: every operation starts here and scopes all subsequent queries by
// the returned internal id.
func ResolveUser(ctx context.Context) (*User, error) {
	clerkUserId, ok := utils.GetClerkUserIdFromContext(ctx)
	if !ok || clerkUserId == "" {
		return nil, utils.ErrorUnauthorized
	}

	db := config.GetDB()
	var user User
	err := db.WithContext(ctx).Where("clerk_user_id = ?", clerkUserId).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SyncUser creates the user row on first authenticated access, or refreshes
// the mutable profile fields on later calls. Keyed by the provider id.
func SyncUser(ctx context.Context, input *NewUser) (*User, error) {
	clerkUserId, ok := utils.GetClerkUserIdFromContext(ctx)
	if !ok || clerkUserId == "" {
		return nil, utils.ErrorUnauthorized
	}

	user := User{
		ClerkUserId: clerkUserId,
		Email:       input.Email,
		Name:        input.Name,
		ImageUrl:    input.ImageUrl,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "clerk_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "image_url"}),
	}).Create(&user).Error
	if err != nil {
		return nil, err
	}

	// OnConflict updates do not refresh the in-memory struct; read it back.
	var saved User
	if err := db.WithContext(ctx).Where("clerk_user_id = ?", clerkUserId).First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}
