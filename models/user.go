package models

import (
	"context"

	"github.com/mmdatafocus/seedstore_backend/config"
	"github.com/mmdatafocus/seedstore_backend/utils"
)

type User struct {
	ID           int      `gorm:"primary_key" json:"id"`
	Name         string   `gorm:"size:100;not null" json:"name"`
	Email        string   `gorm:"size:150;uniqueIndex;not null" json:"email"`
	PasswordHash string   `gorm:"size:100;not null" json:"-"`
	Role         UserRole `gorm:"type:enum('admin','manager','storekeeper','qa','sales');not null" json:"role"`
	Phone        string   `gorm:"size:30" json:"phone"`
	IsActive     *bool    `gorm:"default:true" json:"is_active"`
	CreatedAt    int      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    int      `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=8"`
	Role     UserRole `json:"role" binding:"required"`
	Phone    string   `json:"phone"`
}

func (input *NewUser) validate(ctx context.Context, exceptId int) error {
	if !input.Role.Valid() {
		return utils.NewValidationError("invalid role %q", input.Role)
	}
	if len(input.Password) < 8 {
		return utils.NewValidationError("password must be at least 8 characters")
	}
	if err := utils.ValidateUnique[User](ctx, "email", input.Email, exceptId); err != nil {
		return utils.NewValidationError("email %s is already registered", input.Email)
	}
	return nil
}

func CreateUser(ctx context.Context, input NewUser) (*User, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		Phone:        input.Phone,
		IsActive:     utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func UpdateUser(ctx context.Context, id int, input NewUser) (*User, error) {
	user, err := utils.FetchModel[User](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("user", id)
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user.Name = input.Name
	user.Email = input.Email
	user.PasswordHash = hash
	user.Role = input.Role
	user.Phone = input.Phone

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func ToggleActiveUser(ctx context.Context, id int, isActive bool) (*User, error) {
	user, err := utils.FetchModel[User](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("user", id)
	}

	user.IsActive = &isActive
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// AuthenticateUser checks the credentials against an active account. The
// error is deliberately uniform so callers cannot distinguish a wrong
// password from an unknown email.
func AuthenticateUser(ctx context.Context, email, password string) (*User, error) {
	db := config.GetDB()
	var user User
	err := db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if err != nil {
		return nil, utils.NewStateError("invalid credentials")
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, utils.NewStateError("invalid credentials")
	}
	if err := utils.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, utils.NewStateError("invalid credentials")
	}
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	user, err := utils.FetchModel[User](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("user", id)
	}
	return user, nil
}

func ListUsers(ctx context.Context, page *PageInput) (*Paginated[User], error) {
	limit, offset := page.Normalize()
	db := config.GetDB()

	var count int64
	if err := db.WithContext(ctx).Model(&User{}).Count(&count).Error; err != nil {
		return nil, err
	}

	var users []*User
	err := db.WithContext(ctx).
		Order("name ASC").
		Limit(limit).Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return newPaginated(count, page, users), nil
}
