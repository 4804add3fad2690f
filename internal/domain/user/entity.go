// internal/domain/user/entity.go
package user

import (
	"time"
)

// Address represents a saved shipping address owned by a user
type Address struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	FullName    string    `gorm:"size:100;not null" json:"full_name"`
	Phone       string    `gorm:"size:10;not null" json:"phone"`
	AddressLine string    `gorm:"size:255;not null" json:"address_line"`
	City        string    `gorm:"size:100;not null" json:"city"`
	State       string    `gorm:"size:100;not null" json:"state"`
	Pincode     string    `gorm:"size:6;not null" json:"pincode"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides the table name for Address
func (Address) TableName() string {
	return "addresses"
}

// AddressInput is the user-editable part of an address
type AddressInput struct {
	FullName    string `json:"full_name" validate:"required,max=100"`
	Phone       string `json:"phone" validate:"required,number,len=10"`
	AddressLine string `json:"address_line" validate:"required,max=255"`
	City        string `json:"city" validate:"required,max=100"`
	State       string `json:"state" validate:"required,max=100"`
	Pincode     string `json:"pincode" validate:"required,number,len=6"`
}

func (a *Address) apply(in AddressInput) {
	a.FullName = in.FullName
	a.Phone = in.Phone
	a.AddressLine = in.AddressLine
	a.City = in.City
	a.State = in.State
	a.Pincode = in.Pincode
}
