package models

import "time"

type User struct {
	ID               string    `gorm:"primaryKey" json:"id"`
	Email            string    `gorm:"uniqueIndex" json:"email"`
	BrandName        string    `json:"brand_name"`
	BrandWebsite     string    `json:"brand_website,omitempty"`
	BrandDescription string    `gorm:"type:text" json:"brand_description,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
