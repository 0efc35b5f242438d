package domain

import "time"

// BaseModel holds the columns shared by every engine table.
// Rows are hard-deleted so no DeletedAt column is carried.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
