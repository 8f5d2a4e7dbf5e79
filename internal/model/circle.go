package model

import "time"

// Circle is the top-level organizational grouping. It owns its departments.
type Circle struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Slug        string       `gorm:"type:varchar(120);uniqueIndex;not null" json:"slug"`
	Icon        string       `gorm:"type:varchar(64)" json:"icon"`
	Color       string       `gorm:"type:varchar(32)" json:"color"`
	Description string       `gorm:"type:text" json:"description"`
	Order       int          `gorm:"column:sort_order;not null;default:0" json:"order"`
	Departments []Department `gorm:"foreignKey:CircleID" json:"departments"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Circle) TableName() string {
	return "circles"
}
