package model

import "time"

// Department is a sub-unit of a Circle. CircleName is a denormalized copy taken at
// creation time and is not rewritten when the circle is renamed.
//
// DocumentCount is maintained incrementally: +1 per published document, never recomputed.
type Department struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(100);not null" json:"name"`
	Slug          string    `gorm:"type:varchar(120);not null;uniqueIndex:idx_department_circle_slug" json:"slug"`
	CircleID      uint      `gorm:"not null;index;uniqueIndex:idx_department_circle_slug" json:"circleId"`
	CircleName    string    `gorm:"type:varchar(100)" json:"circleName"`
	TeamLead      string    `gorm:"type:varchar(255)" json:"teamLead"`
	TeamLeadEmail string    `gorm:"type:varchar(255)" json:"teamLeadEmail"`
	Description   string    `gorm:"type:text" json:"description"`
	Icon          string    `gorm:"type:varchar(64)" json:"icon"`
	DocumentCount int64     `gorm:"not null;default:0" json:"documentCount"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Department) TableName() string {
	return "departments"
}
