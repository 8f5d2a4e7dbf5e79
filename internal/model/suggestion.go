package model

import "time"

// Suggestion statuses.
const (
	SuggestionPending  = "pending"
	SuggestionApproved = "approved"
	SuggestionRejected = "rejected"
)

// SuggestedDocument is a document uploaded by a user and waiting for admin review.
// Approved suggestions are deleted once promoted; rejected ones are kept for audit.
type SuggestedDocument struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Title          string     `gorm:"type:varchar(255);not null" json:"title"`
	Slug           string     `gorm:"type:varchar(255);not null" json:"slug"`
	DepartmentID   uint       `gorm:"not null;index" json:"departmentId"`
	DepartmentName string     `gorm:"type:varchar(100)" json:"departmentName"`
	CircleID       uint       `gorm:"not null;index" json:"circleId"`
	CircleName     string     `gorm:"type:varchar(100)" json:"circleName"`
	FileURL        string     `gorm:"type:varchar(1024)" json:"fileUrl"`
	FileName       string     `gorm:"type:varchar(255)" json:"fileName"`
	FileType       string     `gorm:"type:varchar(10)" json:"fileType"`
	FileSize       int64      `json:"fileSize"`
	StorageID      string     `gorm:"type:varchar(255)" json:"storageId"`
	SubmitterID    uint       `gorm:"index" json:"submitterId"`
	SubmitterEmail string     `gorm:"type:varchar(255)" json:"submitterEmail"`
	Status         string     `gorm:"type:varchar(16);not null;default:pending;index" json:"status"`
	AdminNotes     string     `gorm:"type:text" json:"adminNotes"`
	Summary        string     `gorm:"type:text" json:"summary"`
	Category       string     `gorm:"type:varchar(32);not null" json:"category"`
	ReviewedBy     string     `gorm:"type:varchar(255)" json:"reviewedBy,omitempty"`
	ReviewedAt     *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (SuggestedDocument) TableName() string {
	return "suggested_documents"
}
