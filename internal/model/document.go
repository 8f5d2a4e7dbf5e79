package model

import (
	"path/filepath"
	"strings"
	"time"
)

// SupportedFileTypes lists the extensions (without the dot) accepted for upload.
var SupportedFileTypes = []string{"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "txt", "md"}

// Categories lists the document categories. CategoryOther is the default.
var Categories = []string{"Policy", "Procedure", "Report", "Template", "Guide", "Presentation", CategoryOther}

const CategoryOther = "Other"

// Document is a published, queryable document.
type Document struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Title          string     `gorm:"type:varchar(255);not null" json:"title"`
	Slug           string     `gorm:"type:varchar(255);not null;index" json:"slug"`
	DepartmentID   uint       `gorm:"not null;index" json:"departmentId"`
	DepartmentName string     `gorm:"type:varchar(100)" json:"departmentName"`
	CircleID       uint       `gorm:"not null;index" json:"circleId"`
	CircleName     string     `gorm:"type:varchar(100)" json:"circleName"`
	FileURL        string     `gorm:"type:varchar(1024)" json:"fileUrl"`
	FileName       string     `gorm:"type:varchar(255)" json:"fileName"`
	FileType       string     `gorm:"type:varchar(10)" json:"fileType"`
	FileSize       int64      `json:"fileSize"`
	StorageID      string     `gorm:"type:varchar(255)" json:"-"`
	Content        string     `gorm:"type:longtext" json:"content"`
	Summary        string     `gorm:"type:text" json:"summary"`
	Author         string     `gorm:"type:varchar(255)" json:"author"`
	Version        string     `gorm:"type:varchar(32);default:'1.0'" json:"version"`
	Tags           []string   `gorm:"serializer:json;type:text" json:"tags"`
	Category       string     `gorm:"type:varchar(32);not null" json:"category"`
	SearchableText string     `gorm:"type:longtext" json:"-"`
	ViewCount      int64      `gorm:"not null;default:0" json:"viewCount"`
	DownloadCount  int64      `gorm:"not null;default:0" json:"downloadCount"`
	LastViewedAt   *time.Time `json:"lastViewedAt"`
	PublishedAt    time.Time  `gorm:"index" json:"publishedAt"`
	// SuggestionID links a promoted document to the suggestion it came from; the unique
	// index makes a repeated promotion fail instead of publishing twice.
	SuggestionID *uint     `gorm:"uniqueIndex" json:"suggestionId,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Document) TableName() string {
	return "documents"
}

// BuildSearchableText joins the fields the keyword search matches against.
func (d *Document) BuildSearchableText() {
	parts := []string{d.Title, d.Summary, strings.Join(d.Tags, " "), d.Category, d.DepartmentName, d.CircleName, d.Content}
	d.SearchableText = strings.ToLower(strings.Join(parts, " "))
}

// FileTypeOf returns the lowercased extension of name when it is supported.
func FileTypeOf(name string) (string, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, t := range SupportedFileTypes {
		if t == ext {
			return ext, true
		}
	}
	return "", false
}

// NormalizeCategory maps an empty or unknown category to CategoryOther.
func NormalizeCategory(category string) string {
	for _, c := range Categories {
		if strings.EqualFold(c, strings.TrimSpace(category)) {
			return c
		}
	}
	return CategoryOther
}
