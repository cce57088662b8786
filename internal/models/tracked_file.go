package models

import "time"

// FileStatus is the lifecycle state of a tracked file.
type FileStatus string

const (
	FileUploaded  FileStatus = "uploaded"
	FileProcessed FileStatus = "processed"
	FileExpired   FileStatus = "expired"
)

// TrackedFile is the lifecycle manager's view of one stored blob.
type TrackedFile struct {
	ID          string     `json:"id"`
	Path        string     `json:"path"`
	SizeBytes   int64      `json:"sizeBytes"`
	CreatedAt   time.Time  `json:"createdAt"`
	Status      FileStatus `json:"status"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	DeleteAt    *time.Time `json:"deleteAt,omitempty"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}

// Due reports whether the file should be reclaimed at now.
func (f TrackedFile) Due(now time.Time, maxAge time.Duration) bool {
	if f.ExpiresAt != nil && !now.Before(*f.ExpiresAt) {
		return true
	}
	if f.DeleteAt != nil && !now.Before(*f.DeleteAt) {
		return true
	}
	return maxAge > 0 && now.Sub(f.CreatedAt) > maxAge
}

// StorageUsage summarizes what the lifecycle manager is holding.
type StorageUsage struct {
	TotalFiles  int                `json:"totalFiles"`
	TotalBytes  int64              `json:"totalBytes"`
	ByStatus    map[FileStatus]int `json:"byStatus"`
	ByExtension map[string]int     `json:"byExtension"`
}
