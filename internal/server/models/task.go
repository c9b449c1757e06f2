package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a presigned upload. Only
// Pending → Completed and Pending → Failed are valid transitions.
type TaskStatus string

const (
	TaskPending   TaskStatus = "Pending"
	TaskCompleted TaskStatus = "Completed"
	TaskFailed    TaskStatus = "Failed"
)

// PresignedUploadTask is one upload grant issued to a client.
type PresignedUploadTask struct {
	ID          uuid.UUID
	DocumentBox string
	FolderID    uuid.UUID
	// FileKey is the object key the client uploads to; it joins storage
	// notifications back to the task.
	FileKey string
	Name    string
	Mime    string
	Size    int64

	// Status with its variant data: FileID is set only when Completed,
	// Error only when Failed.
	Status TaskStatus
	FileID *uuid.UUID
	Error  *string

	ProcessingConfig json.RawMessage
	ParentID         *uuid.UUID
	CreatedBy        *string
	CreatedAt        time.Time
	ExpiresAt        time.Time
}
