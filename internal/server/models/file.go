package models

import (
	"time"

	"github.com/google/uuid"
)

// File is a stored document. It is created only when a presigned upload
// completes successfully.
type File struct {
	ID       uuid.UUID
	Name     string
	Mime     string
	FolderID uuid.UUID
	// Hash is the hex content hash computed by processing.
	Hash string
	Size int64
	// FileKey is the object-storage key of the content.
	FileKey string
	// ParentID optionally links the file to another file (e.g. an attachment).
	ParentID  *uuid.UUID
	CreatedBy *string
	CreatedAt time.Time
}

// GeneratedFileType names the artifact kinds processing can produce.
type GeneratedFileType string

const (
	GeneratedPdf            GeneratedFileType = "Pdf"
	GeneratedCoverPage      GeneratedFileType = "CoverPage"
	GeneratedSmallThumbnail GeneratedFileType = "SmallThumbnail"
	GeneratedLargeThumbnail GeneratedFileType = "LargeThumbnail"
	GeneratedTextContent    GeneratedFileType = "TextContent"
	GeneratedMetadata       GeneratedFileType = "Metadata"
)

// GeneratedFile is an artifact derived from a File by processing.
type GeneratedFile struct {
	ID        uuid.UUID
	FileID    uuid.UUID
	Type      GeneratedFileType
	Mime      string
	Hash      string
	FileKey   string
	CreatedAt time.Time
}
