package models

import "github.com/google/uuid"

// Folder is a node of a document box tree. Only read by the upload lifecycle.
type Folder struct {
	ID          uuid.UUID
	DocumentBox string
	Name        string
	// FolderID is the parent folder; nil for the root folder of a box.
	FolderID *uuid.UUID
}
