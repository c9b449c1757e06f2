package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmitrijs2005/docbox/internal/common"
	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/dmitrijs2005/docbox/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type createPresignedRequest struct {
	Name                string          `json:"name"`
	FolderID            uuid.UUID       `json:"folder_id"`
	Size                int64           `json:"size"`
	Mime                string          `json:"mime"`
	ParentID            *uuid.UUID      `json:"parent_id"`
	ProcessingConfig    json.RawMessage `json:"processing_config"`
	DisableMimeSniffing bool            `json:"disable_mime_sniffing"`
}

type createPresignedResponse struct {
	TaskID  uuid.UUID         `json:"task_id"`
	Method  string            `json:"method"`
	URI     string            `json:"uri"`
	Headers map[string]string `json:"headers"`
}

type fileResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Mime      string     `json:"mime"`
	FolderID  uuid.UUID  `json:"folder_id"`
	Hash      string     `json:"hash"`
	Size      int64      `json:"size"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	CreatedBy *string    `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type generatedResponse struct {
	ID        uuid.UUID `json:"id"`
	FileID    uuid.UUID `json:"file_id"`
	Type      string    `json:"type"`
	Mime      string    `json:"mime"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

type statusResponse struct {
	Status    string              `json:"status"`
	File      *fileResponse       `json:"file,omitempty"`
	Generated []generatedResponse `json:"generated,omitempty"`
	Error     string              `json:"error,omitempty"`
}

type rawPresignedRequest struct {
	// ExpiresAt is the lifetime of the signed request in seconds.
	ExpiresAt *int64 `json:"expires_at"`
}

func toFileResponse(f *models.File) *fileResponse {
	return &fileResponse{
		ID:        f.ID,
		Name:      f.Name,
		Mime:      f.Mime,
		FolderID:  f.FolderID,
		Hash:      f.Hash,
		Size:      f.Size,
		ParentID:  f.ParentID,
		CreatedBy: f.CreatedBy,
		CreatedAt: f.CreatedAt,
	}
}

func toStatusResponse(s *services.StatusResult) statusResponse {
	switch s.Status {
	case models.TaskCompleted:
		out := statusResponse{Status: "Complete", File: toFileResponse(s.File)}
		for _, g := range s.Generated {
			out.Generated = append(out.Generated, generatedResponse{
				ID:        g.ID,
				FileID:    g.FileID,
				Type:      string(g.Type),
				Mime:      g.Mime,
				Hash:      g.Hash,
				CreatedAt: g.CreatedAt,
			})
		}
		return out
	case models.TaskFailed:
		return statusResponse{Status: "Failed", Error: s.Error}
	default:
		return statusResponse{Status: "Pending"}
	}
}

func (h *Handler) handleCreatePresigned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tc := tenantFrom(ctx)

	var req createPresignedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, common.Validation("invalid request body"))
		return
	}

	res, err := h.presigned.Initiate(ctx, tc.res.DB, tc.res.Storage, services.InitiateRequest{
		Scope:               chi.URLParam(r, "scope"),
		FolderID:            req.FolderID,
		Name:                req.Name,
		Mime:                req.Mime,
		Size:                req.Size,
		ParentID:            req.ParentID,
		ProcessingConfig:    req.ProcessingConfig,
		DisableMimeSniffing: req.DisableMimeSniffing,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.UploadsInitiated.Inc()

	h.respond(w, r, http.StatusCreated, createPresignedResponse{
		TaskID:  res.Task.ID,
		Method:  res.Request.Method,
		URI:     res.Request.URI,
		Headers: res.Request.Headers,
	})
}

func (h *Handler) handleGetPresigned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tc := tenantFrom(ctx)

	taskID, err := uuid.Parse(chi.URLParam(r, "task_id"))
	if err != nil {
		h.writeError(w, r, common.Validation("invalid task id"))
		return
	}

	st, err := h.presigned.Status(ctx, tc.res.DB, chi.URLParam(r, "scope"), taskID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, toStatusResponse(st))
}

func (h *Handler) handleRawPresigned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tc := tenantFrom(ctx)

	fileID, err := uuid.Parse(chi.URLParam(r, "file_id"))
	if err != nil {
		h.writeError(w, r, common.Validation("invalid file id"))
		return
	}

	var req rawPresignedRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, r, common.Validation("invalid request body"))
			return
		}
	}

	var expiry time.Duration
	if req.ExpiresAt != nil {
		if *req.ExpiresAt < 1 {
			h.writeError(w, r, common.Validation("expires_at must be a positive number of seconds"))
			return
		}
		expiry = time.Duration(*req.ExpiresAt) * time.Second
	}

	signed, err := h.presigned.PresignDownload(ctx, tc.res.DB, tc.res.Storage, chi.URLParam(r, "scope"), fileID, expiry)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, signed)
}
