// Package search indexes tenant documents in OpenSearch. Query construction
// lives elsewhere; this package only writes.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// Document is the indexed form of a file.
type Document struct {
	ID          uuid.UUID `json:"item_id"`
	ItemType    string    `json:"item_type"`
	DocumentBox string    `json:"document_box"`
	FolderID    uuid.UUID `json:"folder_id"`
	Name        string    `json:"name"`
	Mime        string    `json:"mime"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   *string   `json:"created_by,omitempty"`
}

// FileDocument builds the search document for a file in scope.
func FileDocument(scope string, f *models.File) Document {
	return Document{
		ID:          f.ID,
		ItemType:    "File",
		DocumentBox: scope,
		FolderID:    f.FolderID,
		Name:        f.Name,
		Mime:        f.Mime,
		CreatedAt:   f.CreatedAt,
		CreatedBy:   f.CreatedBy,
	}
}

// Index is a tenant's search index.
type Index interface {
	IndexDocument(ctx context.Context, doc Document) error
}

// NewClient connects to the cluster; no request is made until first use.
func NewClient(url, username, password string) (*opensearch.Client, error) {
	return opensearch.NewClient(opensearch.Config{
		Addresses: []string{url},
		Username:  username,
		Password:  password,
	})
}

// Factory binds the shared client to tenant indexes.
type Factory struct {
	transport opensearchapi.Transport
}

func NewFactory(transport opensearchapi.Transport) *Factory {
	return &Factory{transport: transport}
}

// ForTenant returns t's index. It never fails.
func (f *Factory) ForTenant(t *models.Tenant) *OpenSearchIndex {
	return &OpenSearchIndex{name: t.OSIndexName, transport: f.transport}
}

// OpenSearchIndex writes to one index.
type OpenSearchIndex struct {
	name      string
	transport opensearchapi.Transport
}

var _ Index = (*OpenSearchIndex)(nil)

func (i *OpenSearchIndex) Name() string { return i.name }

func checkResponse(res *opensearchapi.Response, op string) error {
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("%s: status %d: %s", op, res.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

// IndexDocument upserts doc under its item id.
func (i *OpenSearchIndex) IndexDocument(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	res, err := opensearchapi.IndexRequest{
		Index:      i.name,
		DocumentID: doc.ID.String(),
		Body:       bytes.NewReader(body),
	}.Do(ctx, i.transport)
	if err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	return checkResponse(res, "index document")
}

// EnsureIndex creates the index when it does not exist yet.
func (i *OpenSearchIndex) EnsureIndex(ctx context.Context) error {
	res, err := opensearchapi.IndicesExistsRequest{Index: []string{i.name}}.Do(ctx, i.transport)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = opensearchapi.IndicesCreateRequest{Index: i.name}.Do(ctx, i.transport)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return checkResponse(res, "create index")
}
