// Package processing turns an uploaded object into file metadata plus
// optional generated artifacts. Conversion and thumbnailing run outside this
// service; the default pipeline hashes the content and extracts plain text.
package processing

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/zeebo/blake3"
)

// Config is the per-upload processing configuration supplied at initiation.
type Config struct {
	// SkipTextContent disables the TextContent artifact for text uploads.
	SkipTextContent bool `json:"skip_text_content"`
}

// ParseConfig decodes raw; an empty value is the zero Config.
func ParseConfig(raw json.RawMessage) (Config, error) {
	var c Config
	if len(raw) == 0 || string(raw) == "null" {
		return c, nil
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("invalid processing config: %w", err)
	}
	return c, nil
}

// Generated is an artifact to be stored next to the file.
type Generated struct {
	Type  models.GeneratedFileType
	Mime  string
	Hash  string
	Bytes []byte
}

// Output describes the processed upload.
type Output struct {
	Hash      string
	Size      int64
	Generated []Generated
}

// Processor is the file processing pipeline.
type Processor interface {
	Process(ctx context.Context, object io.Reader, mime string, config json.RawMessage) (*Output, error)
}

// Default is the built-in pipeline.
type Default struct{}

func hashOf(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func isText(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "text/")
}

func (Default) Process(ctx context.Context, object io.Reader, contentType string, raw json.RawMessage) (*Output, error) {
	cfg, err := ParseConfig(raw)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Output{Hash: hashOf(data), Size: int64(len(data))}
	if isText(contentType) && !cfg.SkipTextContent && len(data) > 0 {
		out.Generated = append(out.Generated, Generated{
			Type:  models.GeneratedTextContent,
			Mime:  "text/plain",
			Hash:  hashOf(data),
			Bytes: data,
		})
	}
	return out, nil
}
