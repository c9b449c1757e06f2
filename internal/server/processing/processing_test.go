package processing

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestDefault_BinaryFile(t *testing.T) {
	out, err := Default{}.Process(context.Background(), strings.NewReader("%PDF-1.7"), "application/pdf", nil)
	require.NoError(t, err)

	sum := blake3.Sum256([]byte("%PDF-1.7"))
	assert.Equal(t, hex.EncodeToString(sum[:]), out.Hash)
	assert.Equal(t, int64(8), out.Size)
	assert.Empty(t, out.Generated)
}

func TestDefault_TextProducesTextContent(t *testing.T) {
	out, err := Default{}.Process(context.Background(), strings.NewReader("hello"), "text/plain; charset=utf-8", nil)
	require.NoError(t, err)

	require.Len(t, out.Generated, 1)
	assert.Equal(t, models.GeneratedTextContent, out.Generated[0].Type)
	assert.Equal(t, []byte("hello"), out.Generated[0].Bytes)
}

func TestDefault_SkipTextContent(t *testing.T) {
	out, err := Default{}.Process(context.Background(), strings.NewReader("hello"), "text/plain",
		json.RawMessage(`{"skip_text_content":true}`))
	require.NoError(t, err)
	assert.Empty(t, out.Generated)
}

func TestDefault_Errors(t *testing.T) {
	_, err := Default{}.Process(context.Background(), strings.NewReader("x"), "text/plain", json.RawMessage(`{bad`))
	assert.ErrorContains(t, err, "invalid processing config")

	_, err = Default{}.Process(context.Background(), failingReader{}, "text/plain", nil)
	assert.ErrorContains(t, err, "connection reset")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Default{}.Process(ctx, strings.NewReader("x"), "text/plain", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig(json.RawMessage("null"))
	require.NoError(t, err)
	assert.False(t, c.SkipTextContent)
}
