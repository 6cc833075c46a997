package schemas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schemafiles "github.com/jonathan/siteqa/schemas"
	"github.com/jonathan/siteqa/internal/types"
)

const personSchema = `{
	"type": "object",
	"required": ["name", "age"],
	"properties": {
		"name": {"type": "string"},
		"age": {"type": "integer", "minimum": 0},
		"tags": {"type": "array", "items": {"type": "string"}}
	}
}`

func TestValidateJSONString_Valid(t *testing.T) {
	err := ValidateJSONString(personSchema, `{"name": "Ada", "age": 36, "tags": ["math"]}`)
	assert.NoError(t, err)
}

func TestValidateJSONString_Invalid(t *testing.T) {
	err := ValidateJSONString(personSchema, `{"name": 7, "tags": [1]}`)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	fields := make([]string, 0, len(validationErr.Errors))
	for _, fe := range validationErr.Errors {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "(root)")
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "tags.0")
}

func TestValidateJSONString_MalformedJSON(t *testing.T) {
	err := ValidateJSONString(personSchema, `{"name": `)
	require.Error(t, err)
	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Schema: "x.schema.json",
		Errors: []FieldError{
			{Field: "name", Message: "is required"},
			{Field: "age", Message: "must be integer"},
		},
	}
	msg := err.Error()
	assert.Contains(t, msg, "x.schema.json")
	assert.Contains(t, msg, "1. name: is required")
	assert.Contains(t, msg, "2. age: must be integer")
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("nope.schema.json", `{}`)
	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestValidate_ChunkSnapshot(t *testing.T) {
	valid := `{"version": 1, "dimension": 2, "chunks": [{
		"text": "hello", "tokens": 1, "url": "https://a.com", "chunk_id": 0, "content_type": "text",
		"metadata": {"domain": "a.com", "depth": 0}, "embedding": [0.5, 1]
	}]}`
	assert.NoError(t, Validate(schemafiles.ChunkSnapshot, valid))

	missingEmbedding := `{"version": 1, "dimension": 2, "chunks": [{
		"text": "hello", "tokens": 1, "url": "https://a.com", "chunk_id": 0, "content_type": "text", "metadata": {}
	}]}`
	err := Validate(schemafiles.ChunkSnapshot, missingEmbedding)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, schemafiles.ChunkSnapshot, validationErr.Schema)
}

func TestValidateValue_CrawlResult(t *testing.T) {
	result := &types.CrawlResult{
		Pages: []*types.PageRecord{{
			URL:         "https://a.com",
			Title:       "A",
			Content:     "hello",
			ContentType: types.ContentTypeText,
			Links:       types.EmptyLinkSet(),
			Success:     true,
		}},
		Structure: &types.SiteStructure{
			Domain:            "a.com",
			StartURL:          "https://a.com",
			TotalPages:        1,
			ContentTypes:      []string{"text"},
			ExternalDomains:   []string{},
			APIEndpoints:      []string{},
			ImageURLs:         []string{},
			DepthDistribution: map[int]int{0: 1},
			Sitemap:           []types.SitemapEntry{{URL: "https://a.com", Depth: 0, ContentType: "text", Success: true}},
		},
		Success:   true,
		ScrapedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	assert.NoError(t, ValidateValue(schemafiles.CrawlResult, result))

	result.Pages[0].ContentType = "video"
	assert.Error(t, ValidateValue(schemafiles.CrawlResult, result))
}
