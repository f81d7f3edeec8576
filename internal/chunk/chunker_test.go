package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raildex/retrieval-engine/internal/unit"
)

func smallModel() *unit.ExtractedUnit {
	return &unit.ExtractedUnit{
		Identifier: "User",
		Type:       "model",
		FilePath:   "app/models/user.rb",
		SourceCode: "class User < ApplicationRecord\nend\n",
	}
}

func largeModel() *unit.ExtractedUnit {
	lines := make([]string, 150)
	for i := range lines {
		lines[i] = "  # line"
	}
	return &unit.ExtractedUnit{
		Identifier: "Order",
		Type:       "model",
		FilePath:   "app/models/order.rb",
		SourceCode: strings.Join(lines, "\n"),
		Metadata: map[string]any{
			"summary":      "class Order < ApplicationRecord",
			"associations": "belongs_to :user\nhas_many :line_items",
			"callbacks":    "before_save :set_total",
			"validations":  "validates :total, presence: true",
			"scopes":       "scope :recent, -> { order(created_at: :desc) }",
			"concerns":     []string{"Sluggable"},
			"concern:Sluggable": "include Sluggable",
		},
	}
}

func TestChunker_Chunk_ModelPolicy(t *testing.T) {
	t.Run("small model yields a single whole chunk", func(t *testing.T) {
		c := NewChunker(0)
		chunks := c.Chunk(smallModel())
		require.Len(t, chunks, 1)
		assert.Equal(t, unit.ChunkKindWhole, chunks[0].ChunkKind)
		assert.Equal(t, "User::whole", chunks[0].ChunkID)
	})

	t.Run("large model yields section chunks plus per-concern chunk", func(t *testing.T) {
		c := NewChunker(0)
		chunks := c.Chunk(largeModel())

		kinds := make(map[unit.ChunkKind]int)
		for _, ch := range chunks {
			kinds[ch.ChunkKind]++
		}
		assert.Equal(t, 1, kinds[unit.ChunkKindSummary])
		assert.Equal(t, 1, kinds[unit.ChunkKindAssociations])
		assert.Equal(t, 1, kinds[unit.ChunkKindCallbacks])
		assert.Equal(t, 1, kinds[unit.ChunkKindValidations])
		assert.Equal(t, 1, kinds[unit.ChunkKindScopes])
		assert.Equal(t, 1, kinds[unit.ChunkKindConcern])
	})

	t.Run("chunk stability: re-chunking unchanged input yields identical ids and hashes", func(t *testing.T) {
		c := NewChunker(0)
		u := largeModel()
		first := c.Chunk(u)
		second := c.Chunk(u)
		require.Equal(t, len(first), len(second))
		for i := range first {
			assert.Equal(t, first[i].ChunkID, second[i].ChunkID)
			assert.Equal(t, first[i].ContentHash, second[i].ContentHash)
		}
	})
}

func TestChunker_Chunk_ControllerPolicy(t *testing.T) {
	t.Run("few actions yields whole chunk", func(t *testing.T) {
		u := &unit.ExtractedUnit{
			Identifier: "UsersController",
			Type:       "controller",
			SourceCode: "class UsersController; end",
			Metadata:   map[string]any{"actions": []string{"index", "show"}},
		}
		chunks := NewChunker(0).Chunk(u)
		require.Len(t, chunks, 1)
		assert.Equal(t, unit.ChunkKindWhole, chunks[0].ChunkKind)
	})

	t.Run("five or more actions yields one chunk per action", func(t *testing.T) {
		u := &unit.ExtractedUnit{
			Identifier: "PostsController",
			Type:       "controller",
			SourceCode: "class PostsController; end",
			Metadata: map[string]any{
				"actions":          []string{"index", "show", "create", "update", "destroy"},
				"route:index":      "GET /posts",
				"action:index":     "def index; end",
				"filters:show":     "before_action :set_post",
				"action:show":      "def show; end",
				"action:create":    "def create; end",
				"action:update":    "def update; end",
				"action:destroy":   "def destroy; end",
			},
		}
		chunks := NewChunker(0).Chunk(u)
		require.Len(t, chunks, 5)
		for _, ch := range chunks {
			assert.Equal(t, unit.ChunkKindAction, ch.ChunkKind)
		}
	})
}

func TestChunker_Chunk_GraphQLPolicy(t *testing.T) {
	fields := make([]string, 12)
	for i := range fields {
		fields[i] = "field"
	}
	u := &unit.ExtractedUnit{
		Identifier: "UserType",
		Type:       "graphql_type",
		SourceCode: "type User { id: ID! }",
		Metadata: map[string]any{
			"summary":   "type User",
			"fields":    fields,
			"arguments": "none",
		},
	}
	chunks := NewChunker(0).Chunk(u)

	var summaries, groups int
	for _, ch := range chunks {
		if ch.ChunkKind == unit.ChunkKindSummary {
			summaries++
		}
		if ch.ChunkKind == unit.ChunkKindFieldGroup {
			groups++
		}
	}
	assert.Equal(t, 1, summaries)
	// 12 fields -> groups of 10 -> 2 field groups, plus one for arguments
	assert.Equal(t, 3, groups)
}

func TestChunker_EnforceCeiling_TruncatesFromMiddle(t *testing.T) {
	c := NewChunker(10) // tiny ceiling to force truncation
	u := &unit.ExtractedUnit{
		Identifier: "Big",
		Type:       "service",
		SourceCode: strings.Repeat("x", 200),
	}
	chunks := c.Chunk(u)
	require.Len(t, chunks, 1)
	assert.Less(t, len(chunks[0].Content), 200)
	assert.Contains(t, chunks[0].Content, "truncated")
}

func TestChunker_DefaultPolicy_Whole(t *testing.T) {
	u := &unit.ExtractedUnit{
		Identifier: "BillingService",
		Type:       "service",
		SourceCode: "class BillingService; end",
	}
	chunks := NewChunker(0).Chunk(u)
	require.Len(t, chunks, 1)
	assert.Equal(t, unit.ChunkKindWhole, chunks[0].ChunkKind)
	assert.Equal(t, unit.HashContent(u.SourceCode), chunks[0].ContentHash)
}
