package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseASTFlatten(t *testing.T) {
	raw := `{
		"type": "root",
		"children": [
			{"type": "p", "children": ["La BCE annonce", {"type": "b", "children": ["une hausse"]}]},
			{"type": "p", "children": ["des taux directeurs."]}
		]
	}`

	node, err := ParseAST(raw)
	require.NoError(t, err)
	require.NotNil(t, node)

	assert.Equal(t, "la bce annonce une hausse des taux directeurs.", node.Flatten())
}

func TestParseASTEmpty(t *testing.T) {
	node, err := ParseAST("")
	require.NoError(t, err)
	assert.Nil(t, node)
	assert.Equal(t, "", node.Flatten())
}

func TestParseASTMalformed(t *testing.T) {
	_, err := ParseAST(`{"type": 42}`)
	assert.Error(t, err)

	_, err = ParseAST(`not json`)
	assert.Error(t, err)
}

func TestFlattenLeafOnly(t *testing.T) {
	node, err := ParseAST(`"Bonjour Le Monde"`)
	require.NoError(t, err)
	assert.Equal(t, "bonjour le monde", node.Flatten())
}

func TestFlattenDepthBounded(t *testing.T) {
	// Build a chain deeper than the traversal bound; the leaf at the bottom
	// must not be reached and must not crash the walk.
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString(`{"type":"div","children":[`)
	}
	sb.WriteString(`"profond"`)
	for i := 0; i < 200; i++ {
		sb.WriteString(`]}`)
	}

	node, err := ParseAST(sb.String())
	require.NoError(t, err)
	assert.Equal(t, "", node.Flatten())
}

func TestFlattenSkipsNilChildren(t *testing.T) {
	node := &ASTNode{Type: "root", Children: []*ASTNode{nil, {Text: "ok"}}}
	assert.Equal(t, "ok", node.Flatten())
}
