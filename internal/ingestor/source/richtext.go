package source

import (
	"encoding/json"
	"strings"
)

// maxASTDepth bounds flattening recursion; article bodies from the remote
// site are shallow, anything deeper is treated as garbage.
const maxASTDepth = 64

// ASTNode is one node of a rich-text article body. A node is either a text
// leaf or a typed container with children.
type ASTNode struct {
	Text     string
	Type     string
	Children []*ASTNode
}

// UnmarshalJSON accepts either a bare JSON string (text leaf) or an object
// with "type" and "children".
func (n *ASTNode) UnmarshalJSON(data []byte) error {
	var leaf string
	if err := json.Unmarshal(data, &leaf); err == nil {
		n.Text = leaf
		return nil
	}

	var node struct {
		Type     string     `json:"type"`
		Children []*ASTNode `json:"children"`
	}
	if err := json.Unmarshal(data, &node); err != nil {
		return err
	}
	n.Type = node.Type
	n.Children = node.Children
	return nil
}

// ParseAST decodes a serialized rich-text body.
func ParseAST(raw string) (*ASTNode, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var node ASTNode
	if err := json.Unmarshal([]byte(raw), &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// Flatten concatenates all text leaves depth-first into one lowercase string,
// leaves separated by a single space.
func (n *ASTNode) Flatten() string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	n.flatten(&sb, 0)
	return strings.ToLower(strings.TrimSpace(sb.String()))
}

func (n *ASTNode) flatten(sb *strings.Builder, depth int) {
	if depth > maxASTDepth {
		return
	}
	if n.Text != "" {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(n.Text)
		return
	}
	for _, child := range n.Children {
		if child == nil {
			continue
		}
		child.flatten(sb, depth+1)
	}
}
