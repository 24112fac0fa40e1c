package document

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/reoring/ciri/internal/pointer"
)

// DecodeYAML reads the first document of a YAML stream. Mappings become
// map[string]any, integers int64 and floats float64. Duplicate keys are
// reported with their positions.
func DecodeYAML(r io.Reader) (map[string]any, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("document: empty YAML input: %w", io.ErrUnexpectedEOF)
		}
		return nil, err
	}
	v, err := yamlNodeValue(&root, "/")
	if err != nil {
		return nil, err
	}
	return asObject(v)
}

func yamlNodeValue(n *yaml.Node, path string) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlNodeValue(n.Content[0], path)
	case yaml.AliasNode:
		return yamlNodeValue(n.Alias, path)
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		first := make(map[string]*yaml.Node, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			key := k.Value
			p := pointer.Child(path, key)
			if _, dup := first[key]; dup {
				return nil, &DuplicateKeyError{Path: p, Key: key, Line: k.Line, Col: k.Column}
			}
			first[key] = k
			val, err := yamlNodeValue(v, p)
			if err != nil {
				return nil, err
			}
			m[key] = val
		}
		return m, nil
	case yaml.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for i, c := range n.Content {
			v, err := yamlNodeValue(c, pointer.Child(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.ScalarNode:
		return yamlScalar(n), nil
	}
	return nil, nil
}

func yamlScalar(n *yaml.Node) any {
	switch n.ShortTag() {
	case "!!null":
		return nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return b
		}
	case "!!int":
		if i, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
			return i
		}
		var i int64
		if err := n.Decode(&i); err == nil {
			return i
		}
	case "!!float":
		var f float64
		if err := n.Decode(&f); err == nil {
			return f
		}
	}
	return n.Value
}

// EncodeYAML writes v as YAML with two-space indentation.
func EncodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Plain(v)); err != nil {
		return err
	}
	return enc.Close()
}

// FromYAMLNode converts an already parsed node with the same rules as
// DecodeYAML. Non-object values are allowed.
func FromYAMLNode(n *yaml.Node) (any, error) {
	if n == nil {
		return nil, nil
	}
	return yamlNodeValue(n, "/")
}
