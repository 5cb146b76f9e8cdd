package frontmatter

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Serialize renders fields as YAML without delimiters. Map keys are sorted at
// every level so equal maps always produce equal bytes. An empty map yields an
// empty slice.
func Serialize(fields map[string]any) ([]byte, error) {
	if len(fields) == 0 {
		return []byte{}, nil
	}
	node, err := mappingNode(fields)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func mappingNode(m map[string]any) (*yaml.Node, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		v, err := valueNode(m[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out.Content = append(out.Content, scalar("!!str", k), v)
	}
	return out, nil
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func valueNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil:
		return scalar("!!null", "null"), nil
	case string:
		return scalar("!!str", t), nil
	case bool:
		return scalar("!!bool", strconv.FormatBool(t)), nil
	case int:
		return scalar("!!int", strconv.Itoa(t)), nil
	case int64:
		return scalar("!!int", strconv.FormatInt(t, 10)), nil
	case uint64:
		return scalar("!!int", strconv.FormatUint(t, 10)), nil
	case float64:
		return scalar("!!float", strconv.FormatFloat(t, 'g', -1, 64)), nil
	case time.Time:
		return scalar("!!timestamp", t.Format(time.RFC3339)), nil
	case map[string]any:
		return mappingNode(t)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = val
		}
		return mappingNode(m)
	case []string:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, s := range t {
			seq.Content = append(seq.Content, scalar("!!str", s))
		}
		return seq, nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range t {
			n, err := valueNode(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	default:
		var n yaml.Node
		if err := n.Encode(v); err != nil {
			return nil, err
		}
		return &n, nil
	}
}
