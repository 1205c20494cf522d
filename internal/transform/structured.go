package transform

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// encMode encodes payloads with Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding.
var encMode cbor.EncMode

// decMode decodes standard CBOR. Maps decode to map[any]any since payloads
// may use non-string keys.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("transform: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("transform: CBOR decoder initialization failed: " + err.Error())
	}
}

// decodeStructured unwraps a compressed CBOR payload and renders it as YAML.
func decodeStructured(data []byte) (string, Compression, error) {
	compression, ok := DetectCompression(data)
	if !ok {
		return "", 0, ErrNotStructured
	}

	payload, err := Decompress(data, compression)
	if err != nil {
		return "", 0, err
	}

	var value any
	if err := decMode.Unmarshal(payload, &value); err != nil {
		return "", 0, fmt.Errorf("decoding CBOR payload: %w", err)
	}

	text, err := renderYAML(value)
	if err != nil {
		return "", 0, err
	}
	return text, compression, nil
}

// encodeStructured parses YAML text back into a CBOR payload and compresses
// it.
func encodeStructured(text string, compression Compression) ([]byte, error) {
	value, err := parseYAML(text)
	if err != nil {
		return nil, err
	}

	payload, err := encMode.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding CBOR payload: %w", err)
	}
	return Compress(payload, compression)
}

func renderYAML(value any) (string, error) {
	node, err := toNode(value)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return "", fmt.Errorf("rendering YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("rendering YAML: %w", err)
	}
	return buf.String(), nil
}

func parseYAML(text string) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	return fromNode(doc.Content[0])
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

// toNode converts a decoded CBOR value to a YAML node with explicit tags so
// that byte strings and integer widths survive the trip through text.
func toNode(value any) (*yaml.Node, error) {
	switch v := value.(type) {
	case nil:
		return scalar("!!null", "null"), nil
	case bool:
		return scalar("!!bool", strconv.FormatBool(v)), nil
	case uint64:
		return scalar("!!int", strconv.FormatUint(v, 10)), nil
	case int64:
		return scalar("!!int", strconv.FormatInt(v, 10)), nil
	case float64:
		return scalar("!!float", formatFloat(v)), nil
	case string:
		return scalar("!!str", v), nil
	case []byte:
		return scalar("!!binary", base64.StdEncoding.EncodeToString(v)), nil

	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v {
			child, err := toNode(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, child)
		}
		return seq, nil

	case map[any]any:
		keys := make([]any, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprintf("%T:%v", keys[i], keys[i]) < fmt.Sprintf("%T:%v", keys[j], keys[j])
		})

		mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range keys {
			keyNode, err := toNode(k)
			if err != nil {
				return nil, err
			}
			valueNode, err := toNode(v[k])
			if err != nil {
				return nil, err
			}
			mapping.Content = append(mapping.Content, keyNode, valueNode)
		}
		return mapping, nil

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
}

// fromNode converts a YAML node back into a value the CBOR encoder accepts.
func fromNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return fromNode(n.Alias)

	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for _, child := range n.Content {
			item, err := fromNode(child)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil

	case yaml.MappingNode:
		m := make(map[any]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, err := fromNode(n.Content[i])
			if err != nil {
				return nil, err
			}
			if _, ok := key.([]byte); ok {
				return nil, fmt.Errorf("%w: binary map key at line %d", ErrUnsupportedValue, n.Content[i].Line)
			}
			value, err := fromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[key] = value
		}
		return m, nil

	case yaml.ScalarNode:
		return fromScalar(n)

	default:
		return nil, fmt.Errorf("%w: YAML node kind %d", ErrUnsupportedValue, n.Kind)
	}
}

func fromScalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return b, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			if i >= 0 {
				return uint64(i), nil
			}
			return i, nil
		}
		var u uint64
		if err := n.Decode(&u); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return u, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return f, nil
	case "!!binary":
		data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
		if err != nil {
			return nil, fmt.Errorf("line %d: decoding binary: %w", n.Line, err)
		}
		return data, nil
	default:
		return n.Value, nil
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
