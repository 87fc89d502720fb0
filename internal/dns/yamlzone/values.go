package yamlzone

import (
	"fmt"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

type fieldKind int

const (
	fieldText fieldKind = iota
	fieldNumber
	fieldQuoted
	fieldUpperHex
)

// field is one rdata field of a structured value, in wire order.
type field struct {
	key     string
	kind    fieldKind
	aliases []string
}

// structured lists the record types whose octodns values are mappings. The
// fields render to the same rdata text a master file parser produces, e.g.
// {preference: 10, exchange: mx.example.com.} → "10 mx.example.com.".
var structured = map[string][]field{
	"MX": {
		{key: "preference", kind: fieldNumber, aliases: []string{"priority"}},
		{key: "exchange", kind: fieldText, aliases: []string{"value"}},
	},
	"SRV": {
		{key: "priority", kind: fieldNumber},
		{key: "weight", kind: fieldNumber},
		{key: "port", kind: fieldNumber},
		{key: "target", kind: fieldText},
	},
	"CAA": {
		{key: "flags", kind: fieldNumber},
		{key: "tag", kind: fieldText},
		{key: "value", kind: fieldQuoted},
	},
	"SSHFP": {
		{key: "algorithm", kind: fieldNumber},
		{key: "fingerprint_type", kind: fieldNumber},
		{key: "fingerprint", kind: fieldUpperHex},
	},
	"TLSA": {
		{key: "certificate_usage", kind: fieldNumber},
		{key: "selector", kind: fieldNumber},
		{key: "matching_type", kind: fieldNumber},
		{key: "certificate_association_data", kind: fieldText},
	},
	"NAPTR": {
		{key: "order", kind: fieldNumber},
		{key: "preference", kind: fieldNumber},
		{key: "flags", kind: fieldQuoted},
		{key: "service", kind: fieldQuoted},
		{key: "regexp", kind: fieldQuoted},
		{key: "replacement", kind: fieldText},
	},
}

// isTXT reports whether values of rtype use octodns' escaped semicolons.
func isTXT(rtype string) bool {
	return rtype == "TXT" || rtype == "SPF"
}

// decodeValues turns the value and values nodes of an entry into rdata strings.
func decodeValues(rtype string, value, values *yaml.Node) ([]string, error) {
	var nodes []*yaml.Node
	if value.Kind != 0 {
		nodes = append(nodes, value)
	}
	switch values.Kind {
	case 0:
	case yaml.SequenceNode:
		nodes = append(nodes, values.Content...)
	default:
		nodes = append(nodes, values)
	}

	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		v, err := decodeValue(rtype, n)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeValue(rtype string, n *yaml.Node) (string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if isTXT(rtype) {
			return strings.ReplaceAll(n.Value, `\;`, ";"), nil
		}
		return n.Value, nil
	case yaml.MappingNode:
		fields, ok := structured[rtype]
		if !ok {
			return "", fmt.Errorf("line %d: %s values cannot be mappings", n.Line, rtype)
		}
		return renderFields(fields, n)
	default:
		return "", fmt.Errorf("line %d: unsupported %s value", n.Line, rtype)
	}
}

func renderFields(fields []field, n *yaml.Node) (string, error) {
	m := make(map[string]string, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return "", fmt.Errorf("line %d: field %q must be a scalar", v.Line, k.Value)
		}
		m[k.Value] = v.Value
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		v, ok := m[f.key]
		for _, alias := range f.aliases {
			if ok {
				break
			}
			v, ok = m[alias]
		}
		if !ok {
			return "", fmt.Errorf("line %d: missing field %q", n.Line, f.key)
		}
		switch f.kind {
		case fieldNumber:
			if _, err := strconv.ParseUint(v, 10, 16); err != nil {
				return "", fmt.Errorf("line %d: field %q: %w", n.Line, f.key, err)
			}
		case fieldQuoted:
			v = quote(v)
		case fieldUpperHex:
			v = strings.ToUpper(v)
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, " "), nil
}

// encodeValue renders an rdata string the way decodeValue reads it back:
// a mapping for structured types, a string otherwise.
func encodeValue(rtype, v string) any {
	if isTXT(rtype) {
		return strings.ReplaceAll(v, ";", `\;`)
	}
	fields, ok := structured[rtype]
	if !ok {
		return v
	}
	tokens, ok := splitRData(v)
	if !ok || len(tokens) != len(fields) {
		return v
	}
	m := make(map[string]any, len(fields))
	for i, f := range fields {
		tok := tokens[i]
		switch f.kind {
		case fieldNumber:
			n, err := strconv.Atoi(tok)
			if err != nil {
				return v
			}
			m[f.key] = n
		case fieldQuoted:
			s, ok := unquote(tok)
			if !ok {
				return v
			}
			m[f.key] = s
		default:
			m[f.key] = tok
		}
	}
	return m
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func unquote(s string) (string, bool) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", false
	}
	s = s[1 : len(s)-1]
	s = strings.ReplaceAll(s, `\"`, `"`)
	return strings.ReplaceAll(s, `\\`, `\`), true
}

// splitRData splits rdata text on blanks, keeping quoted strings whole.
func splitRData(s string) ([]string, bool) {
	var tokens []string
	var cur strings.Builder
	inQuote, escaped := false, false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case inQuote && r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
		case r == ' ' && !inQuote:
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteRune(r)
	}
	if inQuote {
		return nil, false
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens, true
}
