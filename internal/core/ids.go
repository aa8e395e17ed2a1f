package core

import (
	"strconv"
	"strings"
)

// IDParts are the structured inputs of a synthesized transaction id.
type IDParts struct {
	Source    Source
	ParentKey string
	Ordinal   int
}

// DeriveID builds the fallback id for a native record that lacks one.
//
// The result has the shape "<source>-<parentKey>-<ordinal>". Hyphens and
// percent signs inside the parent key are percent-encoded, so the last two
// separators are always unambiguous and distinct inputs never collide.
func DeriveID(p IDParts) string {
	var b strings.Builder
	b.WriteString(string(p.Source))
	b.WriteByte('-')
	b.WriteString(escapeKey(p.ParentKey))
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(p.Ordinal))
	return b.String()
}

// ParseDerivedID reverses DeriveID. ok is false for ids not produced by it.
func ParseDerivedID(id string) (IDParts, bool) {
	first := strings.IndexByte(id, '-')
	last := strings.LastIndexByte(id, '-')
	if first < 0 || last <= first {
		return IDParts{}, false
	}
	src := Source(id[:first])
	if !src.IsValid() {
		return IDParts{}, false
	}
	ord, err := strconv.Atoi(id[last+1:])
	if err != nil || ord < 0 {
		return IDParts{}, false
	}
	key, ok := unescapeKey(id[first+1 : last])
	if !ok {
		return IDParts{}, false
	}
	return IDParts{Source: src, ParentKey: key, Ordinal: ord}, true
}

func escapeKey(s string) string {
	if !strings.ContainsAny(s, "-%") {
		return s
	}
	r := strings.NewReplacer("%", "%25", "-", "%2D")
	return r.Replace(s)
}

func unescapeKey(s string) (string, bool) {
	if strings.Contains(s, "-") {
		return "", false
	}
	if !strings.Contains(s, "%") {
		return s, true
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			b.WriteByte(s[i])
			continue
		}
		if i+2 >= len(s) {
			return "", false
		}
		switch s[i+1 : i+3] {
		case "25":
			b.WriteByte('%')
		case "2D":
			b.WriteByte('-')
		default:
			return "", false
		}
		i += 2
	}
	return b.String(), true
}
