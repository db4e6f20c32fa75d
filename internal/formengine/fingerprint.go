// Package formengine implements the form engine (C4): fingerprinting pages
// by their semantic shape, looking up a matching fill pattern, and running
// the autofill algorithm against it.
package formengine

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Field describes one input the fingerprint is computed over.
type Field struct {
	Label       string
	InputType   string
	Placeholder string
}

// Page is the semantic shape of a form page the fingerprint is derived
// from: domain, path, and its fields, deliberately excluding anything
// cosmetic (styling, DOM nesting, element ids) so two pages with
// cosmetically different DOMs but identical semantic fields collide
// intentionally (§4.4).
type Page struct {
	Domain string
	Path   string
	Fields []Field
}

// Fingerprint computes a stable hash of (domain, path, form labels, input
// types, placeholder text). Fields are sorted before hashing so field
// declaration order never changes the fingerprint.
func Fingerprint(page Page) string {
	fields := make([]Field, len(page.Fields))
	copy(fields, page.Fields)
	sort.Slice(fields, func(i, j int) bool {
		return fieldKey(fields[i]) < fieldKey(fields[j])
	})

	var sb strings.Builder
	sb.WriteString(page.Domain)
	sb.WriteByte('|')
	sb.WriteString(page.Path)
	for _, f := range fields {
		sb.WriteByte('|')
		sb.WriteString(fieldKey(f))
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

func fieldKey(f Field) string {
	return strings.ToLower(f.Label) + ":" + strings.ToLower(f.InputType) + ":" + strings.ToLower(f.Placeholder)
}
