package formengine_test

import (
	"testing"

	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/formengine"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_StableAcrossFieldOrder(t *testing.T) {
	a := formengine.Page{
		Domain: "example.com",
		Path:   "/login",
		Fields: []formengine.Field{
			{Label: "Email", InputType: "email"},
			{Label: "Password", InputType: "password"},
		},
	}
	b := formengine.Page{
		Domain: "example.com",
		Path:   "/login",
		Fields: []formengine.Field{
			{Label: "Password", InputType: "password"},
			{Label: "Email", InputType: "email"},
		},
	}

	assert.Equal(t, formengine.Fingerprint(a), formengine.Fingerprint(b))
}

func TestFingerprint_IgnoresCosmeticCasing(t *testing.T) {
	a := formengine.Page{Domain: "example.com", Fields: []formengine.Field{{Label: "EMAIL", InputType: "EMAIL"}}}
	b := formengine.Page{Domain: "example.com", Fields: []formengine.Field{{Label: "email", InputType: "email"}}}

	assert.Equal(t, formengine.Fingerprint(a), formengine.Fingerprint(b))
}

func TestFingerprint_DiffersAcrossDomain(t *testing.T) {
	a := formengine.Page{Domain: "a.com", Fields: []formengine.Field{{Label: "Email"}}}
	b := formengine.Page{Domain: "b.com", Fields: []formengine.Field{{Label: "Email"}}}

	assert.NotEqual(t, formengine.Fingerprint(a), formengine.Fingerprint(b))
}
