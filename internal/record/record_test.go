package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{name: "already normalized", email: "a@x.com", expected: "a@x.com"},
		{name: "mixed case", email: "Jane.Doe@Example.COM", expected: "jane.doe@example.com"},
		{name: "surrounding whitespace", email: "  a@x.com\t", expected: "a@x.com"},
		{name: "empty", email: "", expected: ""},
		{name: "whitespace only", email: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Key(tt.email))
		})
	}
}

func TestNameFromEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{name: "dot separator", email: "jane.doe@example.com", expected: "Jane Doe"},
		{name: "underscore separator", email: "john_smith@x.com", expected: "John Smith"},
		{name: "hyphen separator", email: "mary-ann@x.com", expected: "Mary Ann"},
		{name: "trailing digits stripped", email: "jane.doe99@x.com", expected: "Jane Doe"},
		{name: "single word", email: "bob@x.com", expected: "Bob"},
		{name: "uppercase local part", email: "JANE.DOE@x.com", expected: "Jane Doe"},
		{name: "no at sign", email: "jane.doe", expected: "Jane Doe"},
		{name: "empty email", email: "", expected: ""},
		{name: "digits only local part", email: "12345@x.com", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NameFromEmail(tt.email))
		})
	}
}

func TestRecordGetTrims(t *testing.T) {
	r := Record{"Email": "  a@x.com ", "Name": "Jane"}
	assert.Equal(t, "a@x.com", r.Get("Email"))
	assert.Equal(t, "", r.Get("Status"))
}

func TestRecordClone(t *testing.T) {
	r := Record{"Email": "a@x.com"}
	c := r.Clone()
	c["Email"] = "b@x.com"
	assert.Equal(t, "a@x.com", r["Email"])
}
