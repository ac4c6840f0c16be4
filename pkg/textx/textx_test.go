package textx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	t.Parallel()
	in := "wr\x00ite a hai\x7fku\nabout autumn\t!"
	assert.Equal(t, "write a haiku\nabout autumn\t!", SanitizeText(in))
}

func TestSanitizeTextTrims(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "hello", SanitizeText("  hello \n"))
}

func TestSnippet(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abc", Snippet("abc", 5))
	assert.Equal(t, "abcde...", Snippet("abcdefgh", 5))
}
