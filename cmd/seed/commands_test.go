package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBookFile(t *testing.T) {
	books, err := parseBookFile(strings.NewReader(`
books:
  - isbn: "978-0441013593"
    name: Dune
    category: Science Fiction
    quantity: 3
    price: 450
  - isbn: "978-0140449136"
    name: Crime and Punishment
    quantity: 1
    price: 299.5
`))
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "978-0441013593", books[0].ISBN)
	assert.Equal(t, 3, books[0].Quantity)
	assert.Equal(t, 299.5, books[1].Price)
	assert.Empty(t, books[1].Category)
}

func TestParseBookFile_Malformed(t *testing.T) {
	_, err := parseBookFile(strings.NewReader("books: [isbn"))
	assert.Error(t, err)
}

func TestMemberCmd_RequiresFlags(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"member", "--email", "a@example.com"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}

func TestBooksCmd_RequiresFile(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"books"})

	assert.Error(t, root.Execute())
}
