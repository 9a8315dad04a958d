package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/studygen/internal/pkg/errors"
)

func TestParse_Markdown(t *testing.T) {
	src := "# Cells\n\nThe *mitochondria* is the\npowerhouse of the `cell`.\n\n- It produces ATP.\n- It has [two membranes](https://example.com).\n\n```\nATP = energy\n```\n"
	doc, err := Parse("bio.md", []byte(src))
	require.NoError(t, err)
	require.Equal(t, "Cells\n\nThe mitochondria is the powerhouse of the cell.\n\nIt produces ATP.\n\nIt has two membranes.\n\nATP = energy", doc.Text)
	require.Equal(t, "bio.md", doc.FileName)
}

func TestParse_PlainText(t *testing.T) {
	doc, err := Parse("notes.txt", []byte("\xef\xbb\xbfLine one.\nLine two."))
	require.NoError(t, err)
	require.Equal(t, "Line one.\nLine two.", doc.Text)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("scan.PDF", []byte("%PDF-1.4"))
	require.ErrorIs(t, err, appErr.ErrUnsupportedFile)
	_, err = Parse("photo.jpg", nil)
	require.ErrorIs(t, err, appErr.ErrUnsupportedFile)
	_, err = Parse("blob.bin", []byte{0xff, 0xfe, 0x00})
	require.ErrorIs(t, err, appErr.ErrUnsupportedFile)
	_, err = Parse("empty.txt", []byte("  \n "))
	require.ErrorIs(t, err, appErr.ErrEmptyContent)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chapter.md")
	require.NoError(t, os.WriteFile(path, []byte("## Intro\n\nPlants need light."), 0o644))
	doc, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "chapter.md", doc.FileName)
	require.Equal(t, "Intro\n\nPlants need light.", doc.Text)

	_, err = LoadFile(filepath.Join(t.TempDir(), "slides.pdf"))
	require.ErrorIs(t, err, appErr.ErrUnsupportedFile)
}
