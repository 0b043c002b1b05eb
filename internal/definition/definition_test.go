package definition

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/j0nc0x/hdamanager/internal/version"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCanonical(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Lop_rebellion.pipeline_sgreference.hda", `
name: rebellion.pipeline::sgreference::1.2.0
category: Lop
description: ShotGrid reference loader
payload: opaque-node-data
`)

	f, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, "rebellion.pipeline", f.Name.Namespace)
	require.Equal(t, "sgreference", f.Name.Name)
	require.Equal(t, version.MustParse("1.2.0"), f.Name.Version)
	require.Equal(t, "Lop", f.Definition.Category)
	require.Empty(t, f.Warnings)
}

func TestReadFilenameMismatchWarns(t *testing.T) {
	dir := t.TempDir()
	// Filename says "oldname"; embedded metadata says "sgreference".
	path := writeFile(t, dir, "Lop_rebellion.pipeline_oldname.hda", `
name: rebellion.pipeline::sgreference::2.0.0
category: Lop
`)

	f, err := Read(path)
	require.NoError(t, err)
	// Embedded metadata is authoritative.
	require.Equal(t, "sgreference", f.Name.Name)
	require.Equal(t, version.MustParse("2.0.0"), f.Name.Version)
	require.Len(t, f.Warnings, 1)
	require.Contains(t, f.Warnings[0], "disagrees")
}

func TestReadNonCanonicalFilenameWarns(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "scratch.hda", `
name: rebellion.show::scatter::0.1.0
category: Sop
`)

	f, err := Read(path)
	require.NoError(t, err)
	require.Len(t, f.Warnings, 1)
}

func TestReadParseErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{name: "not yaml", content: "::: {{{"},
		{name: "bad type name", content: "name: not-a-node-type\ncategory: Lop\n"},
		{name: "missing category", content: "name: rebellion.show::scatter::0.1.0\n"},
		{name: "bad version", content: "name: rebellion.show::scatter::zzz\ncategory: Sop\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "Sop_rebellion.show_scatter.hda", tt.content)
			_, err := Read(path)
			require.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.hda"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrParse)
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Lop_rebellion.pipeline_sgreference.hda")

	def := Definition{
		TypeName: "rebellion.pipeline::sgreference::1.0.0",
		Category: "Lop",
		Payload:  "payload-bytes",
	}
	require.NoError(t, Write(path, def))

	f, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, def, f.Definition)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
