package nodetype

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/j0nc0x/hdamanager/internal/version"
)

func newVersion(t *testing.T, full, path string, writable bool) *NodeTypeVersion {
	t.Helper()
	name, err := ParseName(full)
	require.NoError(t, err)
	return &NodeTypeVersion{
		Name:     name,
		Category: "Lop",
		Path:     path,
		Writable: writable,
	}
}

func TestAddVersionOrdering(t *testing.T) {
	nt := NewNodeType("rebellion.pipeline", "amazinghda", "Lop")

	for _, full := range []string{
		"rebellion.pipeline::amazinghda::1.0.0",
		"rebellion.pipeline::amazinghda::2.1.0",
		"rebellion.pipeline::amazinghda::1.1.0",
	} {
		require.NoError(t, nt.AddVersion(newVersion(t, full, "/pkg/"+full, false)))
	}

	versions := nt.Versions()
	require.Len(t, versions, 3)
	require.Equal(t, version.MustParse("2.1.0"), versions[0].Name.Version)
	require.Equal(t, version.MustParse("1.1.0"), versions[1].Name.Version)
	require.Equal(t, version.MustParse("1.0.0"), versions[2].Name.Version)

	max, ok := nt.MaxVersion()
	require.True(t, ok)
	require.Equal(t, version.MustParse("2.1.0"), max)
}

func TestAddVersionDuplicate(t *testing.T) {
	nt := NewNodeType("rebellion.pipeline", "amazinghda", "Lop")

	require.NoError(t, nt.AddVersion(newVersion(t, "rebellion.pipeline::amazinghda::1.0.0", "/a", false)))
	err := nt.AddVersion(newVersion(t, "rebellion.pipeline::amazinghda::1.0.0", "/b", false))
	require.ErrorIs(t, err, ErrDuplicateVersion)
}

func TestEditableShadowsPublished(t *testing.T) {
	nt := NewNodeType("rebellion.pipeline", "amazinghda", "Lop")

	require.NoError(t, nt.AddVersion(newVersion(t, "rebellion.pipeline::amazinghda::1.0.0", "/pkg/a.hda", false)))
	// The editable copy of the same version coexists with the published one.
	require.NoError(t, nt.AddVersion(newVersion(t, "rebellion.pipeline::amazinghda::1.0.0", "/edit/a.hda", true)))

	require.Equal(t, "/pkg/a.hda", nt.Latest().Path)
	require.Equal(t, "/edit/a.hda", nt.Editable().Path)

	// Only one editable checkout per node type.
	err := nt.AddVersion(newVersion(t, "rebellion.pipeline::amazinghda::2.0.0", "/edit/b.hda", true))
	require.ErrorIs(t, err, ErrEditableExists)
}

func TestRemoveVersion(t *testing.T) {
	nt := NewNodeType("rebellion.pipeline", "amazinghda", "Lop")
	require.NoError(t, nt.AddVersion(newVersion(t, "rebellion.pipeline::amazinghda::1.0.0", "/a", false)))

	require.NoError(t, nt.RemoveVersion("/a"))
	require.Zero(t, nt.NumVersions())
	require.ErrorIs(t, nt.RemoveVersion("/a"), ErrVersionNotFound)

	_, ok := nt.MaxVersion()
	require.False(t, ok)
	require.Nil(t, nt.Latest())
	require.Nil(t, nt.Editable())
}
