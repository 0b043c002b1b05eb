package history

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/j0nc0x/hdamanager/internal/nodetype"
	"github.com/j0nc0x/hdamanager/internal/version"
)

func mustName(t *testing.T, s string) nodetype.Name {
	t.Helper()
	n, err := nodetype.ParseName(s)
	require.NoError(t, err)
	return n
}

func TestAppendAndQuery(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	pred := version.MustParse("1.0.0")

	first := &Entry{
		Name:      mustName(t, "rebellion.pipeline::amazinghda::1.0.0"),
		Author:    "jcox",
		Comment:   "initial publish",
		Timestamp: time.Unix(1000, 0),
	}
	second := &Entry{
		Name:        mustName(t, "rebellion.pipeline::amazinghda::2.0.0"),
		Predecessor: &pred,
		Author:      "jcox",
		Comment:     "major rework",
		Timestamp:   time.Unix(2000, 0),
	}

	require.NoError(t, s.Append(ctx, first))
	require.NoError(t, s.Append(ctx, second))

	entries, err := s.Query(ctx, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	require.Equal(t, "2.0.0", entries[0].Name.Version.String())
	require.NotNil(t, entries[0].Predecessor)
	require.Equal(t, "1.0.0", entries[0].Predecessor.String())
	require.Equal(t, "1.0.0", entries[1].Name.Version.String())
	require.Nil(t, entries[1].Predecessor)

	// IDs were assigned.
	require.NotEmpty(t, entries[0].ID)
	require.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestQueryScopedToNodeType(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Append(ctx, &Entry{Name: mustName(t, "rebellion.pipeline::a::1.0.0"), Author: "x"}))
	require.NoError(t, s.Append(ctx, &Entry{Name: mustName(t, "rebellion.pipeline::b::1.0.0"), Author: "x"}))

	entries, err := s.Query(ctx, "rebellion.pipeline", "a")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = s.Query(ctx, "rebellion.show", "a")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestConcurrentAppendsSameKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	const writers = 8

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := &Entry{
				Name:      mustName(t, "rebellion.pipeline::amazinghda::1.0.0").WithVersion(version.Version{Major: 1, Minor: i, Patch: 0}),
				Author:    "racer",
				Timestamp: time.Unix(int64(1000+i), 0),
			}
			require.NoError(t, s.Append(ctx, e))
		}(i)
	}
	wg.Wait()

	entries, err := s.Query(ctx, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)
	require.Len(t, entries, writers)

	// Publish order equals timestamp order, newest first.
	for i := 1; i < len(entries); i++ {
		require.False(t, entries[i-1].Timestamp.Before(entries[i].Timestamp))
	}
}

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".history", "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
