package nav

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorkyrobot/cftp/internal/listing"
	"github.com/dorkyrobot/cftp/internal/state"
	"github.com/dorkyrobot/cftp/internal/store"
	"github.com/dorkyrobot/cftp/internal/store/memory"
	"github.com/dorkyrobot/cftp/internal/vpath"
)

const fixtureYAML = `
regions:
  DFW:
    private_network: true
    containers:
      photos:
        - key: readme.txt
          body: hello
        - key: 2023/a.jpg
          body: aaaa
        - key: 2024/b.jpg
          body: bb
        - key: 2024/raw/c.cr2
          body: c
        - key: cold.bin
          body: zz
          storage_class: GLACIER
        - key: thawed.bin
          body: warm
          storage_class: GLACIER
          restore_status: available
      empty: []
  ORD:
    containers:
      logs:
        - key: app.log
          body: line
`

func setup(t *testing.T, opts ...Option) (*Engine, *memory.Store) {
	t.Helper()
	s, err := memory.Parse([]byte(fixtureYAML), vpath.Default)
	require.NoError(t, err)
	return New(s, vpath.Default, opts...), s
}

func inRegion(t *testing.T, opts ...Option) (*Engine, *memory.Store) {
	t.Helper()
	e, s := setup(t, opts...)
	require.NoError(t, e.ChangeRegion(context.Background(), "DFW", false))
	s.ResetCalls()
	return e, s
}

func displayNames(entries []listing.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.DisplayName(vpath.Default)
	}
	return out
}

func TestChangeRegion(t *testing.T) {
	ctx := context.Background()
	e, _ := setup(t)

	require.NoError(t, e.ChangeRegion(ctx, "dfw", false))
	assert.Equal(t, "DFW", e.Location().Region)
	assert.Equal(t, "/", e.Location().Path())

	require.NoError(t, e.ChangeDirectory(ctx, "photos/2024"))
	require.NoError(t, e.ChangeRegion(ctx, "ORD", false))
	loc := e.Location()
	assert.Equal(t, "ORD", loc.Region)
	assert.Empty(t, loc.Container)
	assert.Empty(t, loc.Prefix)

	require.NoError(t, e.ChangeRegion(ctx, "", false))
	assert.Equal(t, state.New(vpath.Default), e.Location())
	assert.ErrorIs(t, e.ChangeDirectory(ctx, "logs"), ErrNoRegion)
}

func TestChangeRegionFailureKeepsLocation(t *testing.T) {
	ctx := context.Background()
	e, s := inRegion(t)
	require.NoError(t, e.ChangeDirectory(ctx, "photos/2024"))
	before := e.Location()

	err := e.ChangeRegion(ctx, "IAD", false)
	assert.ErrorIs(t, err, store.ErrNoSuchRegion)
	assert.Equal(t, before, e.Location())

	err = e.ChangeRegion(ctx, "ORD", true)
	assert.ErrorIs(t, err, store.ErrRegionUnreachable)
	assert.Equal(t, before, e.Location())

	boom := errors.New("connection refused")
	s.Fail("Connect", boom)
	err = e.ChangeRegion(ctx, "ORD", false)
	assert.ErrorIs(t, err, store.ErrRegionUnreachable)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, e.Location())

	s.Fail("Connect", &store.Error{Op: "Connect", Err: store.ErrAuthenticationFailed})
	err = e.ChangeRegion(ctx, "ORD", false)
	assert.True(t, store.IsAuthenticationFailed(err))
	assert.False(t, errors.Is(err, store.ErrRegionUnreachable))
	assert.Equal(t, before, e.Location())
}

func TestChangeRegionReusesConnection(t *testing.T) {
	ctx := context.Background()
	e, s := inRegion(t)
	require.NoError(t, e.ChangeRegion(ctx, "ORD", false))
	assert.Equal(t, 1, s.Calls("Connect"))

	s.ResetCalls()
	require.NoError(t, e.ChangeRegion(ctx, "dfw", false))
	assert.Equal(t, "DFW", e.Location().Region)
	assert.Zero(t, s.Calls("Connect"))
	assert.Zero(t, s.Calls("ListRegions"))

	// A different transport is a different connection.
	require.NoError(t, e.ChangeRegion(ctx, "DFW", true))
	assert.Equal(t, 1, s.Calls("Connect"))
	assert.True(t, e.Location().Secure)
}

func TestChangeContainer(t *testing.T) {
	ctx := context.Background()
	e, _ := setup(t)
	assert.ErrorIs(t, e.ChangeContainer(ctx, "photos"), ErrNoRegion)

	require.NoError(t, e.ChangeRegion(ctx, "DFW", false))
	assert.ErrorIs(t, e.ChangeContainer(ctx, "logs"), store.ErrNoSuchContainer)
	assert.Empty(t, e.Location().Container)

	require.NoError(t, e.ChangeContainer(ctx, "photos"))
	require.NoError(t, e.ChangePrefix("2024/raw"))
	assert.Equal(t, "/photos/2024/raw/", e.Location().Path())

	require.NoError(t, e.ChangePrefix(".."))
	assert.Equal(t, "2024", e.Location().Prefix)

	require.NoError(t, e.ChangeContainer(ctx, ""))
	assert.Equal(t, "/", e.Location().Path())
	assert.ErrorIs(t, e.ChangePrefix("x"), ErrNoContainer)
}

func TestChangeDirectory(t *testing.T) {
	ctx := context.Background()
	e, _ := inRegion(t)

	steps := []struct {
		input string
		path  string
	}{
		{"photos", "/photos/"},
		{"2024/raw/", "/photos/2024/raw/"},
		{"..", "/photos/2024/"},
		{"../2023", "/photos/2023/"},
		{"/photos/./2024//raw", "/photos/2024/raw/"},
		{"../../..", "/"},
		{"photos/not-there-yet", "/photos/not-there-yet/"},
		{"/empty", "/empty/"},
		{"", "/"},
	}
	for _, step := range steps {
		require.NoError(t, e.ChangeDirectory(ctx, step.input), step.input)
		assert.Equal(t, step.path, e.Location().Path(), step.input)
		assert.True(t, e.Location().Valid(), step.input)
	}
}

func TestChangeDirectoryFailureKeepsLocation(t *testing.T) {
	ctx := context.Background()
	e, s := inRegion(t)
	require.NoError(t, e.ChangeDirectory(ctx, "photos/2024"))
	before := e.Location()

	err := e.ChangeDirectory(ctx, "/photos/readme.txt")
	assert.ErrorIs(t, err, ErrNotADirectory)
	assert.Equal(t, before, e.Location())

	err = e.ChangeDirectory(ctx, "/nope/deep")
	assert.ErrorIs(t, err, store.ErrNoSuchContainer)
	assert.Equal(t, before, e.Location())

	boom := errors.New("timeout")
	s.Fail("ObjectAttrs", boom)
	err = e.ChangeDirectory(ctx, "raw")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, e.Location())

	// A trailing delimiter skips the object check entirely.
	require.NoError(t, e.ChangeDirectory(ctx, "raw/"))
	assert.Equal(t, "/photos/2024/raw/", e.Location().Path())
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	e, s := inRegion(t)

	target, err := e.Classify(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, KindRegion, target.Kind)

	target, err = e.Classify(ctx, "photos", "")
	require.NoError(t, err)
	assert.Equal(t, KindContainer, target.Kind)

	target, err = e.Classify(ctx, "photos", "2024/")
	require.NoError(t, err)
	assert.Equal(t, KindDirectory, target.Kind)
	assert.Zero(t, s.Calls("ObjectAttrs"))

	target, err = e.Classify(ctx, "photos", "2024")
	assert.ErrorIs(t, err, store.ErrObjectIsSubDirectory)
	assert.Equal(t, KindDirectory, target.Kind)

	target, err = e.Classify(ctx, "photos", "readme.txt")
	require.NoError(t, err)
	assert.Equal(t, KindObject, target.Kind)
	require.NotNil(t, target.Attrs)
	assert.Equal(t, uint64(5), target.Attrs.Size)

	_, err = e.Classify(ctx, "photos", "missing")
	assert.ErrorIs(t, err, store.ErrNoSuchObject)

	_, err = e.Classify(ctx, "nope", "readme.txt")
	assert.ErrorIs(t, err, store.ErrNoSuchContainer)
	assert.Equal(t, 3, s.Calls("ObjectAttrs"))
}

func TestListing(t *testing.T) {
	ctx := context.Background()

	for _, pageSize := range []int{1, 2, store.DefaultPageSize} {
		e, _ := inRegion(t, WithPageSize(pageSize))

		containers, err := e.Listing(ctx, "", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"empty", "photos"}, displayNames(containers))
		assert.True(t, containers[1].IsContainer)
		require.NotNil(t, containers[1].Count)
		assert.Equal(t, uint64(6), *containers[1].Count)

		root, err := e.Listing(ctx, "photos", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"2023/", "2024/", "cold.bin", "readme.txt", "thawed.bin"}, displayNames(root))
		assert.Nil(t, root[0].Size)

		sub, err := e.Listing(ctx, "photos", "2024")
		require.NoError(t, err)
		assert.Equal(t, []string{"raw/", "b.jpg"}, displayNames(sub))

		subDir, err := e.Listing(ctx, "photos", "2024/")
		require.NoError(t, err)
		assert.Equal(t, sub, subDir)

		single, err := e.Listing(ctx, "photos", "2024/b.jpg")
		require.NoError(t, err)
		require.Len(t, single, 1)
		assert.Equal(t, "b.jpg", single[0].Name)
		assert.Equal(t, uint64(2), *single[0].Size)

		none, err := e.Listing(ctx, "empty", "")
		require.NoError(t, err)
		assert.Empty(t, none)
	}
}

func TestListingErrors(t *testing.T) {
	ctx := context.Background()
	e, s := setup(t)

	_, err := e.Listing(ctx, "", "")
	assert.ErrorIs(t, err, ErrNoRegion)

	require.NoError(t, e.ChangeRegion(ctx, "DFW", false))
	_, err = e.Listing(ctx, "photos", "missing")
	assert.ErrorIs(t, err, store.ErrNoSuchObject)

	boom := errors.New("boom")
	s.Fail("ListPseudoDirectories", boom)
	_, err = e.Listing(ctx, "photos", "")
	assert.ErrorIs(t, err, boom)
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	e, _ := inRegion(t)

	rc, size, err := e.Fetch(ctx, "photos", "readme.txt")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, int64(5), size)

	rc, _, err = e.Fetch(ctx, "photos", "thawed.bin")
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	tests := []struct {
		name      string
		container string
		key       string
		want      error
	}{
		{"region", "", "", ErrNotAnObject},
		{"container", "photos", "", ErrNotAnObject},
		{"directory", "photos", "2024/", store.ErrObjectIsSubDirectory},
		{"implicit directory", "photos", "2024", store.ErrObjectIsSubDirectory},
		{"missing", "photos", "nope.txt", store.ErrNoSuchObject},
		{"archived", "photos", "cold.bin", store.ErrObjectArchived},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := e.Fetch(ctx, tt.container, tt.key)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestComplete(t *testing.T) {
	ctx := context.Background()

	e, _ := setup(t)
	got, err := e.Complete(ctx, "ph")
	require.NoError(t, err)
	assert.Nil(t, got)

	e, _ = inRegion(t)
	tests := []struct {
		partial string
		want    []string
	}{
		{"", []string{"empty/", "photos/"}},
		{"/", []string{"empty/", "photos/"}},
		{"ph", []string{"photos/"}},
		{"photos/", []string{"photos/2023/", "photos/2024/", "photos/cold.bin", "photos/readme.txt", "photos/thawed.bin"}},
		{"photos/20", []string{"photos/2023/", "photos/2024/"}},
		{"photos/2024/r", []string{"photos/2024/raw/"}},
		{"photos/zz", nil},
		{"..", nil},
	}
	for _, tt := range tests {
		got, err := e.Complete(ctx, tt.partial)
		require.NoError(t, err, tt.partial)
		assert.Equal(t, tt.want, got, tt.partial)
	}

	require.NoError(t, e.ChangeDirectory(ctx, "photos/2024"))
	got, err = e.Complete(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"raw/", "b.jpg"}, got)

	got, err = e.Complete(ctx, "../r")
	require.NoError(t, err)
	assert.Equal(t, []string{"../readme.txt"}, got)
}
