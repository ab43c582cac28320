package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/issuetracker/internal/model"
	"github.com/nhle/issuetracker/internal/store"
	"github.com/nhle/issuetracker/tests/testutil"
)

func TestGetOrCreateLinkIsIdempotent(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	link := model.LinkReference{
		ExecutionID: 7,
		Name:        "Bitbucket issue",
		URL:         "https://bitbucket.org/ws1/repo1/issues/42",
		IsDefect:    true,
	}

	first, created, err := s.GetOrCreateLink(ctx, link)
	require.NoError(t, err)
	require.True(t, created)
	require.NotEmpty(t, first.ID)
	require.Equal(t, 7, first.ExecutionID)
	require.True(t, first.IsDefect)

	second, created, err := s.GetOrCreateLink(ctx, link)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	links, err := s.GetLinks(ctx, store.LinkFilter{})
	require.NoError(t, err)
	require.Len(t, links, 1)
}

func TestGetOrCreateLinkDistinguishesDefectFlag(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	url := "https://bitbucket.org/ws1/repo1/issues/1"
	_, created, err := s.GetOrCreateLink(ctx, model.LinkReference{ExecutionID: 1, URL: url, IsDefect: true})
	require.NoError(t, err)
	require.True(t, created)

	_, created, err = s.GetOrCreateLink(ctx, model.LinkReference{ExecutionID: 1, URL: url})
	require.NoError(t, err)
	require.True(t, created)

	defects, err := s.GetLinks(ctx, store.LinkFilter{DefectsOnly: true})
	require.NoError(t, err)
	require.Len(t, defects, 1)
	require.Equal(t, url, defects[0].URL)
}

func TestGetOrCreateLinkIgnoresCallerID(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	first, _, err := s.GetOrCreateLink(ctx, model.LinkReference{
		ExecutionID: 1,
		URL:         "https://bitbucket.org/ws1/repo1/issues/1",
		IsDefect:    true,
	})
	require.NoError(t, err)

	second, created, err := s.GetOrCreateLink(ctx, model.LinkReference{
		ID:          first.ID,
		ExecutionID: 2,
		URL:         "https://bitbucket.org/ws1/repo1/issues/2",
		IsDefect:    true,
	})
	require.NoError(t, err)
	require.True(t, created)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, 2, second.ExecutionID)

	links, err := s.GetLinks(ctx, store.LinkFilter{})
	require.NoError(t, err)
	require.Len(t, links, 2)
}

func TestGetOrCreateLinkRejectsEmptyURL(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, _, err := s.GetOrCreateLink(context.Background(), model.LinkReference{ExecutionID: 1})
	require.Error(t, err)
}

func TestGetLinksFiltersByExecution(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	for i, url := range []string{"https://a/issues/1", "https://a/issues/2", "https://a/issues/3"} {
		_, _, err := s.GetOrCreateLink(ctx, model.LinkReference{
			ExecutionID: i % 2,
			URL:         url,
			IsDefect:    true,
		})
		require.NoError(t, err)
	}

	execID := 0
	links, err := s.GetLinks(ctx, store.LinkFilter{ExecutionID: &execID})
	require.NoError(t, err)
	require.Len(t, links, 2)
	for _, l := range links {
		require.Equal(t, 0, l.ExecutionID)
	}

	page, err := s.GetLinks(ctx, store.LinkFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
}

func TestDeleteLink(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	link, _, err := s.GetOrCreateLink(ctx, model.LinkReference{ExecutionID: 3, URL: "https://a/issues/9"})
	require.NoError(t, err)

	got, err := s.GetLinkByID(ctx, link.ID)
	require.NoError(t, err)
	require.Equal(t, link.URL, got.URL)

	require.NoError(t, s.DeleteLink(ctx, link.ID))

	_, err = s.GetLinkByID(ctx, link.ID)
	require.ErrorIs(t, err, store.ErrLinkNotFound)

	err = s.DeleteLink(ctx, link.ID)
	require.ErrorIs(t, err, store.ErrLinkNotFound)
}
