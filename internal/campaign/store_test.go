package campaign

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"campaigner/internal/api"
	"campaigner/internal/session"
	"campaigner/internal/testing/fakeapi"
	"campaigner/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, platforms ...types.PlatformID) (*Store, *fakeapi.Server) {
	t.Helper()
	srv := fakeapi.New()
	srv.RequireSession = false
	t.Cleanup(srv.Close)

	client, err := api.NewClient(api.Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	if len(platforms) == 0 {
		platforms = []types.PlatformID{types.PlatformTwitter}
	}
	sc := session.NewContext(nil)
	require.NoError(t, sc.Establish(types.BrandProfile{CompanyName: "Acme", Platforms: platforms}))
	return NewStore(client, sc), srv
}

func TestSave_NothingToSave(t *testing.T) {
	s, srv := newTestStore(t)

	_, err := s.Save(context.Background(), nil, "eco bottles")
	assert.ErrorIs(t, err, types.ErrNothingToSave)

	_, err = s.Save(context.Background(), &types.ContentBundle{}, "eco bottles")
	assert.ErrorIs(t, err, types.ErrNothingToSave)

	assert.Equal(t, 0, srv.TotalCalls())
}

func TestSave_Unauthenticated(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	client, err := api.NewClient(api.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	s := NewStore(client, session.NewContext(nil))
	bundle := fakeapi.DefaultBundle("eco bottles")
	_, err = s.Save(context.Background(), &bundle, "eco bottles")
	assert.ErrorIs(t, err, types.ErrUnauthenticated)

	_, err = s.List(context.Background())
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
	assert.Equal(t, 0, srv.TotalCalls())
}

func TestSave_BuildsCampaign(t *testing.T) {
	s, srv := newTestStore(t, types.PlatformTwitter, types.PlatformLinkedIn)
	bundle := fakeapi.DefaultBundle("eco bottles")

	c, err := s.Save(context.Background(), &bundle, "eco bottles")
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "eco bottles", c.Title)
	assert.Equal(t, "eco bottles", c.Prompt)
	assert.Equal(t, bundle, c.Content)
	assert.False(t, c.CreatedAt.IsZero())
	assert.Equal(t, map[types.PlatformID]types.PublishState{
		types.PlatformTwitter:  types.NotStarted(),
		types.PlatformLinkedIn: types.NotStarted(),
	}, c.PublishStatus)
	assert.Equal(t, 1, srv.Calls(fakeapi.PathSaveCampaign))
}

func TestSave_TruncatesTitle(t *testing.T) {
	s, _ := newTestStore(t)
	prompt := strings.Repeat("é", 75)
	bundle := fakeapi.DefaultBundle("x")

	c, err := s.Save(context.Background(), &bundle, prompt)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", types.TitleMaxRunes), c.Title)
	assert.Equal(t, prompt, c.Prompt)
}

func TestSave_TitleAndPromptAreTrimmed(t *testing.T) {
	s, srv := newTestStore(t)
	bundle := fakeapi.DefaultBundle("x")
	prompt := "   " + strings.Repeat("a", 59) + "b tail  "

	c, err := s.Save(context.Background(), &bundle, prompt)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 59)+"b", c.Title)

	var sent api.SaveCampaignRequest
	require.NoError(t, json.Unmarshal(srv.LastBody(fakeapi.PathSaveCampaign), &sent))
	assert.Equal(t, strings.Repeat("a", 59)+"b", sent.Title)
	assert.Equal(t, strings.TrimSpace(prompt), sent.Prompt)
}

func TestSave_NotIdempotent(t *testing.T) {
	s, srv := newTestStore(t)
	bundle := fakeapi.DefaultBundle("eco bottles")

	first, err := s.Save(context.Background(), &bundle, "eco bottles")
	require.NoError(t, err)
	second, err := s.Save(context.Background(), &bundle, "eco bottles")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, srv.CampaignCount())
}

func TestSave_ConcurrentSavesAreIndependent(t *testing.T) {
	s, srv := newTestStore(t)
	bundle := fakeapi.DefaultBundle("eco bottles")

	var wg sync.WaitGroup
	ids := make([]string, 5)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := s.Save(context.Background(), &bundle, "eco bottles")
			assert.NoError(t, err)
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 5)
	assert.Equal(t, 5, srv.CampaignCount())
}

func TestSave_Failure(t *testing.T) {
	s, srv := newTestStore(t)
	bundle := fakeapi.DefaultBundle("eco bottles")

	srv.FailNext(fakeapi.PathSaveCampaign, http.StatusBadRequest, "Title too long")
	_, err := s.Save(context.Background(), &bundle, "eco bottles")
	assert.ErrorIs(t, err, types.ErrPersistenceFailed)
	assert.Equal(t, "Title too long", types.Message(err))

	srv.FailNext(fakeapi.PathSaveCampaign, http.StatusInternalServerError, "")
	_, err = s.Save(context.Background(), &bundle, "eco bottles")
	assert.Equal(t, types.FallbackPersistence, types.Message(err))
	assert.Equal(t, 0, srv.CampaignCount())
}

func TestList_EmptyIsNotAnError(t *testing.T) {
	s, srv := newTestStore(t)
	srv.OmitListData = true

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestList_PreservesServiceOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var want []string
	for _, prompt := range []string{"zeta", "alpha", "mid"} {
		b := fakeapi.DefaultBundle(prompt)
		c, err := s.Save(ctx, &b, prompt)
		require.NoError(t, err)
		want = append(want, c.ID)
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	var got []string
	for _, c := range list {
		got = append(got, c.ID)
	}
	assert.Equal(t, want, got)
}

func TestSaveThenListRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	bundle := fakeapi.DefaultBundle("eco bottles")

	saved, err := s.Save(ctx, &bundle, "eco bottles")
	require.NoError(t, err)

	found, err := s.Find(ctx, saved.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(saved.Content, found.Content); diff != "" {
		t.Fatalf("content changed across save/list (-saved +listed):\n%s", diff)
	}
}

func TestList_FailureUsesListFallback(t *testing.T) {
	s, srv := newTestStore(t)
	srv.FailNext(fakeapi.PathMyCampaigns, http.StatusBadGateway, "")

	_, err := s.List(context.Background())
	assert.ErrorIs(t, err, types.ErrPersistenceFailed)
	assert.Equal(t, types.FallbackList, types.Message(err))
}

func TestFind_Missing(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Find(context.Background(), "nope")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}
