package studio

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"campaigner/internal/config"
	"campaigner/internal/store"
	"campaigner/internal/testing/fakeapi"
	"campaigner/internal/types"
	"campaigner/internal/usage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

func testConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.API.Timeout = "5s"
	return cfg
}

func acme() types.BrandProfile {
	return types.BrandProfile{
		CompanyName: "Acme",
		Platforms:   []types.PlatformID{types.PlatformTwitter},
		BrandVoice:  types.BrandVoice{Tone: types.ToneProfessional, Description: ""},
	}
}

func newStudio(t *testing.T, srv *fakeapi.Server, st *store.LocalStore, tracker *usage.Tracker) *Studio {
	t.Helper()
	s, err := New(testConfig(srv.URL), st, tracker)
	require.NoError(t, err)
	return s
}

func TestScenarioOnboarding(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	s := newStudio(t, srv, nil, nil)
	ctx := context.Background()

	profile, err := s.Onboard(ctx, acme())
	require.NoError(t, err)
	assert.Equal(t, acme(), profile)

	current, err := s.Session.Current()
	require.NoError(t, err)
	assert.Equal(t, acme(), current)

	// The session cookie makes the session usable.
	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestScenarioGenerateThenDiscard(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	s := newStudio(t, srv, nil, nil)
	ctx := context.Background()

	_, err := s.Onboard(ctx, acme())
	require.NoError(t, err)

	bundle, err := s.Generate(ctx, "eco bottles")
	require.NoError(t, err)
	draft, ok := s.Draft()
	require.True(t, ok)
	assert.Equal(t, bundle, draft.Content)

	assert.True(t, s.Discard())
	_, ok = s.Draft()
	assert.False(t, ok)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 0, srv.Calls(fakeapi.PathSaveCampaign))

	_, err = s.Save(ctx)
	assert.ErrorIs(t, err, types.ErrNothingToSave)
	assert.Equal(t, 0, srv.Calls(fakeapi.PathSaveCampaign))
}

func TestScenarioGenerateThenSave(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	s := newStudio(t, srv, nil, nil)
	ctx := context.Background()

	_, err := s.Onboard(ctx, acme())
	require.NoError(t, err)
	bundle, err := s.Generate(ctx, "eco bottles")
	require.NoError(t, err)

	c, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "eco bottles", c.Title)
	assert.LessOrEqual(t, len([]rune(c.Title)), types.TitleMaxRunes)
	assert.Equal(t, bundle, c.Content)
	require.NotEmpty(t, c.PublishStatus)
	for platform, state := range c.PublishStatus {
		assert.Equal(t, types.NotStarted(), state, "platform %s", platform)
	}

	draft, _ := s.Draft()
	assert.Equal(t, c.ID, draft.CampaignID)

	shown, err := s.Show(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Content, shown.Content)
}

func TestPublishFlowWithJournal(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	st, err := store.NewLocalStore(store.MemoryPath)
	require.NoError(t, err)
	defer st.Close()

	s := newStudio(t, srv, st, nil)
	ctx := context.Background()

	_, err = s.Onboard(ctx, acme())
	require.NoError(t, err)
	_, err = s.Generate(ctx, "eco bottles")
	require.NoError(t, err)
	c, err := s.Save(ctx)
	require.NoError(t, err)

	srv.FailNext(fakeapi.PathPublish, http.StatusBadRequest, "Twitter account not connected")
	states, err := s.Publish(ctx, c.ID, types.PlatformTwitter)
	assert.ErrorIs(t, err, types.ErrPublishFailed)
	assert.Equal(t, types.Failed("Twitter account not connected"), states[types.PlatformTwitter])

	states, err = s.Publish(ctx, c.ID, types.PlatformTwitter, types.PlatformLinkedIn)
	require.NoError(t, err)
	assert.Equal(t, types.PhasePublished, states[types.PlatformTwitter].Phase)
	assert.Equal(t, types.PhasePublished, states[types.PlatformLinkedIn].Phase)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, types.PhasePublished, list[0].PublishStatus[types.PlatformTwitter].Phase)

	history, err := s.History(c.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)

	_, err = s.Publish(ctx, c.ID)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestStateCarriesAcrossRuns(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "state.db")
	ctx := context.Background()

	st1, err := store.NewLocalStore(dbPath)
	require.NoError(t, err)
	tracker, err := usage.NewTracker(dir)
	require.NoError(t, err)
	tracker.SetAutoSaveDelay(0)

	first := newStudio(t, srv, st1, tracker)
	_, err = first.Onboard(ctx, acme())
	require.NoError(t, err)
	bundle, err := first.Generate(ctx, "eco bottles")
	require.NoError(t, err)
	require.NoError(t, st1.Close())

	stats, ok := first.Usage()
	require.True(t, ok)
	assert.Equal(t, int64(2), stats.Total.Succeeded)

	// A later run sees the session, its cookie and the held draft.
	st2, err := store.NewLocalStore(dbPath)
	require.NoError(t, err)
	defer st2.Close()
	second := newStudio(t, srv, st2, nil)

	assert.True(t, second.Session.Active())
	draft, ok := second.Draft()
	require.True(t, ok)
	assert.Equal(t, bundle, draft.Content)

	c, err := second.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "eco bottles", c.Title)

	_, err = second.Publish(ctx, c.ID, types.PlatformTwitter)
	require.NoError(t, err)

	// Publish outcomes are seeded into the next run.
	third := newStudio(t, srv, st2, nil)
	assert.Equal(t, types.PhasePublished, third.Publisher.State(c.ID, types.PlatformTwitter).Phase)

	require.NoError(t, third.Logout())
	assert.False(t, third.Session.Active())
	_, ok, err = st2.LoadProfile()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentRunsPublishOnce(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	dbPath := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	st1, err := store.NewLocalStore(dbPath)
	require.NoError(t, err)
	defer st1.Close()
	first := newStudio(t, srv, st1, nil)
	_, err = first.Onboard(ctx, acme())
	require.NoError(t, err)
	_, err = first.Generate(ctx, "eco bottles")
	require.NoError(t, err)
	c, err := first.Save(ctx)
	require.NoError(t, err)

	// A second run on the same state file.
	st2, err := store.NewLocalStore(dbPath)
	require.NoError(t, err)
	defer st2.Close()
	second := newStudio(t, srv, st2, nil)
	require.True(t, second.Session.Active())

	gate := srv.Hold(fakeapi.PathPublish)
	done := make(chan error, 1)
	go func() {
		_, err := first.Publish(ctx, c.ID, types.PlatformTwitter)
		done <- err
	}()
	<-gate.Arrived()

	states, err := second.Publish(ctx, c.ID, types.PlatformTwitter)
	assert.ErrorIs(t, err, types.ErrAlreadyPublishing)
	assert.Equal(t, types.Publishing(), states[types.PlatformTwitter])
	assert.Equal(t, 1, srv.Calls(fakeapi.PathPublish))

	gate.Release()
	require.NoError(t, <-done)

	// The claim is gone once the first run settles.
	_, err = second.Publish(ctx, c.ID, types.PlatformTwitter)
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Calls(fakeapi.PathPublish))
}

func TestRequiresSession(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	s := newStudio(t, srv, nil, nil)
	ctx := context.Background()

	_, err := s.Generate(ctx, "eco bottles")
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
	_, err = s.List(ctx)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
	_, err = s.Publish(ctx, "cmp-1", types.PlatformTwitter)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
	assert.Equal(t, 0, srv.TotalCalls())
}
