package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"campaigner/internal/logging"
	"campaigner/internal/testing/fakeapi"
	"campaigner/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordedCall struct {
	op  string
	err error
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *fakeRecorder) Record(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{op, err})
}

func newTestClient(t *testing.T, baseURL string, rec Recorder) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: baseURL, Timeout: 5 * time.Second, UserAgent: "campaigner-test", Recorder: rec})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestOnboardThenSessionCookieIsSent(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	c := newTestClient(t, srv.URL, nil)
	ctx := context.Background()

	// Without the cookie the session-bound endpoints refuse.
	_, err := c.Generate(ctx, "eco bottles")
	var apiErr *types.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Not authenticated", apiErr.Message)

	profile, err := c.Onboard(ctx, OnboardingRequest{
		CompanyName: "Acme",
		Platforms:   []types.PlatformID{types.PlatformTwitter},
		BrandVoice:  types.BrandVoice{Tone: types.ToneProfessional},
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme", profile.CompanyName)
	assert.Equal(t, []types.PlatformID{types.PlatformTwitter}, profile.Platforms)

	bundle, err := c.Generate(ctx, "eco bottles")
	require.NoError(t, err)
	assert.Equal(t, fakeapi.DefaultBundle("eco bottles"), bundle)
}

func TestRequestHeadersAndBody(t *testing.T) {
	var got *http.Request
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"job":{"generatedContent":{"twitter":"hi","email":{"subject":"s","body":"b"}}}}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL+"/", nil)
	bundle, err := c.Generate(context.Background(), "launch")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, PathGenerate, got.URL.Path)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "campaigner-test", got.Header.Get("User-Agent"))
	assert.NotEmpty(t, got.Header.Get(RequestIDHeader))
	assert.Equal(t, "launch", body["prompt"])
	assert.Equal(t, "hi", bundle.Twitter)
	assert.Equal(t, "s", bundle.Email.Subject)
}

func TestNon2xxCarriesServiceMessage(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	srv.RequireSession = false
	srv.FailNext(fakeapi.PathGenerate, http.StatusTooManyRequests, "quota exceeded")

	rec := &fakeRecorder{}
	c := newTestClient(t, srv.URL, rec)
	_, err := c.Generate(context.Background(), "eco bottles")

	var apiErr *types.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "quota exceeded", apiErr.Message)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.False(t, apiErr.Transport())

	require.Len(t, rec.calls, 1)
	assert.Equal(t, OpGenerate, rec.calls[0].op)
	assert.Equal(t, err, rec.calls[0].err)
}

func TestNon2xxWithoutMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, nil)
	err := c.Publish(context.Background(), "c1", types.PlatformTwitter)

	var apiErr *types.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "", apiErr.Message)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := newTestClient(t, url, nil)
	_, err := c.ListCampaigns(context.Background())
	assert.ErrorIs(t, err, types.ErrTransport)

	var apiErr *types.Error
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Transport())
	assert.Equal(t, 0, apiErr.Status)
}

func TestMalformedSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"job": "not an object"`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, nil)
	_, err := c.Generate(context.Background(), "x")
	var apiErr *types.Error
	require.ErrorAs(t, err, &apiErr)
	assert.NotErrorIs(t, err, types.ErrTransport)
	assert.Equal(t, http.StatusOK, apiErr.Status)
}

func TestGenerateMissingContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"job":{}}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, nil)
	_, err := c.Generate(context.Background(), "x")
	assert.Error(t, err)
}

func TestSaveAndListCampaigns(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	srv.RequireSession = false
	c := newTestClient(t, srv.URL, nil)
	ctx := context.Background()

	bundle := fakeapi.DefaultBundle("eco bottles")
	saved, err := c.SaveCampaign(ctx, NewSaveCampaignRequest("eco bottles", "eco bottles", bundle))
	require.NoError(t, err)
	assert.Equal(t, "cmp-1", saved.ID)
	assert.Equal(t, bundle, saved.Content)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(srv.LastBody(fakeapi.PathSaveCampaign), &sent))
	content := sent["content"].(map[string]any)
	assert.NotContains(t, content, "imageUrl")
	assert.Equal(t, bundle.ImageURL, sent["imageUrl"])

	list, err := c.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)
	assert.Equal(t, bundle, list[0].Content)
}

func TestListCampaigns_MissingData(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	srv.RequireSession = false
	srv.OmitListData = true

	c := newTestClient(t, srv.URL, nil)
	list, err := c.ListCampaigns(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestPublishSendsSlug(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	srv.RequireSession = false

	rec := &fakeRecorder{}
	c := newTestClient(t, srv.URL, rec)
	require.NoError(t, c.Publish(context.Background(), "cmp-7", types.PlatformTwitter))

	calls := srv.PublishCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, fakeapi.PublishCall{CampaignID: "cmp-7", Platform: "twitter"}, calls[0])
	require.Len(t, rec.calls, 1)
	assert.NoError(t, rec.calls[0].err)
}

func TestContextCancelIsTransport(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	srv.RequireSession = false
	gate := srv.Hold(fakeapi.PathPublish)
	defer gate.Release()

	c := newTestClient(t, srv.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Publish(ctx, "c1", types.PlatformTwitter) }()

	<-gate.Arrived()
	cancel()
	err := <-errCh
	assert.ErrorIs(t, err, types.ErrTransport)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSlowCallIsLoggedAsWarning(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.Use(zap.New(core))
	defer logging.CloseAll()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second, SlowCall: time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, c.Publish(context.Background(), "cmp-1", types.PlatformTwitter))

	slow := logs.FilterLevelExact(zapcore.WarnLevel).FilterMessageSnippet("took")
	require.Equal(t, 1, slow.Len())
	assert.Equal(t, "api", slow.All()[0].LoggerName)
	assert.Contains(t, slow.All()[0].Message, OpPublish)
}
