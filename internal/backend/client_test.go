package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shleen/threadline/internal/wardrobe"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != DefaultServerURL {
		t.Fatalf("url = %q, want %q", u.String(), DefaultServerURL)
	}

	u, err = parseBaseURL("example.com:1234/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Host != "example.com:1234" {
		t.Fatalf("url = %q, want http://example.com:1234", u.String())
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func newTestClient(t *testing.T, h http.Handler, opts Options) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	opts.ServerURL = server.URL
	if opts.RetryBase == 0 {
		opts.RetryBase = time.Millisecond
	}
	if opts.RetryMax == 0 {
		opts.RetryMax = 5 * time.Millisecond
	}
	c, err := NewClient(opts)
	require.NoError(t, err)
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestFetchRecommendations_DecodesCollection(t *testing.T) {
	var gotQuery map[string]string
	var gotUserAgent string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recommendation/get" {
			http.NotFound(w, r)
			return
		}
		gotUserAgent = r.Header.Get("User-Agent")
		q := r.URL.Query()
		gotQuery = map[string]string{"username": q.Get("username"), "lat": q.Get("lat"), "lon": q.Get("lon")}
		_, _ = io.WriteString(w, `{"outfits":[{"TOP":[{"id":1,"img":"a.jpg"}],"BOTTOM":[{"id":2,"img":"b.jpg"}]}]}`)
	}), Options{})

	coll, err := c.FetchRecommendations(testContext(t), "alice", 40.5, -73.25)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"username": "alice", "lat": "40.5", "lon": "-73.25"}, gotQuery)
	assert.Equal(t, defaultUserAgent, gotUserAgent)
	assert.Equal(t, 1, coll.Len())
	assert.Equal(t, 0, coll.Index())
	cur, _ := coll.Current()
	assert.Equal(t, []int64{1, 2}, cur.IDs())
	assert.Equal(t, wardrobe.Top, cur.Bucket(wardrobe.Top)[0].Category)
}

func TestFetchRecommendations_EmptyIsEmptyResult(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"outfits": []}`)
	}), Options{})

	_, err := c.FetchRecommendations(testContext(t), "alice", 0, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, wardrobe.ErrEmptyResult)
	assert.Equal(t, wardrobe.KindEmptyResult, wardrobe.KindOf(err))
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"items":[{"id":7,"type":"SHOES","img_filename":"s.png"}]}`)
	}), Options{MaxRetries: 3})

	items, err := c.FetchCloset(testContext(t), "alice", wardrobe.Shoes)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(7), items[0].ID)
	assert.Equal(t, int32(3), hits.Load())
}

func TestGet_GivesUpAfterMaxRetries(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}), Options{MaxRetries: 2})

	_, err := c.FetchHistory(testContext(t), "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, wardrobe.ErrNetwork)
	assert.Equal(t, int32(3), hits.Load())

	var werr *wardrobe.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, http.StatusBadGateway, werr.Status)
}

func TestGet_ClientErrorsAreNotRetried(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "no such user", http.StatusNotFound)
	}), Options{MaxRetries: 3})

	_, err := c.FetchDeclutter(testContext(t), "ghost")
	require.Error(t, err)
	assert.Equal(t, wardrobe.KindNetwork, wardrobe.KindOf(err))
	assert.Contains(t, err.Error(), "no such user")
	assert.Equal(t, int32(1), hits.Load())
}

func TestGet_BadJSONIsDecodeError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"outfits": [`)
	}), Options{})

	_, err := c.FetchRecommendations(testContext(t), "alice", 1, 1)
	require.ErrorIs(t, err, wardrobe.ErrDecode)
}

func TestConfirmOutfit_PostsOnceWithIdempotencyKey(t *testing.T) {
	var hits atomic.Int32
	var gotKey, gotContentType string
	var gotBody map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotKey = r.Header.Get("Idempotency-Key")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusInternalServerError)
	}), Options{MaxRetries: 3})

	o := wardrobe.MustOutfit(
		wardrobe.ClothingItem{ID: 1, Category: wardrobe.Top},
		wardrobe.ClothingItem{ID: 2, Category: wardrobe.Bottom},
	)
	req := NewConfirmRequest("alice", o)
	require.NotEmpty(t, req.IdempotencyKey)

	err := c.ConfirmOutfit(testContext(t), req)
	require.ErrorIs(t, err, wardrobe.ErrNetwork)
	assert.Equal(t, int32(1), hits.Load(), "POST must not be retried")
	assert.Equal(t, req.IdempotencyKey, gotKey)
	assert.Contains(t, gotContentType, "application/json")
	assert.Equal(t, "alice", gotBody["username"])
	assert.Equal(t, []any{1.0, 2.0}, gotBody["clothing_ids"])
}

func TestConfirmOutfit_RejectsEmptyOutfit(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler(), Options{})
	err := c.ConfirmOutfit(testContext(t), NewConfirmRequest("alice", wardrobe.Outfit{}))
	require.ErrorIs(t, err, wardrobe.ErrInvariantViolation)
}

func TestConfirmOutfit_RejectsInvalidUsername(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}), Options{})

	o := wardrobe.MustOutfit(wardrobe.ClothingItem{ID: 1, Category: wardrobe.Top})
	for _, name := range []string{"", "  ", "al"} {
		err := c.ConfirmOutfit(testContext(t), NewConfirmRequest(name, o))
		require.ErrorIs(t, err, wardrobe.ErrInvariantViolation, "username %q", name)
	}
	assert.Zero(t, hits.Load())
}

func TestPostDeclutter(t *testing.T) {
	var got declutterRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/declutter/post", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
	}), Options{})

	require.NoError(t, c.PostDeclutter(testContext(t), []int64{4, 5}))
	assert.Equal(t, []int64{4, 5}, got.IDs)
	require.NoError(t, c.PostDeclutter(testContext(t), nil))
}

func TestFetchFeed_EncodesCursor(t *testing.T) {
	var cursors []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursors = append(cursors, r.URL.Query().Get("cursor"))
		assert.Equal(t, "10", r.URL.Query().Get("page_size"))
		if r.URL.Query().Get("cursor") == "" {
			_, _ = io.WriteString(w, `{"outfits":[{"id":1,"username":"bob"}],"next_cursor":"c1"}`)
			return
		}
		_, _ = io.WriteString(w, `{"outfits":[{"id":2,"username":"eve"}],"next_cursor":null}`)
	}), Options{})

	page, err := c.FetchFeed(testContext(t), "", 10)
	require.NoError(t, err)
	require.True(t, page.HasMore())

	page, err = c.FetchFeed(testContext(t), *page.NextCursor, 10)
	require.NoError(t, err)
	assert.False(t, page.HasMore())
	assert.Equal(t, []string{"", "c1"}, cursors)
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}), Options{
		MaxRetries: -1,
		Breaker:    &BreakerConfig{MaxRequests: 1, Timeout: time.Minute, FailureRatio: 0.5, MinRequests: 2},
	})

	ctx := testContext(t)
	for i := 0; i < 2; i++ {
		_, err := c.FetchUtilization(ctx, "alice")
		require.Error(t, err)
	}
	_, err := c.FetchUtilization(ctx, "alice")
	require.ErrorIs(t, err, wardrobe.ErrNetwork)
	assert.Contains(t, err.Error(), "backend unavailable")
	assert.Equal(t, int32(2), hits.Load())
}

func TestBreaker_IgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}), Options{
		MaxRetries: -1,
		Breaker:    &BreakerConfig{MaxRequests: 1, Timeout: time.Minute, FailureRatio: 0.5, MinRequests: 2},
	})

	for i := 0; i < 4; i++ {
		_, err := c.FetchCategories(testContext(t))
		require.Error(t, err)
	}
	assert.Equal(t, int32(4), hits.Load())
}

func TestBreaker_IgnoresCanceledRequests(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}), Options{
		MaxRetries: -1,
		Breaker:    &BreakerConfig{MaxRequests: 1, Timeout: time.Minute, FailureRatio: 0.5, MinRequests: 2},
	})

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 4; i++ {
		err := c.PostDeclutter(canceled, []int64{1})
		require.ErrorIs(t, err, context.Canceled)
	}

	require.NoError(t, c.PostDeclutter(testContext(t), []int64{1}))
	assert.Equal(t, int32(1), hits.Load())
}

func TestGet_CanceledIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	ctx, cancel := context.WithCancel(testContext(t))
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		cancel()
		<-r.Context().Done()
	}), Options{MaxRetries: 3})

	_, err := c.FetchCategories(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"transport", wardrobe.NewError(wardrobe.KindNetwork, "x", errors.New("refused")), true},
		{"503", &wardrobe.Error{Kind: wardrobe.KindNetwork, Status: 503}, true},
		{"501", &wardrobe.Error{Kind: wardrobe.KindNetwork, Status: 501}, false},
		{"404", &wardrobe.Error{Kind: wardrobe.KindNetwork, Status: 404}, false},
		{"decode", wardrobe.NewError(wardrobe.KindDecode, "x", nil), false},
		{"plain", errors.New("boom"), false},
		{"canceled", wardrobe.NewError(wardrobe.KindNetwork, "x", context.Canceled), false},
	}
	for _, tc := range cases {
		if got := retryable(tc.err); got != tc.want {
			t.Fatalf("retryable(%s) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
