package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/artpar/rentdesk/adapters/remote"
	"github.com/artpar/rentdesk/core/registry"
	"github.com/artpar/rentdesk/domain/envelope"
	"github.com/artpar/rentdesk/domain/tag"
	"github.com/artpar/rentdesk/ports"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type session struct {
	mu sync.Mutex
	s  ports.Session
}

func (s *session) Current() ports.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.s
}

func (s *session) set(token string) {
	s.mu.Lock()
	s.s.Token = token
	s.mu.Unlock()
}

// backend is a tiny enveloped item store.
type backend struct {
	mu     sync.Mutex
	items  []item
	lists  atomic.Int64
	tokens []string
	failOn string
}

func (b *backend) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/items", func(w http.ResponseWriter, req *http.Request) {
		b.lists.Add(1)
		b.mu.Lock()
		b.tokens = append(b.tokens, req.Header.Get("Authorization"))
		data, _ := envelope.Wrap(b.items)
		b.mu.Unlock()
		w.Write(data)
	})
	r.Post("/items", func(w http.ResponseWriter, req *http.Request) {
		var in item
		json.NewDecoder(req.Body).Decode(&in)
		if in.Name == b.failOn {
			w.Write(envelope.Fail("duplicate name", ""))
			return
		}
		b.mu.Lock()
		in.ID = len(b.items) + 1
		b.items = append(b.items, in)
		b.mu.Unlock()
		data, _ := envelope.Wrap(in)
		w.Write(data)
	})
	return r
}

var (
	listItems = QueryDef[struct{}, []item]{
		Name:   "GetItems",
		Domain: "items",
		Path:   "/items",
		URL:    func(struct{}) (string, error) { return "/items", nil },
		Shape:  envelope.ShapeList,
		Provides: func(_ struct{}, items []item) tag.Set {
			ids := make([]int, len(items))
			for i, it := range items {
				ids[i] = it.ID
			}
			return tag.ListAndIDs(tag.Vehicle, ids)
		},
		Types: []tag.Type{tag.Vehicle},
	}

	createItem = MutationDef[item, item]{
		Name:   "CreateItem",
		Domain: "items",
		Method: http.MethodPost,
		Path:   "/items",
		URL:    func(item) (string, error) { return "/items", nil },
		Body:   func(in item) any { return in },
		Shape:  envelope.ShapeObject,
		Invalidates: func(item, item) tag.Set {
			return tag.Set{tag.List(tag.Vehicle)}
		},
		Types:   []tag.Type{tag.Vehicle},
		Affects: []tag.Type{tag.Vehicle},
	}
)

func newTestClient(t *testing.T, b *backend) (*Client, *session) {
	t.Helper()
	srv := httptest.NewServer(b.router())
	t.Cleanup(srv.Close)

	sess := &session{}
	return &Client{
		Cache:     newTestCache(t, Options{}),
		Transport: remote.NewClient(remote.ClientConfig{BaseURL: srv.URL, Logger: zerolog.Nop()}),
		Session:   sess,
	}, sess
}

func TestQuery_DecodesAndCaches(t *testing.T) {
	b := &backend{items: []item{{ID: 1, Name: "a"}}}
	cl, _ := newTestClient(t, b)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := Query(ctx, cl, listItems, struct{}{})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(got) != 1 || got[0].Name != "a" {
			t.Errorf("Query() = %+v", got)
		}
	}
	if n := b.lists.Load(); n != 1 {
		t.Errorf("backend list calls = %d, want 1", n)
	}
	if keys := cl.Cache.Providers(tag.ID(tag.Vehicle, 1)); len(keys) != 1 || keys[0] != "GetItems" {
		t.Errorf("Providers(Vehicle:1) = %v", keys)
	}
}

func TestMutate_RefreshesWatchedQuery(t *testing.T) {
	b := &backend{failOn: "dup"}
	cl, _ := newTestClient(t, b)
	ctx := context.Background()

	sub, err := Watch(ctx, cl, listItems, struct{}{})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	if st, _ := sub.Wait(ctx); !st.IsSuccess() {
		t.Fatalf("initial state = %+v", st)
	}

	created, err := Mutate(ctx, cl, createItem, item{Name: "x"})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	if created.ID != 1 {
		t.Errorf("created.ID = %d, want 1", created.ID)
	}
	if n := b.lists.Load(); n != 2 {
		t.Errorf("list calls after success = %d, want 2", n)
	}
	items, _ := Value[[]item](sub.State().Data)
	if len(items) != 1 || items[0].Name != "x" {
		t.Errorf("watched data = %+v, want [x]", items)
	}

	_, err = Mutate(ctx, cl, createItem, item{Name: "dup"})
	var envErr *envelope.Error
	if !errors.As(err, &envErr) || envErr.Message != "duplicate name" {
		t.Fatalf("Mutate() error = %v, want envelope error", err)
	}
	if n := b.lists.Load(); n != 2 {
		t.Errorf("list calls after failure = %d, want 2", n)
	}
}

func TestQuery_TokenReadAtRequestTime(t *testing.T) {
	b := &backend{}
	cl, sess := newTestClient(t, b)
	ctx := context.Background()

	if _, err := Query(ctx, cl, listItems, struct{}{}); err != nil {
		t.Fatal(err)
	}
	sess.set("tok")
	cl.Cache.Invalidate(ctx, tag.List(tag.Vehicle))
	if _, err := Query(ctx, cl, listItems, struct{}{}); err != nil {
		t.Fatal(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	want := []string{"", "Bearer tok"}
	if fmt.Sprint(b.tokens) != fmt.Sprint(want) {
		t.Errorf("Authorization headers = %q, want %q", b.tokens, want)
	}
}

func TestQuery_ArgumentErrorBeforeRequest(t *testing.T) {
	b := &backend{}
	cl, _ := newTestClient(t, b)
	bad := errors.New("id required")
	def := QueryDef[int, item]{
		Name: "GetItem",
		URL: func(id int) (string, error) {
			if id <= 0 {
				return "", bad
			}
			return "/items/" + strconv.Itoa(id), nil
		},
	}

	if _, err := Query(context.Background(), cl, def, 0); !errors.Is(err, bad) {
		t.Errorf("Query() error = %v, want %v", err, bad)
	}
	if len(cl.Cache.Snapshot()) != 0 {
		t.Error("entry created for invalid arguments")
	}
}

func TestQuery_HTTPErrorKeepsTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	cl := &Client{
		Cache:     newTestCache(t, Options{}),
		Transport: remote.NewClient(remote.ClientConfig{BaseURL: srv.URL, Logger: zerolog.Nop()}),
	}

	_, err := Query(context.Background(), cl, listItems, struct{}{})
	var httpErr *remote.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("Query() error = %v, want 503", err)
	}
	if keys := cl.Cache.Providers(tag.List(tag.Vehicle)); len(keys) != 1 {
		t.Errorf("failed query not reachable by invalidation: %v", keys)
	}
}

func TestDefs_Endpoint(t *testing.T) {
	q := listItems.Endpoint()
	if q.Kind != registry.KindQuery || q.Method != http.MethodGet || q.Path != "/items" {
		t.Errorf("query Endpoint() = %+v", q)
	}
	m := createItem.Endpoint()
	if m.Kind != registry.KindMutation || m.Method != http.MethodPost || len(m.Invalidates) != 1 {
		t.Errorf("mutation Endpoint() = %+v", m)
	}

	r := registry.New()
	if err := r.Register(q); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(m); err != nil {
		t.Fatal(err)
	}
	if findings := r.Audit(); len(findings) != 0 {
		t.Errorf("Audit() = %v", findings)
	}
}
