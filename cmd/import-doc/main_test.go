package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/circulx/products-rag/internal/vectorstore"
)

type recordingStore struct {
	docs []vectorstore.Document
}

func (s *recordingStore) Query(context.Context, vectorstore.QueryRequest) (*vectorstore.QueryResult, error) {
	return nil, nil
}

func (s *recordingStore) Upsert(_ context.Context, docs []vectorstore.Document) error {
	s.docs = append(s.docs, docs...)
	return nil
}

func (s *recordingStore) Close() error { return nil }

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name string
		o    options
		ok   bool
	}{
		{"no mode", options{seller: "s"}, false},
		{"files without path", options{seller: "s", fromFiles: true}, false},
		{"url without base", options{seller: "s", fromURL: true}, false},
		{"no seller", options{fromFiles: true, path: "."}, false},
		{"files", options{seller: "s", fromFiles: true, path: "."}, true},
		{"url", options{seller: "s", fromURL: true, baseURL: "http://x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.o.validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestImportFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "lamps"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lamps", "desk-lamp.md"), []byte("Brass desk lamp, 40W."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89, 0x50}, 0o644))

	store := &recordingStore{}
	im := &importer{store: store, seller: "circulx_seller_profile_1", log: zap.NewNop()}

	require.NoError(t, im.importFiles(context.Background(), dir))
	require.Len(t, store.docs, 1)
	d := store.docs[0]
	assert.Equal(t, "Brass desk lamp, 40W.", d.Text)
	assert.Equal(t, "circulx_seller_profile_1", d.Metadata[vectorstore.SellerKey])
	assert.Equal(t, "desk lamp", d.Metadata["title"])
	assert.Equal(t, "lamps/desk-lamp.md", d.Metadata["source"])
}

func TestImportHTTP(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/shop/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<h1>Our shop</h1><a href="%s/shop/chair">chair</a><a href="/shop/missing">x</a>`, srvURL)
	})
	mux.HandleFunc("/shop/chair", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<p>Oak chair, hand made.</p><a href="/shop/">home</a>`)
	})
	mux.HandleFunc("/shop/missing", http.NotFound)
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	store := &recordingStore{}
	im := &importer{store: store, seller: "s", log: zap.NewNop()}

	require.NoError(t, im.importHTTP(context.Background(), srv.URL+"/shop/", 10))

	var texts []string
	for _, d := range store.docs {
		texts = append(texts, d.Text)
	}
	assert.ElementsMatch(t, []string{"Our shop\nchair", "Oak chair, hand made.\nhome"}, texts)
}

func TestImportHTTPRespectsMaxPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<p>page %s</p><a href="%s-next">n</a>`, r.URL.Path, r.URL.Path)
	}))
	defer srv.Close()

	store := &recordingStore{}
	im := &importer{store: store, seller: "s", log: zap.NewNop()}

	require.NoError(t, im.importHTTP(context.Background(), srv.URL+"/p", 3))
	assert.Len(t, store.docs, 3)
}
