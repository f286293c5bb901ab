package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairnhub/cairn/pkg/model"
)

func TestWebpageImport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><TITLE> Project Homepage </TITLE></head><body>hi</body></html>`)
	}))
	defer srv.Close()

	wp := NewWebpage()
	draft, suggested, err := wp.ImportArtifact(context.Background(), srv.URL+"/project")
	require.NoError(t, err)
	assert.Empty(t, suggested)
	assert.Equal(t, model.TypeOther, draft.Type)
	assert.Equal(t, "Project Homepage", draft.Title)
	require.Len(t, draft.Files, 1)
	assert.Equal(t, srv.URL+"/project", draft.Files[0].URL)
}

func TestWebpageImportNoTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>untitled</body></html>`)
	}))
	defer srv.Close()

	wp := NewWebpage()
	draft, _, err := wp.ImportArtifact(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "", draft.Title)
}

func TestWebpageImportErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	wp := NewWebpage()
	_, _, err := wp.ImportArtifact(context.Background(), srv.URL+"/gone")
	require.Error(t, err)
}

func TestWebpageCanHandle(t *testing.T) {
	wp := NewWebpage()
	assert.True(t, wp.CanHandle("https://example.org/x"))
	assert.True(t, wp.CanHandle("http://example.org/x"))
	assert.False(t, wp.CanHandle("git://example.org/x"))
}

func TestPageTitle(t *testing.T) {
	assert.Equal(t, "Hello", pageTitle(`<title>Hello</title>`))
	assert.Equal(t, "Attr", pageTitle(`<title lang="en">Attr</title>`))
	assert.Equal(t, "", pageTitle(`<h1>no title element</h1>`))
	assert.Equal(t, "", pageTitle(`<title>unterminated`))
}
