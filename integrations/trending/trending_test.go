package trending

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `
<html><body>
  <div class="crayons-story">
    <h2 class="crayons-story__title"><a href="/a">Understanding Go Channels</a></h2>
  </div>
  <div class="crayons-story">
    <h2 class="crayons-story__title"><a href="/b">  Understanding Go Channels </a></h2>
  </div>
  <div class="crayons-story">
    <h2 class="crayons-story__title"><a href="/c">Postgres Indexing Deep Dive</a></h2>
  </div>
  <div class="crayons-story">
    <h2 class="crayons-story__title"><a href="/d">Docker Without the Pain</a></h2>
  </div>
</body></html>`

func TestExtractTopicsDedupesAndLimits(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingHTML))
	require.NoError(t, err)

	topics := ExtractTopics(doc, 2)
	assert.Equal(t, []string{"Understanding Go Channels", "Postgres Indexing Deep Dive"}, topics)
}

func TestFetchTopics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	topics, err := NewClient(srv.URL).FetchTopics(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, topics, 3)
}

func TestFetchTopicsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchTopics(context.Background(), 10)
	assert.ErrorContains(t, err, "status 503")
}

func TestTopicSourceSwallowsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	assert.Nil(t, NewClient(srv.URL).TopicSource(context.Background()))
}
