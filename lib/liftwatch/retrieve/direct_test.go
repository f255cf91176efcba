package retrieve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

func TestDirectFetchesMarkup(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("<html><body>lift report</body></html>"))
	}))
	defer server.Close()

	d := NewDirect(DirectOptions{UserAgent: testUserAgent})
	out, err := d.Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	require.False(t, out.NoData())
	require.Contains(t, out.HTML, "lift report")

	// the request has to look like a desktop browser
	require.NotEmpty(t, gotUA)
	require.NotEmpty(t, gotAccept)
}

func TestDirectNon2xxIsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("blocked"))
	}))
	defer server.Close()

	d := NewDirect(DirectOptions{UserAgent: testUserAgent})
	out, err := d.Fetch(context.Background(), server.URL)

	require.Error(t, err)
	require.True(t, out.NoData())
}

func TestDirectTimeoutIsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	d := NewDirect(DirectOptions{
		UserAgent: testUserAgent,
		Timeout:   50 * time.Millisecond,
	})
	out, err := d.Fetch(context.Background(), server.URL)

	require.Error(t, err)
	require.True(t, out.NoData())
}
