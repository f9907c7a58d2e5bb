package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ehgrab/pkg/config"
	"ehgrab/pkg/errors"
	"ehgrab/pkg/logger"
	"ehgrab/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	log := logger.NewTestLogger()
	client := NewClient(30*time.Second, log)

	assert.NotNil(t, client)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.headers)
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, log, client.logger)
	assert.Equal(t, 3, client.maxRetries)
	assert.NotNil(t, client.retrySchedule)
}

func TestNewClientWithConfig(t *testing.T) {
	log := logger.NewTestLogger()

	cfg := config.DefaultConfig()
	cfg.Remote.BaseURL = "https://mirror.example.com"
	cfg.Remote.UserAgent = "test-agent/1.0"
	cfg.Remote.MemberID = "42"
	cfg.Remote.PassHash = "deadbeefca"
	cfg.RateLimit.MaxRetries = 5

	client := NewClientWithConfig(cfg, log)

	assert.Equal(t, "https://mirror.example.com", client.baseURL)
	assert.Equal(t, "test-agent/1.0", client.headers["User-Agent"])
	assert.Contains(t, client.headers["Cookie"], "ipb_member_id=42")
	assert.Contains(t, client.headers["Cookie"], "ipb_pass_hash=deadbeefca")
	assert.Equal(t, 5, client.maxRetries)
}

func TestSetCredentials(t *testing.T) {
	client := NewClient(time.Second, logger.NewTestLogger())
	client.SetCredentials("123456", "abcdef0123")

	assert.Equal(t, "ipb_member_id=123456; ipb_pass_hash=abcdef0123", client.headers["Cookie"])
}

func TestFetchGalleryMetadata(t *testing.T) {
	var gotRequest metadataRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, APIEndpoint, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		json.NewEncoder(w).Encode(metadataResponse{
			GMetadata: []GalleryMetadata{{
				GID:       618395,
				Token:     "0439fa3666",
				Title:     "Test Gallery",
				Category:  "Doujinshi",
				Posted:    "1300000000",
				FileCount: "21",
				FileSize:  12345678,
				Rating:    "4.50",
				Tags:      []string{"language:english"},
			}},
		})
	}))
	defer server.Close()

	client := NewClient(5*time.Second, logger.NewTestLogger())
	client.SetBaseURL(server.URL)

	meta, err := client.FetchGalleryMetadata(context.Background(), 618395, "0439fa3666")
	require.NoError(t, err)

	assert.Equal(t, "gdata", gotRequest.Method)
	assert.Equal(t, 1, gotRequest.Namespace)
	require.Len(t, gotRequest.GIDList, 1)

	assert.Equal(t, int64(618395), meta.GID)
	assert.Equal(t, "Test Gallery", meta.Title)
	assert.Equal(t, 21, meta.PageCount())
	assert.Equal(t, time.Unix(1300000000, 0).UTC(), meta.PostedTime())
}

func TestFetchGalleryMetadataInlineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"gmetadata": []map[string]interface{}{
				{"gid": 999, "error": "Key missing, or incorrect key provided."},
			},
		})
	}))
	defer server.Close()

	client := NewClient(5*time.Second, logger.NewTestLogger())
	client.SetBaseURL(server.URL)

	_, err := client.FetchGalleryMetadata(context.Background(), 999, "0000000000")
	require.Error(t, err)

	apiErr, ok := err.(*errors.Error)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeNotFound, apiErr.Type)
}

func TestFetchGalleryMetadataBatchTooLarge(t *testing.T) {
	client := NewClient(time.Second, logger.NewTestLogger())

	refs := make([]GalleryRef, MaxMetadataBatch+1)
	_, err := client.FetchGalleryMetadataBatch(context.Background(), refs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch too large")
}

func TestCheckResponseStatus(t *testing.T) {
	tests := []struct {
		status   int
		wantType errors.ErrorType
	}{
		{http.StatusUnauthorized, errors.ErrorTypeAuth},
		{http.StatusForbidden, errors.ErrorTypeAuth},
		{http.StatusNotFound, errors.ErrorTypeNotFound},
		{http.StatusTooManyRequests, errors.ErrorTypeRateLimit},
		{http.StatusInternalServerError, errors.ErrorTypeServerError},
		{http.StatusBadGateway, errors.ErrorTypeServerError},
		{http.StatusTeapot, errors.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient(5*time.Second, logger.NewTestLogger())

			resp, err := client.Get(context.Background(), server.URL)
			require.NoError(t, err)
			defer resp.Body.Close()

			err = client.checkResponseStatus(resp)
			require.Error(t, err)

			apiErr, ok := err.(*errors.Error)
			require.True(t, ok)
			assert.Equal(t, tt.wantType, apiErr.Type)
			assert.Equal(t, tt.status, apiErr.Code)
		})
	}
}

func TestFetchPageKeys(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
			<a href="%s/s/aaaaaaaaaa/618395-1"><img /></a>
			<a href="%s/s/bbbbbbbbbb/618395-2"><img /></a>
			<a href="%s/s/cccccccccc/618395-3"><img /></a>
		</body></html>`, r.Host, r.Host, r.Host)
	}))
	defer server.Close()

	client := NewClient(5*time.Second, logger.NewTestLogger())
	client.SetBaseURL(server.URL)

	keys, err := client.FetchPageKeys(context.Background(), 618395, "0439fa3666", 0)
	require.NoError(t, err)

	assert.Equal(t, map[int]string{
		1: "aaaaaaaaaa",
		2: "bbbbbbbbbb",
		3: "cccccccccc",
	}, keys)
}

func TestFetchPageKeysEmptyListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>nothing here</body></html>`)
	}))
	defer server.Close()

	client := NewClient(5*time.Second, logger.NewTestLogger())
	client.SetBaseURL(server.URL)

	_, err := client.FetchPageKeys(context.Background(), 618395, "0439fa3666", 0)
	require.Error(t, err)

	apiErr, ok := err.(*errors.Error)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeParsing, apiErr.Type)
}

func TestFetchImageURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><img id="img" src="https://images.example.com/full/1.jpg" style="height:1200px" /></body></html>`)
	}))
	defer server.Close()

	client := NewClient(5*time.Second, logger.NewTestLogger())

	url, err := client.FetchImageURL(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "https://images.example.com/full/1.jpg", url)
}

func TestDownloadImage(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	client := NewClient(5*time.Second, logger.NewTestLogger())

	data, err := client.DownloadImage(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestDownloadImageRetriesServerErrors(t *testing.T) {
	attempts := 0
	payload := []byte("image-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(payload)
	}))
	defer server.Close()

	client := NewClient(5*time.Second, logger.NewTestLogger())
	client.retrySchedule = &retry.Schedule{Fallback: &retry.ConstantBackoff{Delay: time.Millisecond}}

	data, err := client.DownloadImage(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, 3, attempts)
}

func TestDownloadImageNotFoundDoesNotRetry(t *testing.T) {
	attempts := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(5*time.Second, logger.NewTestLogger())

	_, err := client.DownloadImage(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	apiErr, ok := err.(*errors.Error)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeNotFound, apiErr.Type)
}

func TestRequestSendsConfiguredHeaders(t *testing.T) {
	var gotUA, gotCookie string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCookie = r.Header.Get("Cookie")
	}))
	defer server.Close()

	client := NewClient(5*time.Second, logger.NewTestLogger())
	client.SetHeader("User-Agent", "custom-agent")
	client.SetCredentials("7", "cafebabe00")

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "custom-agent", gotUA)
	assert.Contains(t, gotCookie, "ipb_member_id=7")
}
