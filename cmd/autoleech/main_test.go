package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/autoleech/internal/config"
	"github.com/jonathan/autoleech/internal/crawling"
	"github.com/jonathan/autoleech/internal/leech"
	"github.com/jonathan/autoleech/internal/logging"
	"github.com/jonathan/autoleech/internal/server"
	"github.com/jonathan/autoleech/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_API_URL", "AUTO_TBL_CHANNEL", "AUTO_TBL_COMMAND_CHAT",
	"OWNER_ID", "SUDO_USERS", "AUTO_TBL_COMMAND", "LEECH_COMMAND",
	"TBL_BASE_URL", "TBL_MAX_TOPICS", "TBL_POLL_INTERVAL", "TBL_FETCH_TIMEOUT", "TBL_USE_BROWSER",
	"TBL_CAPTION_TAG", "TBL_DEDUP_CAPACITY", "TBL_WORKERS",
	"QBIT_URL", "QBIT_USERNAME", "QBIT_PASSWORD", "QBIT_CATEGORY",
	"DATABASE_URL", "HTTP_ADDR", "JWT_SECRET", "JWT_EXPIRATION_HOURS", "LOG_LEVEL", "LOG_FORMAT",
}

// isolateEnv blanks every variable the CLI reads so a local .env cannot leak in.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_LEVEL", "error")
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		configPath = ""
		crawlJSON = false
		crawlMaxTopics = 0
		crawlInterval = crawling.DefaultRequestInterval
		tokenOperator = 0
		historyRuns = false
		historyRunID = ""
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	isolateEnv(t)
	t.Setenv("OWNER_ID", "42")
	t.Setenv("SUDO_USERS", "7")
	t.Setenv("JWT_SECRET", "a-test-secret-that-is-long-enough")

	out, err := execute(t, "token", "--operator", "7")
	require.NoError(t, err)

	jwtCfg, err := config.NewJWTConfig()
	require.NoError(t, err)
	claims, err := server.NewJWTService(jwtCfg).ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.OperatorID)
}

func TestTokenCommand_RejectsNonOperator(t *testing.T) {
	isolateEnv(t)
	t.Setenv("OWNER_ID", "42")
	t.Setenv("JWT_SECRET", "a-test-secret-that-is-long-enough")

	_, err := execute(t, "token", "--operator", "99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an operator")
}

func TestTokenCommand_RequiresSecret(t *testing.T) {
	isolateEnv(t)
	t.Setenv("OWNER_ID", "42")

	_, err := execute(t, "token", "--operator", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestServeRequiresBotToken(t *testing.T) {
	isolateEnv(t)
	t.Setenv("OWNER_ID", "42")

	_, err := execute(t, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
}

func TestHistoryRequiresDatabase(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestCrawlCommand(t *testing.T) {
	isolateEnv(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<a href="/forums/topic/1-leo/">Leo</a><a href="/forums/topic/2-jailer/">Jailer</a>`)
	})
	mux.HandleFunc("/forums/topic/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "jailer") {
			fmt.Fprint(w, `<p>no attachments</p>`)
			return
		}
		fmt.Fprint(w, `<a data-fileext="torrent" href="/files/leo.torrent">Leo (2023) Tamil - 2.4GB.torrent</a>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Setenv("TBL_BASE_URL", srv.URL+"/")

	out, err := execute(t, "crawl", "--json", "--interval=-1s")
	require.NoError(t, err)

	var topics []types.Topic
	require.NoError(t, json.Unmarshal([]byte(out), &topics), out)
	require.Len(t, topics, 1)
	assert.Equal(t, srv.URL+"/forums/topic/1-leo/", topics[0].TopicURL)
	require.Len(t, topics[0].Files, 1)
	assert.Equal(t, "Leo (2023) Tamil - 2.4GB", topics[0].Files[0].Title)
	assert.Equal(t, "2.4GB", topics[0].Files[0].Size)
	assert.Equal(t, srv.URL+"/files/leo.torrent", topics[0].Files[0].Link)
}

func TestCrawlCommand_ListingFailure(t *testing.T) {
	isolateEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("TBL_BASE_URL", srv.URL+"/")

	_, err := execute(t, "crawl", "--interval=-1s")
	assert.Error(t, err)
}

func TestNewLeecher(t *testing.T) {
	logger := logging.Discard()

	relay, err := newLeecher(&config.Config{}, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &leech.RelayLeecher{}, relay)

	qbit, err := newLeecher(&config.Config{
		QbitURL:      "http://127.0.0.1:8080",
		QbitUsername: "admin",
		FetchTimeout: config.Duration(5 * time.Second),
	}, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &leech.QbitLeecher{}, qbit)

	_, err = newLeecher(&config.Config{QbitURL: "::not a url"}, nil, logger)
	assert.Error(t, err)
}
