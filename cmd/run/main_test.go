package run

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/vs49688/mailresponder/cmd/config"
	"github.com/vs49688/mailresponder/settings"
)

func writeTestSettings(t *testing.T, content string) *settings.Store {
	path := filepath.Join(t.TempDir(), "settings.env")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0600); !assert.NoError(t, err) {
			t.FailNow()
		}
	}

	logger, _ := test.NewNullLogger()
	return settings.NewStore(path, logger)
}

func TestBuildScheduler(t *testing.T) {
	level := log.GetLevel()
	t.Cleanup(func() { log.SetLevel(level) })

	t.Run("valid", func(t *testing.T) {
		cfg := config.DefaultConfig()
		store := writeTestSettings(t, "GMAIL_USER=bot@example.com\nGMAIL_PASS=x\nOPENAI_API_KEY=sk\nCHATGPT_PROMPT=hi\nLOG_LEVEL=DEBUG\n")

		s, err := buildScheduler(&cfg, store)
		assert.NoError(t, err)
		assert.NotNil(t, s)
		assert.Equal(t, log.DebugLevel, log.GetLevel())
	})

	t.Run("missing_file", func(t *testing.T) {
		cfg := config.DefaultConfig()

		_, err := buildScheduler(&cfg, writeTestSettings(t, ""))
		assert.Error(t, err)
	})

	t.Run("missing_key", func(t *testing.T) {
		cfg := config.DefaultConfig()

		_, err := buildScheduler(&cfg, writeTestSettings(t, "GMAIL_USER=bot@example.com\n"))
		assert.ErrorIs(t, err, settings.ErrMissingKey)
	})

	t.Run("bad_url", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.IMAPURL = "http://imap.gmail.com"

		_, err := buildScheduler(&cfg, writeTestSettings(t, "GMAIL_USER=bot@example.com\nGMAIL_PASS=x\nOPENAI_API_KEY=sk\nCHATGPT_PROMPT=hi\n"))
		assert.Error(t, err)
	})

	t.Run("bad_auth_method", func(t *testing.T) {
		cfg := config.DefaultConfig()

		_, err := buildScheduler(&cfg, writeTestSettings(t, "GMAIL_USER=bot@example.com\nGMAIL_PASS=x\nOPENAI_API_KEY=sk\nCHATGPT_PROMPT=hi\nGMAIL_AUTH_METHOD=XOAUTH2\n"))
		assert.Error(t, err)
	})
}
