package config

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/emersion/go-sasl"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"

	"github.com/vs49688/mailresponder/imap"
	mock_imap "github.com/vs49688/mailresponder/imap/mocks"
	"github.com/vs49688/mailresponder/reply"
	"github.com/vs49688/mailresponder/settings"
)

func getTestSettings(extra map[string]string) settings.Settings {
	values := map[string]string{
		settings.KeyUser:   "username",
		settings.KeyPass:   "password",
		settings.KeyAPIKey: "sk-test",
		settings.KeyPrompt: "Be nice.",
	}
	for k, v := range extra {
		values[k] = v
	}
	return settings.New(values)
}

func TestCliConfig_ResolveIMAP(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := DefaultConfig()

		connConfig, err := cfg.ResolveIMAP()
		assert.NoError(t, err)
		assert.Equal(t, imap.ConnectionConfig{
			HostPort:  "imap.gmail.com:993",
			Mailbox:   "INBOX",
			TLS:       true,
			TLSConfig: nil,
		}, connConfig)
	})

	t.Run("plain_default_port", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.IMAPURL = "imap://imap.hostname.com/Support"

		connConfig, err := cfg.ResolveIMAP()
		assert.NoError(t, err)
		assert.Equal(t, "imap.hostname.com:143", connConfig.HostPort)
		assert.Equal(t, "Support", connConfig.Mailbox)
		assert.False(t, connConfig.TLS)
	})

	t.Run("no_mailbox", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.IMAPURL = "imaps://imap.hostname.com:1234"

		connConfig, err := cfg.ResolveIMAP()
		assert.NoError(t, err)
		assert.Equal(t, "imap.hostname.com:1234", connConfig.HostPort)
		assert.Equal(t, "INBOX", connConfig.Mailbox)
	})

	t.Run("tls", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TLSSkipVerify = true

		connConfig, err := cfg.ResolveIMAP()
		assert.NoError(t, err)
		assert.Equal(t, &tls.Config{InsecureSkipVerify: true}, connConfig.TLSConfig)
	})

	t.Run("bad_scheme", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.IMAPURL = "pop3://pop.hostname.com"

		_, err := cfg.ResolveIMAP()
		assert.ErrorIs(t, err, errInvalidScheme)
	})

	t.Run("no_host", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.IMAPURL = "imaps:///INBOX"

		_, err := cfg.ResolveIMAP()
		assert.ErrorIs(t, err, errNoHost)
	})
}

func TestCliConfig_ResolveSMTP(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := DefaultConfig()

		smtpConfig, err := cfg.ResolveSMTP()
		assert.NoError(t, err)
		assert.Equal(t, reply.Config{HostPort: "smtp.gmail.com:465", TLS: true}, smtpConfig)
	})

	t.Run("starttls", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SMTPURL = "smtp://mail.hostname.com"

		smtpConfig, err := cfg.ResolveSMTP()
		assert.NoError(t, err)
		assert.Equal(t, reply.Config{HostPort: "mail.hostname.com:587", TLS: false}, smtpConfig)
	})

	t.Run("bad_scheme", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SMTPURL = "imaps://smtp.gmail.com"

		_, err := cfg.ResolveSMTP()
		assert.ErrorIs(t, err, errInvalidScheme)
	})
}

func TestCliConfig_ResolveCompletion(t *testing.T) {
	cfg := DefaultConfig()

	c, err := cfg.ResolveCompletion()
	assert.NoError(t, err)
	assert.Equal(t, "https://api.openai.com/v1", c.BaseURL)

	cfg.CompletionURL = "ftp://example.com"
	_, err = cfg.ResolveCompletion()
	assert.ErrorIs(t, err, errInvalidScheme)
}

func TestCliConfig_Logging(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFile = "/var/log/mailresponder.log"

	l := cfg.Logging()
	assert.Equal(t, "/var/log/mailresponder.log", l.File)
	assert.Equal(t, 1, l.MaxSizeMB)
	assert.Equal(t, 5, l.MaxBackups)
	assert.Equal(t, "text", l.Format)
}

func TestResolveAuth(t *testing.T) {
	t.Run("login", func(t *testing.T) {
		ctrl := gomock.NewController(t)

		mockAuth := mock_imap.NewMockAuthenticatable(ctrl)
		mockAuth.EXPECT().Login("username", "password")

		auth, err := ResolveAuth(getTestSettings(nil))
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		assert.NoError(t, auth.Authenticate(mockAuth))
	})

	t.Run("plain", func(t *testing.T) {
		ctrl := gomock.NewController(t)

		mockAuth := mock_imap.NewMockAuthenticatable(ctrl)
		mockAuth.EXPECT().Authenticate(gomock.Any()).DoAndReturn(func(c sasl.Client) error {
			mech, ir, err := c.Start()
			if err != nil {
				return err
			}

			assert.Equal(t, "PLAIN", mech)
			assert.Equal(t, []byte("\x00username\x00password"), ir)
			return nil
		})

		auth, err := ResolveAuth(getTestSettings(map[string]string{settings.KeyAuthMethod: "plain"}))
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		assert.NoError(t, auth.Authenticate(mockAuth))
	})

	t.Run("oauthbearer", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
			assert.Equal(t, "password", r.PostForm.Get("refresh_token"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token": "access-123", "token_type": "Bearer", "expires_in": 3600}`))
		}))
		t.Cleanup(srv.Close)

		oldEndpoint := oauthEndpoint
		oauthEndpoint = oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams}
		t.Cleanup(func() { oauthEndpoint = oldEndpoint })

		ctrl := gomock.NewController(t)

		mockAuth := mock_imap.NewMockAuthenticatable(ctrl)
		mockAuth.EXPECT().Authenticate(gomock.Any()).DoAndReturn(func(c sasl.Client) error {
			mech, ir, err := c.Start()
			if err != nil {
				return err
			}

			assert.Equal(t, sasl.OAuthBearer, mech)
			assert.Contains(t, string(ir), "a=username,")
			assert.Contains(t, string(ir), "auth=Bearer access-123")
			return nil
		})

		auth, err := ResolveAuth(getTestSettings(map[string]string{
			settings.KeyAuthMethod:    "OAUTHBEARER",
			settings.KeyOAuthClientID: "client-id",
		}))
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		assert.NoError(t, auth.Authenticate(mockAuth))
	})

	t.Run("oauthbearer_needs_client_id", func(t *testing.T) {
		_, err := ResolveAuth(getTestSettings(map[string]string{settings.KeyAuthMethod: "OAUTHBEARER"}))
		assert.Error(t, err)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := ResolveAuth(getTestSettings(map[string]string{settings.KeyAuthMethod: "CRAM-MD5"}))
		assert.EqualError(t, err, "unsupported auth method: CRAM-MD5")
	})

	t.Run("missing_password", func(t *testing.T) {
		_, err := ResolveAuth(settings.New(map[string]string{settings.KeyUser: "username"}))
		assert.Error(t, err)
	})
}

func TestOAuth2Config_Resolve(t *testing.T) {
	cfg := OAuth2Config{ClientID: " id ", ClientSecret: "secret"}
	assert.NoError(t, cfg.Resolve())
	assert.Equal(t, "id", cfg.Config.ClientID)
	assert.Equal(t, []string{"https://mail.google.com/"}, cfg.Config.Scopes)

	assert.Error(t, (&OAuth2Config{}).Resolve())
}
