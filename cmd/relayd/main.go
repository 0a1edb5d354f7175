// Command relayd runs the notification relay: a stateless bridge
// between the task daemon and the messaging provider, plus the
// provider's webhook endpoint.
package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/charmbracelet/log"

	"github.com/nhle/daily-todo/internal/credential"
	"github.com/nhle/daily-todo/internal/messenger"
	"github.com/nhle/daily-todo/internal/model"
	"github.com/nhle/daily-todo/internal/relay"
)

func main() {
	saveCredentials := flag.Bool("save-credentials", false,
		"store VERIFY_TOKEN and PAGE_ACCESS_TOKEN from the environment in the OS keyring and exit")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "relayd",
	})

	cfg, err := model.LoadRelayConfig()
	if err != nil {
		logger.Fatal("loading config", "err", err)
	}

	if *saveCredentials {
		if cfg.VerifyToken == "" && cfg.PageAccessToken == "" {
			logger.Fatal("nothing to save: VERIFY_TOKEN and PAGE_ACCESS_TOKEN are both unset")
		}
		if cfg.VerifyToken != "" {
			if err := credential.Set(credential.VerifyTokenKey, cfg.VerifyToken); err != nil {
				logger.Fatal("saving verify token", "err", err)
			}
		}
		if cfg.PageAccessToken != "" {
			if err := credential.Set(credential.PageAccessTokenKey, cfg.PageAccessToken); err != nil {
				logger.Fatal("saving access token", "err", err)
			}
		}
		logger.Info("credentials saved to keyring")
		return
	}

	// Environment wins; the keyring fills gaps.
	if cfg.VerifyToken == "" {
		if v, err := credential.Get(credential.VerifyTokenKey); err == nil {
			cfg.VerifyToken = v
		}
	}
	if cfg.PageAccessToken == "" {
		if v, err := credential.Get(credential.PageAccessTokenKey); err == nil {
			cfg.PageAccessToken = v
		}
	}

	if cfg.VerifyToken == "" {
		logger.Warn("no verify token configured, webhook verification will reject all requests")
	}

	var client *messenger.Client
	if cfg.PageAccessToken != "" {
		client = messenger.NewClient(cfg.GraphBaseURL, cfg.PageAccessToken)
	} else {
		logger.Warn("no page access token configured, sends will fail")
	}

	handler := relay.New(cfg.VerifyToken, client, logger)

	logger.Info("relay listening", "addr", cfg.ListenAddr, "providerConfigured", client != nil)
	if err := http.ListenAndServe(cfg.ListenAddr, handler.Routes()); err != nil {
		logger.Fatal("server stopped", "err", err)
	}
}
