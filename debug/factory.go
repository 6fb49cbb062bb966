package debug

import (
	"context"
	"time"

	"github.com/rudderlabs/rudder-go-kit/config"
	"github.com/rudderlabs/rudder-go-kit/logger"

	"github.com/xhd2015/dlv-rpc/debug/common"
	"github.com/xhd2015/dlv-rpc/debug/headless"
)

// Settings are the client settings read from configuration.
type Settings struct {
	Host        string
	Port        int
	Transport   string
	DialTimeout time.Duration
}

// LoadSettings reads the Debugger.* keys.
func LoadSettings(conf *config.Config) Settings {
	return Settings{
		Host:        conf.GetStringVar(headless.DefaultHost, "Debugger.host"),
		Port:        conf.GetIntVar(headless.DefaultPort, 1, "Debugger.port"),
		Transport:   conf.GetStringVar("http", "Debugger.transport"),
		DialTimeout: conf.GetDurationVar(10, time.Second, "Debugger.dialTimeout"),
	}
}

// NewClient connects a client as configured by conf, upgrading its
// transport when Debugger.transport asks for a persistent one.
func NewClient(ctx context.Context, conf *config.Config, log logger.Logger) (*headless.Client, error) {
	settings := LoadSettings(conf)
	mode, upgrade, err := headless.ParseTransport(settings.Transport)
	if err != nil {
		return nil, err
	}

	client, err := headless.New(ctx, settings.Host, settings.Port,
		headless.WithLogger(log),
		headless.WithDialTimeout(settings.DialTimeout),
	)
	if err != nil {
		return nil, err
	}
	if upgrade {
		if err := client.Upgrade(ctx, mode); err != nil {
			client.Close()
			return nil, err
		}
	}
	return client, nil
}

// NewSessionManager creates a session manager whose clients use the
// configured dial timeout.
func NewSessionManager(conf *config.Config, log logger.Logger) common.SessionManager {
	settings := LoadSettings(conf)
	return headless.NewSessionManager(log, headless.WithDialTimeout(settings.DialTimeout))
}
