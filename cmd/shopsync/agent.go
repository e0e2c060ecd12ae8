package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/talkincode/shopsync/config"
	"github.com/talkincode/shopsync/internal/domain"
	"github.com/talkincode/shopsync/internal/syncclient"
	"go.uber.org/zap"
)

var remoteFlags struct {
	Endpoint string
	Username string
	Password string
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Follow a catalog server and log every change",
	RunE:  agentFunc,
}

func init() {
	addRemoteFlags(agentCmd)
	RootCmd.AddCommand(agentCmd)
}

func addRemoteFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&remoteFlags.Endpoint, "endpoint", "e", "", "state endpoint, overrides sync.endpoint")
	cmd.Flags().StringVarP(&remoteFlags.Username, "username", "u", "", "admin username for protected writes")
	cmd.Flags().StringVarP(&remoteFlags.Password, "password", "p", "", "admin password")
}

// newRemote builds the HTTP remote from config and flags, logging in when credentials
// were given.
func newRemote(ctx context.Context, cfg *config.AppConfig) (*syncclient.HTTPRemote, error) {
	endpoint := cfg.Sync.Endpoint
	if remoteFlags.Endpoint != "" {
		endpoint = remoteFlags.Endpoint
	}
	remote := syncclient.NewHTTPRemote(endpoint, cfg.Sync.Timeout(), cfg.Sync.Token)
	if remoteFlags.Username != "" {
		if err := remote.Login(ctx, remoteFlags.Username, remoteFlags.Password); err != nil {
			return nil, err
		}
	}
	return remote, nil
}

func agentFunc(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupClientLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	remote, err := newRemote(ctx, cfg)
	if err != nil {
		return err
	}
	engine, err := syncclient.New(remote, syncclient.OptionsFromConfig(cfg.Sync))
	if err != nil {
		return err
	}
	defer engine.Close()

	log := zap.L().With(zap.String("namespace", "agent"))
	_ = engine.Subscribe(syncclient.TopicChanged, func(s *domain.Snapshot) {
		log.Info("catalog state",
			zap.Int64("version", s.Version),
			zap.Int("products", len(s.Products)),
			zap.Strings("categories", s.Categories),
			zap.String("theme", s.Theme),
			zap.Int("page_size", s.PageSize))
	})
	_ = engine.Subscribe(syncclient.TopicError, func(err error) {
		log.Warn("sync error", zap.Error(err))
	})

	if err := engine.Start(ctx); err != nil {
		log.Warn("server not reachable yet, polling continues", zap.Error(err))
	}
	log.Info("following catalog", zap.String("endpoint", remote.Endpoint()))
	<-ctx.Done()
	return nil
}
