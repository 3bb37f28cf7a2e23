// Command unitrec 运行推荐服务，或在命令行直接写入交互/查询推荐。
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rushteam/unitrec/config"
	"github.com/rushteam/unitrec/config/builders"
	"github.com/rushteam/unitrec/pkg/logging"
	"github.com/rushteam/unitrec/service"
	"github.com/rushteam/unitrec/store"
)

var Version = "dev"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "unitrec",
		Short:         "Multi-tenant user-based collaborative filtering recommender",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $UNITREC_CONFIG or ./unitrec.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(recommendCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap 加载配置、初始化日志、打开存储并组装推荐服务。
func bootstrap(ctx context.Context) (*config.Settings, *service.Recommender, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logging.Init(settings.LogConfig())

	p, err := builders.NewPipeline(settings.Recommend)
	if err != nil {
		return nil, nil, fmt.Errorf("build pipeline: %w", err)
	}
	events, catalog, err := store.Open(ctx, settings.StoreOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	rec, err := service.NewRecommender(events, catalog, p)
	if err != nil {
		_ = events.Close()
		_ = catalog.Close()
		return nil, nil, err
	}
	logging.Info().
		Str("driver", settings.Store.Driver).
		Str("metric", settings.Recommend.Metric).
		Int("neighbors", settings.Recommend.Neighbors).
		Int("pipeline_nodes", len(p.Nodes)).
		Msg("recommender ready")
	return settings, rec, nil
}
