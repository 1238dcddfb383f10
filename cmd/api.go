package cmd

import (
	"context"

	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/openmlhub/model-registry/internal/registry/controller"
	"github.com/openmlhub/model-registry/internal/registry/dao"
	"github.com/openmlhub/model-registry/internal/registry/model"
	"github.com/openmlhub/model-registry/internal/registry/service"
	"github.com/openmlhub/model-registry/internal/web"
	"github.com/openmlhub/model-registry/library/db/mongo"
	"github.com/openmlhub/model-registry/library/log"
)

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `model registry HTTP API service`,
	Args:  gcmd.NoExtraArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return initialize(context.Background(), cmd)
	},
	Run: func(cmd *cobra.Command, args []string) {
		runAPI(context.Background())
	},
}

// runAPI wires up everything explicitly: store -> dao -> service ->
// controller -> http server. A missing or unreachable store is not
// fatal; the server starts in degraded mode and /test reports why.
func runAPI(ctx context.Context) {
	var (
		db  mongo.DB
		d   *dao.Registry
		err error
	)
	if db, err = model.NewRegistryDB(ctx); err != nil {
		log.Logger.Warn("start without model store", zap.Error(err))
	} else {
		d = dao.New(log.Logger.Named("dao"), db)
		defer db.Close(ctx) //nolint:errcheck
	}

	svc := service.New(log.Logger.Named("registry"), d)
	ctrl := controller.New(log.Logger.Named("controller"), svc, db)

	web.RunServer(gconfig.Shared.GetString("listen"), ctrl)
}

func init() {
	rootCMD.AddCommand(apiCMD)
}
