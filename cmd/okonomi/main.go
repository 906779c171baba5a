package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/okonomi/internal/accounting/client"
	"github.com/smallbiznis/okonomi/internal/audit"
	"github.com/smallbiznis/okonomi/internal/clock"
	"github.com/smallbiznis/okonomi/internal/config"
	"github.com/smallbiznis/okonomi/internal/keylock"
	"github.com/smallbiznis/okonomi/internal/messaging"
	"github.com/smallbiznis/okonomi/internal/migration"
	"github.com/smallbiznis/okonomi/internal/observability"
	"github.com/smallbiznis/okonomi/internal/server"
	"github.com/smallbiznis/okonomi/internal/tilbakekreving"
	"github.com/smallbiznis/okonomi/internal/utbetaling"
	"github.com/smallbiznis/okonomi/pkg/db"
	"github.com/smallbiznis/okonomi/pkg/telemetry"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		telemetry.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		keylock.Module,

		// Functional Domains
		audit.Module,
		utbetaling.Module,
		tilbakekreving.Module,

		// Integrations
		client.Module,
		messaging.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) *snowflake.Node {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		panic(err)
	}
	return node
}
