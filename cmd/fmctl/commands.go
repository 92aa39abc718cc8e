package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"foundermatch/internal/config"
	"foundermatch/internal/repository/postgres"
	"foundermatch/pkg/db"
	"foundermatch/pkg/logger"
	"foundermatch/pkg/mq"
	"foundermatch/pkg/outbox"
)

// env 命令执行所需的配置、日志和数据库连接
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
}

func (g *globalFlags) open(ctx context.Context) (*env, error) {
	cfg, err := config.Load(g.env, g.configDir)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Driver != config.DriverPostgres {
		return nil, fmt.Errorf("fmctl needs postgres storage, got %q", cfg.Storage.Driver)
	}
	log := logger.NewLogger(cfg.Log.Level)
	pool, err := db.NewConnection(ctx, cfg.DB, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: log, pool: pool}, nil
}

func (e *env) close() {
	e.pool.Close()
	_ = e.logger.Sync()
}

func migrateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			applied, err := db.Migrate(cmd.Context(), e.pool, postgres.Migrations(), e.logger)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", v)
			}
			return nil
		},
	}
}

func outboxCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and replay outbox events",
	}

	var limit int
	failed := &cobra.Command{
		Use:   "failed",
		Short: "List events that exhausted their retries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			events, err := outbox.NewRepository(e.pool, e.logger).GetFailedEvents(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), events)
		},
	}
	failed.Flags().IntVar(&limit, "limit", 50, "Maximum number of events to list")

	replay := &cobra.Command{
		Use:   "replay <event-id>",
		Short: "Republish a single event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid event id %q", args[0])
			}
			return withReplay(cmd.Context(), g, func(svc *outbox.ReplayService) error {
				if err := svc.ReplayEvent(cmd.Context(), id); err != nil {
					if errors.Is(err, outbox.ErrEventNotFound) {
						return fmt.Errorf("event %d not found", id)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "event %d replayed\n", id)
				return nil
			})
		},
	}

	var replayLimit int
	replayFailed := &cobra.Command{
		Use:   "replay-failed",
		Short: "Republish failed events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withReplay(cmd.Context(), g, func(svc *outbox.ReplayService) error {
				n, err := svc.ReplayFailedEvents(cmd.Context(), replayLimit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "replayed %d events\n", n)
				return nil
			})
		},
	}
	replayFailed.Flags().IntVar(&replayLimit, "limit", 100, "Maximum number of events to replay")

	cmd.AddCommand(failed, replay, replayFailed)
	return cmd
}

// withReplay 重放需要 MQ；事件直接发布到交换机，由 worker 消费
func withReplay(ctx context.Context, g *globalFlags, fn func(*outbox.ReplayService) error) error {
	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.close()
	if e.cfg.MQ.URL == "" {
		return errors.New("mq.url is required to replay events")
	}

	publisher, err := mq.NewPublisher(e.cfg.MQ.URL)
	if err != nil {
		return err
	}
	defer publisher.Close()

	return fn(outbox.NewReplayService(outbox.NewRepository(e.pool, e.logger), publisher, e.logger))
}

func printEvents(w io.Writer, events []*outbox.Event) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "no failed events")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROUTING KEY\tAGGREGATE\tRETRIES\tUPDATED")
	for _, ev := range events {
		agg := ev.AggregateType
		if ev.AggregateID != nil {
			agg = fmt.Sprintf("%s/%d", ev.AggregateType, *ev.AggregateID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", ev.ID, ev.RoutingKey, agg, ev.RetryCount, ev.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
