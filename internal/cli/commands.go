// Package cli provides the Cobra-based operator CLI for storefront.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/clock"
	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/pricing"
	"storefront/internal/service"
	"storefront/internal/store"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	settings = config.New()

	rootCmd = &cobra.Command{
		Use:           "storectl",
		Short:         "Operator tooling for the storefront service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// tests inject the backend
			if be != nil {
				return nil
			}
			_ = godotenv.Load()

			cfg, err := config.FromViper(settings)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			be = &backend{cfg: cfg, logger: log, clock: clock.System{}}
			return nil
		},
	}

	be *backend

	operatorID int64
)

func operator() models.Actor {
	return models.Actor{ID: operatorID, Role: models.RoleSuperAdmin}
}

func printJSON(w io.Writer, val interface{}) error {
	b, err := json.MarshalIndent(val, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func bindFlags(vp *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for flag, key := range keys {
		if err := vp.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func init() {
	rootCmd.PersistentFlags().String("store", "postgres", "store backend: postgres|memory")
	rootCmd.PersistentFlags().String("database-url", "", "postgres connection string")
	rootCmd.PersistentFlags().String("log-level", "info", "log level")
	rootCmd.PersistentFlags().Bool("redis-enabled", true, "use redis for notifications")
	rootCmd.PersistentFlags().String("migrations-dir", "migrations", "directory of .sql migrations")
	rootCmd.PersistentFlags().Int64Var(&operatorID, "operator-id", 1, "user id recorded for operator actions")
	bindFlags(settings, rootCmd, map[string]string{
		"store":          "store",
		"database-url":   "database_url",
		"log-level":      "log_level",
		"redis-enabled":  "redis_enabled",
		"migrations-dir": "migrations_dir",
	})

	// migrate
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQL migrations to the postgres store",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := be.Store()
			if err != nil {
				return err
			}
			db, ok := st.(*store.DBStore)
			if !ok {
				return errors.New("migrate requires the postgres store")
			}
			if err := store.RunMigrations(db.DB, be.cfg.MigrationsDir, be.logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	rootCmd.AddCommand(migrateCmd)

	// price
	var at string
	priceCmd := &cobra.Command{
		Use:   "price <product-id>",
		Short: "Resolve the current price of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			now := be.clock.Now()
			if at != "" {
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
			}
			st, err := be.Store()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			p, err := st.GetProduct(ctx, id)
			if err != nil {
				return err
			}
			if p == nil {
				return apperr.NewNotFound("product", id)
			}
			sales, err := st.ListProductSalesForProducts(ctx, []int64{id})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pricing.CurrentPrice(*p, sales, now))
		},
	}
	priceCmd.Flags().StringVar(&at, "at", "", "RFC3339 instant to price at (default now)")
	rootCmd.AddCommand(priceCmd)

	// stock
	var delta int
	stockCmd := &cobra.Command{
		Use:   "stock <product-id> --delta <n>",
		Short: "Adjust the stock of a product by delta",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if delta == 0 {
				return errors.New("--delta required")
			}
			d, err := be.Deps()
			if err != nil {
				return err
			}
			p, err := service.NewCatalogService(d).AdjustStock(cmd.Context(), operator(), id, delta)
			if err != nil {
				return err
			}
			be.logger.Info("stock adjusted",
				zap.Int64("product_id", id),
				zap.Int("delta", delta),
				zap.Int("quantity", p.Quantity),
			)
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	stockCmd.Flags().IntVar(&delta, "delta", 0, "units to add (negative to remove)")
	rootCmd.AddCommand(stockCmd)

	// approve
	approveCmd := &cobra.Command{
		Use:   "approve <product-id>",
		Short: "Approve a product for sale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			d, err := be.Deps()
			if err != nil {
				return err
			}
			p, err := service.NewCatalogService(d).ApproveProduct(cmd.Context(), operator(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	rootCmd.AddCommand(approveCmd)

	// sales
	salesCmd := &cobra.Command{
		Use:   "sales",
		Short: "Inspect and announce sale events",
	}

	salesActiveCmd := &cobra.Command{
		Use:   "active",
		Short: "List sale events running now",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := be.Deps()
			if err != nil {
				return err
			}
			events, err := service.NewSaleService(d).ActiveSales(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), events)
		},
	}
	salesCmd.AddCommand(salesActiveCmd)

	var from, to string
	var since time.Duration
	salesAnnounceCmd := &cobra.Command{
		Use:   "announce",
		Short: "Notify wishlist owners about sale events that started in a window",
		Long: "Notify wishlist owners about sale events whose start falls in (from, to].\n" +
			"Without --from the window opens --since before --to.",
		RunE: func(cmd *cobra.Command, args []string) error {
			end := be.clock.Now()
			var err error
			if to != "" {
				if end, err = time.Parse(time.RFC3339, to); err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
			}
			start := end.Add(-since)
			if from != "" {
				if start, err = time.Parse(time.RFC3339, from); err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
			}
			if !start.Before(end) {
				return errors.New("--from must be before --to")
			}
			d, err := be.Deps()
			if err != nil {
				return err
			}
			n, err := service.NewSaleService(d).AnnounceStartedSales(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d notifications published\n", n)
			return nil
		},
	}
	salesAnnounceCmd.Flags().StringVar(&from, "from", "", "RFC3339 window start (exclusive)")
	salesAnnounceCmd.Flags().StringVar(&to, "to", "", "RFC3339 window end (inclusive, default now)")
	salesAnnounceCmd.Flags().DurationVar(&since, "since", time.Hour, "window length when --from is not set")
	salesCmd.AddCommand(salesAnnounceCmd)
	rootCmd.AddCommand(salesCmd)

	// notifications
	var limit int64
	notificationsCmd := &cobra.Command{
		Use:   "notifications",
		Short: "Show the newest entries of the notification outbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			ob, err := be.Outbox()
			if err != nil {
				return err
			}
			ns, err := ob.RecentNotifications(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ns)
		},
	}
	notificationsCmd.Flags().Int64Var(&limit, "limit", 20, "number of entries")
	rootCmd.AddCommand(notificationsCmd)

	// token
	var userID int64
	var role string
	var ttl time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if be.cfg.JWTSecret == "" {
				return errors.New("STOREFRONT_JWT_SECRET must be set")
			}
			if userID <= 0 {
				return errors.New("--user-id required")
			}
			actor := models.Actor{ID: userID, Role: models.Role(role)}
			if !actor.Role.Valid() {
				return auth.ErrInvalidRole
			}
			token, err := auth.GenerateToken(be.cfg.JWTSecret, actor, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().Int64Var(&userID, "user-id", 0, "subject user id")
	tokenCmd.Flags().StringVar(&role, "role", string(models.RoleBuyer), "buyer|seller|admin|super_admin")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

// Execute runs the root command and releases any connections it opened.
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if be != nil {
		if cerr := be.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
