package cli

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/clock"
	"storefront/internal/config"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/pricing"
	"storefront/internal/service"
	"storefront/internal/store"

	"go.uber.org/zap"
)

// outbox reads back notifications that were handed to the delivery service.
type outbox interface {
	RecentNotifications(ctx context.Context, limit int64) ([]models.Notification, error)
}

// backend holds what commands need. Store and publisher are opened on first
// use so that commands like token issue work without a database.
type backend struct {
	cfg    *config.Config
	logger *zap.Logger
	clock  clock.Clock

	store     store.Store
	publisher notify.Publisher
	outbox    outbox

	closers []func() error
}

func (b *backend) Store() (store.Store, error) {
	if b.store != nil {
		return b.store, nil
	}
	st, err := store.NewStore(b.cfg.StoreKind, b.cfg.DBDriver, b.cfg.DBDataSourceName)
	if err != nil {
		return nil, err
	}
	b.store = st
	b.closers = append(b.closers, st.Close)
	return st, nil
}

func (b *backend) connectRedis() error {
	if !b.cfg.RedisEnabled {
		return errors.New("redis is disabled (STOREFRONT_REDIS_ENABLED=false)")
	}
	client, err := store.NewRedisClient(b.cfg.RedisAddr, b.cfg.RedisPassword, b.cfg.RedisDB)
	if err != nil {
		return err
	}
	rs := store.NewRedisStore(client)
	b.publisher = rs
	b.outbox = rs
	b.closers = append(b.closers, rs.Close)
	return nil
}

// Publisher falls back to logging when Redis is disabled.
func (b *backend) Publisher() (notify.Publisher, error) {
	if b.publisher != nil {
		return b.publisher, nil
	}
	if !b.cfg.RedisEnabled {
		b.publisher = notify.LogPublisher{Logger: b.logger}
		return b.publisher, nil
	}
	if err := b.connectRedis(); err != nil {
		return nil, err
	}
	return b.publisher, nil
}

func (b *backend) Outbox() (outbox, error) {
	if b.outbox != nil {
		return b.outbox, nil
	}
	if err := b.connectRedis(); err != nil {
		return nil, err
	}
	return b.outbox, nil
}

func (b *backend) Deps() (service.Deps, error) {
	st, err := b.Store()
	if err != nil {
		return service.Deps{}, err
	}
	pub, err := b.Publisher()
	if err != nil {
		return service.Deps{}, err
	}
	return service.Deps{
		Logger:    b.logger,
		Store:     st,
		Resolver:  pricing.NewResolver(b.clock),
		Publisher: pub,
	}, nil
}

func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("closing backend: %w", err)
	}
	return nil
}
