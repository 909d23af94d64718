package jobs

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"staffhub/internal/repositories"
)

const tenantPageSize = 100

// TokenRetention sweeps refresh-token rows whose forensic value has aged out.
// Rotation never deletes rows; this job is the data-retention flow that
// eventually does, well outside the request hot path.
type TokenRetention struct {
	scheduler  gocron.Scheduler
	tenantRepo repositories.TenantRepository
	tokenRepo  repositories.TokenRepository
	retention  time.Duration
}

func NewTokenRetention(tenantRepo repositories.TenantRepository, tokenRepo repositories.TokenRepository, retention time.Duration) (*TokenRetention, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	tr := &TokenRetention{
		scheduler:  scheduler,
		tenantRepo: tenantRepo,
		tokenRepo:  tokenRepo,
		retention:  retention,
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(tr.sweep, context.Background()),
		gocron.WithName("refresh-token-retention"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	return tr, nil
}

func (tr *TokenRetention) Start() {
	log.Printf("Starting token retention sweeper (retention %s)", tr.retention)
	tr.scheduler.Start()
}

func (tr *TokenRetention) Stop() error {
	return tr.scheduler.Shutdown()
}

// sweep walks every live tenant and purges stale rows in its schema. One
// tenant failing does not stop the others.
func (tr *TokenRetention) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-tr.retention)

	for offset := 0; ; offset += tenantPageSize {
		tenants, err := tr.tenantRepo.List(ctx, tenantPageSize, offset)
		if err != nil {
			log.Printf("token retention: failed to list tenants: %v", err)
			return
		}
		if len(tenants) == 0 {
			return
		}

		for _, tenant := range tenants {
			purged, err := tr.tokenRepo.PurgeStale(ctx, tenant.Context(), cutoff)
			if err != nil {
				log.Printf("token retention: tenant %s: %v", tenant.ID, err)
				continue
			}
			if purged > 0 {
				log.Printf("token retention: tenant %s: purged %d rows", tenant.ID, purged)
			}
		}
	}
}
