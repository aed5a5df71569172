package main

import (
	"context"
	"sync"
	"time"

	"github.com/valstan/setka/internal/carousel"
	"github.com/valstan/setka/internal/core"
	"github.com/valstan/setka/internal/dispatch"
	"github.com/valstan/setka/internal/filters"
	"github.com/valstan/setka/internal/ingest"
	"github.com/valstan/setka/internal/queue"
	"github.com/valstan/setka/internal/ratelimit"
	"github.com/valstan/setka/internal/store"
	"github.com/valstan/setka/internal/upstream"
)

// runtime bundles every collaborator built from a Config: the store seeded
// with its region/community/credential roster, the pooled upstream client
// factory, and the rate gate. The gate is called only when a client reports
// a rate-limit event, and its decision is discarded; outbound requests are
// not admitted through it.
type runtime struct {
	cfg    *Config
	store  *store.Store
	gate   *ratelimit.Gate
	logger core.Logger

	clientsMu sync.Mutex
	clients   map[int64]*upstream.Client
}

// newRuntime seeds a fresh Store from cfg and wires the collaborators
// every subcommand needs.
func newRuntime(cfg *Config, logger core.Logger) (*runtime, error) {
	if logger == nil {
		logger = core.NopLogger{}
	}
	st := store.New()
	ctx := context.Background()

	regionByCode := make(map[string]core.Region, len(cfg.Regions))
	for _, rs := range cfg.Regions {
		region, err := st.Regions.Create(ctx, core.Region{
			Code:          rs.Code,
			Name:          rs.Name,
			Neighbors:     rs.Neighbors,
			LocalHashtags: rs.LocalHashtags,
			IsActive:      true,
		})
		if err != nil {
			return nil, err
		}
		regionByCode[rs.Code] = region
		st.Keywords.SetKeywords(region.ID, rs.Keywords)

		for _, cs := range rs.Communities {
			if _, err := st.Communities.Create(ctx, core.Community{
				RegionID:   region.ID,
				ExternalID: cs.ExternalID,
				ScreenName: cs.ScreenName,
				Name:       cs.Name,
				Category:   core.CommunityCategory(cs.Category),
				IsActive:   true,
			}); err != nil {
				return nil, err
			}
		}
	}

	for _, cs := range cfg.Credentials {
		if _, err := st.Credentials.Create(ctx, core.Credential{
			Name:     cs.Name,
			Secret:   cs.Secret,
			IsActive: true,
			Status:   core.CredentialStatusUnknown,
		}); err != nil {
			return nil, err
		}
	}

	var rateStore ratelimit.Store
	if cfg.RedisAddr != "" {
		rateStore = newRedisRateStore(cfg.RedisAddr)
	} else {
		rateStore = ratelimit.NewMemStore()
	}
	gate := ratelimit.New(rateStore, nil, nil, logger)

	return &runtime{cfg: cfg, store: st, gate: gate, logger: logger, clients: map[int64]*upstream.Client{}}, nil
}

// clientFor returns the pooled *upstream.Client bound to credential,
// building and caching one on first use per spec §4.D's "one client per
// credential" pooling rule.
func (r *runtime) clientFor(credential core.Credential) *upstream.Client {
	r.clientsMu.Lock()
	defer r.clientsMu.Unlock()
	if c, ok := r.clients[credential.ID]; ok {
		return c
	}
	c := upstream.New(r.cfg.BaseURL, &credential, upstream.JSONDecoder{}, r.logger)
	c.OnRateLimitEvent = func() {
		r.gate.Admit(context.Background(), ratelimit.ScopeCredential, "credential-rate-event", ratelimit.DefaultCredentialLimit)
	}
	r.clients[credential.ID] = c
	return c
}

// buildDispatcher wires the Scheduler, Queue, ingest collaborators, and
// Directory adapter into a Dispatcher ready to run.
func (r *runtime) buildDispatcher() *dispatch.Dispatcher {
	scheduler := carousel.New(time.Duration(r.cfg.MinScanIntervalMins)*time.Minute, r.cfg.MaxConcurrentScans)
	q := queue.New(r.cfg.QueueCapacity, r.logger)
	directory := store.NewDirectory(r.store)

	scanner := ingest.NewScanner(r.store, filters.DefaultConfig(), r.clientFor, r.logger)
	validator := ingest.NewValidator(r.store, r.clientFor)
	tuner := ingest.NewFrequencyTuner(r.store)
	status := ingest.NewStatusReporter(r.store, r.logger)

	return dispatch.New(dispatch.Config{
		Scheduler: scheduler,
		Queue:     q,
		Directory: directory,
		Scanner:   scanner,
		Validator: validator,
		Tuner:     tuner,
		Status:    status,
		Tasks:     r.store.Tasks,
		Logger:    r.logger,
	})
}
