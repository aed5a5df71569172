// Package ingest wires the Upstream Client, Filter Pipeline, fingerprinter,
// and sentiment lexicon into the collaborators the Work Dispatcher needs:
// a Scanner that runs one carousel scan end to end, a Validator that
// probes a credential, a FrequencyTuner that reports the scheduler's
// self-tuning input, and a StatusReporter that logs an operator summary.
// This is the glue spec §4.I assumes exists without naming it its own
// module — the teacher's cmd/hercules wires its leaves together the same
// way, one file per concern, composition rather than a framework.
package ingest

import (
	"context"
	"fmt"
	"sort"

	"github.com/valstan/setka/internal/core"
	"github.com/valstan/setka/internal/filters"
	"github.com/valstan/setka/internal/fingerprint"
	"github.com/valstan/setka/internal/sentiment"
	"github.com/valstan/setka/internal/store"
	"github.com/valstan/setka/internal/upstream"
)

const postsPerCommunityFetch = 100

// ClientFactory builds the pooled Upstream Client bound to one credential.
// Production wiring caches one *upstream.Client per credential id; tests
// can substitute a factory returning a fake.
type ClientFactory func(credential core.Credential) *upstream.Client

// Scanner implements dispatch.Scanner: for every community in a region, it
// fetches the wall, fingerprints and classifies each post, runs it
// through the Filter Pipeline, and persists the outcome.
type Scanner struct {
	Store   *store.Store
	Env     *filters.Environment
	Lexicon *sentiment.Lexicon
	Clients ClientFactory
	Logger  core.Logger
}

// NewScanner builds a Scanner with the default Filter Pipeline stages and
// sentiment lexicon.
func NewScanner(st *store.Store, cfg filters.Config, clients ClientFactory, logger core.Logger) *Scanner {
	if logger == nil {
		logger = core.NopLogger{}
	}
	env := filters.NewEnvironment(st.Posts, st.Blacklist, st.Keywords, cfg)
	return &Scanner{
		Store:   st,
		Env:     env,
		Lexicon: sentiment.DefaultLexicon(),
		Clients: clients,
		Logger:  logger,
	}
}

// Scan fetches and filters every active community's wall in region,
// returning the number of posts newly accepted into the pipeline (posts
// that were only upserted because their LIP already existed do not count).
func (s *Scanner) Scan(ctx context.Context, region core.Region, credential core.Credential) (int, error) {
	communities, err := s.Store.Communities.ByRegion(ctx, region.ID)
	if err != nil {
		return 0, core.Wrap(core.KindStore, err, fmt.Sprintf("list communities for region %d", region.ID))
	}

	client := s.Clients(credential)
	pipeline := filters.New(s.Logger, filters.DefaultStages()...)

	fetched := 0
	for _, community := range communities {
		if !community.IsActive {
			continue
		}
		select {
		case <-ctx.Done():
			return fetched, ctx.Err()
		default:
		}

		posts, err := client.FetchWallPosts(ctx, community.ExternalID, postsPerCommunityFetch, 0)
		if err != nil {
			if core.KindOf(err) == core.KindUpstreamAuth {
				// Non-retryable and credential-wide: stop scanning under
				// this credential and let the caller mark it invalid,
				// rather than quietly skipping the rest of the wall.
				return fetched, err
			}
			s.Logger.Warnf("scan: fetch wall for community %d: %v", community.ID, err)
			continue
		}

		for _, raw := range posts {
			n, err := s.ingestOne(ctx, region, community, raw, pipeline)
			if err != nil {
				s.Logger.Warnf("scan: ingest post from community %d: %v", community.ID, err)
				continue
			}
			fetched += n
		}
	}
	return fetched, nil
}

// ingestOne runs a single freshly-fetched post through fingerprinting,
// the idempotent-rescan check, sentiment, and the Filter Pipeline,
// returning 1 if it was newly accepted into the store and 0 otherwise
// (already known, or rejected).
func (s *Scanner) ingestOne(ctx context.Context, region core.Region, community core.Community, raw core.Post, pipeline *filters.Pipeline) (int, error) {
	attachments := make([]fingerprint.MediaAttachment, 0, len(raw.Attachments))
	for _, a := range raw.Attachments {
		attachments = append(attachments, fingerprint.MediaAttachment{Type: a.Type, ID: a.ID})
	}
	fp := fingerprint.Derive(fingerprint.RawPost{
		OwnerID:     raw.ExternalOwnerID,
		PostID:      raw.ExternalPostID,
		Text:        raw.Text,
		Attachments: attachments,
	})

	exists, err := s.Store.Posts.LIPExists(ctx, fp.LIP)
	if err != nil {
		return 0, err
	}
	if exists {
		_, _, err := s.Store.Posts.UpsertStats(ctx, fp.LIP, raw.Views, raw.Likes, raw.Reposts, raw.Comments)
		return 0, err
	}

	sentimentResult := s.Lexicon.Classify(raw.Text)

	post := raw
	post.CommunityID = community.ID
	post.RegionID = region.ID
	post.Fingerprints = core.Fingerprints{LIP: fp.LIP, TextFull: fp.TextFull, TextCore: fp.TextCore, Media: fp.Media}
	post.SentimentLabel = sentimentResult.Label
	post.Status = core.PostStatusNew

	outcome := pipeline.Run(ctx, &post, s.Env)
	post.AIScore = core.ClampScore(outcome.FinalScore)
	if outcome.Accepted {
		post.Status = core.PostStatusAccepted
	} else {
		post.Status = core.PostStatusRejected
	}

	if _, err := s.Store.Posts.Create(ctx, post); err != nil {
		return 0, err
	}
	if outcome.Accepted {
		return 1, nil
	}
	return 0, nil
}

// Validator implements dispatch.Validator by probing the upstream API and
// recording the result back onto the credential.
type Validator struct {
	Store   *store.Store
	Clients ClientFactory
}

// NewValidator builds a Validator.
func NewValidator(st *store.Store, clients ClientFactory) *Validator {
	return &Validator{Store: st, Clients: clients}
}

// Validate probes credential against the upstream API and persists the
// resulting status, per spec §4.D/§4.I's validate_tokens task.
func (v *Validator) Validate(ctx context.Context, credential core.Credential) error {
	client := v.Clients(credential)
	err := client.ValidateCredential(ctx)

	updated := credential
	if err != nil {
		updated.Status = core.CredentialStatusInvalid
		updated.ErrorMessage = err.Error()
	} else {
		updated.Status = core.CredentialStatusValid
		updated.ErrorMessage = ""
	}
	if _, uerr := v.Store.Credentials.Update(ctx, updated); uerr != nil {
		return uerr
	}
	return err
}

// FrequencyTuner implements dispatch.FrequencyTuner from the trailing
// carousel task history.
type FrequencyTuner struct {
	Store *store.Store
}

// NewFrequencyTuner builds a FrequencyTuner.
func NewFrequencyTuner(st *store.Store) *FrequencyTuner {
	return &FrequencyTuner{Store: st}
}

// MedianPostsPerScan returns the median PostsFetched across every
// completed task, the input the Carousel Scheduler's AdjustFrequency
// uses to self-tune (spec §4.H).
func (f *FrequencyTuner) MedianPostsPerScan(ctx context.Context) (float64, error) {
	tasks, err := f.Store.Tasks.List(ctx)
	if err != nil {
		return 0, err
	}
	var counts []float64
	for _, t := range tasks {
		if t.State == core.TaskCompleted {
			counts = append(counts, float64(t.PostsFetched))
		}
	}
	if len(counts) == 0 {
		return 0, nil
	}
	sort.Float64s(counts)
	mid := len(counts) / 2
	if len(counts)%2 == 1 {
		return counts[mid], nil
	}
	return (counts[mid-1] + counts[mid]) / 2, nil
}

// StatusReporter implements dispatch.StatusReporter, logging a one-line
// operator summary of the store's state.
type StatusReporter struct {
	Store  *store.Store
	Logger core.Logger
}

// NewStatusReporter builds a StatusReporter.
func NewStatusReporter(st *store.Store, logger core.Logger) *StatusReporter {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &StatusReporter{Store: st, Logger: logger}
}

// ReportStatus logs the counts of active regions, eligible credentials,
// and queued/running tasks, the status task of spec §4.I.
func (r *StatusReporter) ReportStatus(ctx context.Context) error {
	regions, err := r.Store.Regions.ActiveRegions(ctx)
	if err != nil {
		return err
	}
	creds, err := r.Store.Credentials.Eligible(ctx)
	if err != nil {
		return err
	}
	tasks, err := r.Store.Tasks.List(ctx)
	if err != nil {
		return err
	}
	running := 0
	for _, t := range tasks {
		if t.State == core.TaskRunning {
			running++
		}
	}
	r.Logger.Infof("status: %d active regions, %d eligible credentials, %d tasks (%d running)",
		len(regions), len(creds), len(tasks), running)
	return nil
}
