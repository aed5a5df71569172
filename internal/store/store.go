// Package store is the in-memory reference implementation of spec §4.K: a
// transactional store behind narrow per-entity interfaces, with LIP
// insertion as a check-and-insert under a single mutex so two concurrent
// scans can never both accept a post with the same fingerprint_lip. A
// production deployment swaps these implementations for a real
// transactional store against the same interfaces.
package store

import (
	"context"

	"github.com/valstan/setka/internal/core"
)

// Store aggregates every entity store spec §4.K names. Each field is
// independently usable against its narrower interface (filters.DuplicateStore,
// filters.BlacklistStore, filters.RegionKeywordStore, dispatch.Directory).
type Store struct {
	Regions     *RegionStore
	Communities *CommunityStore
	Credentials *CredentialStore
	Posts       *PostStore
	Tasks       *TaskStore
	Digests     *DigestStore
	Engagement  *EngagementStore
	Blacklist   *BlacklistStore
	Keywords    *KeywordStore
}

// New builds an empty Store.
func New() *Store {
	return &Store{
		Regions:     NewRegionStore(),
		Communities: NewCommunityStore(),
		Credentials: NewCredentialStore(),
		Posts:       NewPostStore(),
		Tasks:       NewTaskStore(),
		Digests:     NewDigestStore(),
		Engagement:  NewEngagementStore(),
		Blacklist:   NewBlacklistStore(),
		Keywords:    NewKeywordStore(),
	}
}

// Directory adapts a Store to dispatch.Directory without internal/dispatch
// needing to depend on internal/store.
type Directory struct {
	regions     *RegionStore
	credentials *CredentialStore
}

// NewDirectory builds a Directory view over a Store.
func NewDirectory(s *Store) Directory {
	return Directory{regions: s.Regions, credentials: s.Credentials}
}

func (d Directory) ActiveRegions(ctx context.Context) ([]core.Region, error) {
	return d.regions.ActiveRegions(ctx)
}

func (d Directory) Credentials(ctx context.Context) ([]core.Credential, error) {
	return d.credentials.Eligible(ctx)
}

// UpdateCredential persists a credential status change — in practice, the
// Work Dispatcher invalidating a credential whose scan failed with a
// token-invalid error (spec §4.H).
func (d Directory) UpdateCredential(ctx context.Context, credential core.Credential) (core.Credential, error) {
	return d.credentials.Update(ctx, credential)
}
