package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/repository"
	"github.com/iliyamo/fest-registration/internal/utils"
)

// SearchKind is the classification of an operator-typed search key.
type SearchKind string

const (
	SearchEmail   SearchKind = "email"
	SearchGroupID SearchKind = "group_id"
	SearchUserID  SearchKind = "user_id"
	SearchUnknown SearchKind = "unknown"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Classify decides what a search key refers to.  Rules are checked in
// order and the first match wins: email shape, GRP- prefix, USER- prefix.
func Classify(key string) SearchKind {
	key = strings.TrimSpace(key)
	switch {
	case strings.Contains(key, "@") && emailPattern.MatchString(key):
		return SearchEmail
	case strings.HasPrefix(key, utils.GroupIDPrefix):
		return SearchGroupID
	case strings.HasPrefix(key, utils.UserIDPrefix):
		return SearchUserID
	}
	return SearchUnknown
}

// Resolver locates registrations in both subsystems from a single search
// key.  It never writes.
type Resolver struct {
	sources Sources
}

// NewResolver returns a Resolver over the given subsystems.
func NewResolver(sources Sources) *Resolver { return &Resolver{sources: sources} }

// Resolve classifies key and returns every matching group, fully populated
// and de-duplicated by group id.  An unknown key fails with a validation
// error before any query runs; a well-formed key with no match fails with
// a not-found error.  Emails are matched case-insensitively.
func (r *Resolver) Resolve(ctx context.Context, key string) ([]model.Registration, error) {
	key = strings.TrimSpace(key)
	kind := Classify(key)
	if kind == SearchUnknown {
		return nil, validationf("search key %q is not an email, group id or user id", key)
	}

	results := make([][]model.Registration, 2)
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range r.sources.all() {
		i, src := i, src
		g.Go(func() error {
			recs, err := lookup(gctx, src, kind, key)
			if err != nil {
				return err
			}
			for _, rec := range recs {
				results[i] = append(results[i], Normalize(src.Kind(), rec))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, storeUnavailable("resolve "+string(kind), err)
	}

	merged := dedupe(append(results[0], results[1]...))
	if len(merged) == 0 {
		return nil, notFoundf("no registration matches %q", key)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].CreatedAt.After(merged[j].CreatedAt) })
	return merged, nil
}

// lookup runs the query that matches kind against one subsystem.  A missing
// point lookup is not an error; it simply contributes no records.
func lookup(ctx context.Context, src Source, kind SearchKind, key string) ([]repository.GroupRecord, error) {
	var (
		rec repository.GroupRecord
		err error
	)
	switch kind {
	case SearchEmail:
		return src.FetchByEmail(ctx, strings.ToLower(key))
	case SearchGroupID:
		rec, err = src.FetchGroup(ctx, key)
	case SearchUserID:
		rec, err = src.FetchByUserID(ctx, key)
	default:
		return nil, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []repository.GroupRecord{rec}, nil
}

// dedupe keeps the first occurrence of every group id.  A group id that
// shows up under both kinds is a collision between the subsystems; both
// records are kept and flagged instead of one silently hiding the other.
func dedupe(in []model.Registration) []model.Registration {
	type key struct {
		id   string
		kind model.Kind
	}
	seen := make(map[key]bool, len(in))
	kinds := make(map[string][]int, len(in))
	out := make([]model.Registration, 0, len(in))
	for _, rec := range in {
		k := key{rec.GroupID, rec.Kind}
		if seen[k] {
			continue
		}
		seen[k] = true
		kinds[rec.GroupID] = append(kinds[rec.GroupID], len(out))
		out = append(out, rec)
	}
	for id, idx := range kinds {
		if len(idx) < 2 {
			continue
		}
		for _, i := range idx {
			out[i].Issues = append(out[i].Issues, fmt.Sprintf("group id %s is used by both subsystems", id))
		}
	}
	return out
}

// Get returns the single group with groupID.  It fails with a validation
// error for malformed ids and a not-found error when neither subsystem has
// the group.
func (r *Resolver) Get(ctx context.Context, groupID string) (model.Registration, error) {
	_, reg, err := r.locate(ctx, groupID)
	return reg, err
}

// locate finds which subsystem owns groupID.  A collision between the two
// subsystems is refused because a review decision could not tell which row
// it applies to.
func (r *Resolver) locate(ctx context.Context, groupID string) (Source, model.Registration, error) {
	groupID = strings.TrimSpace(groupID)
	if Classify(groupID) != SearchGroupID {
		return nil, model.Registration{}, validationf("invalid group id %q", groupID)
	}
	var (
		owner Source
		found model.Registration
	)
	for _, src := range r.sources.all() {
		rec, err := src.FetchGroup(ctx, groupID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, model.Registration{}, storeUnavailable("fetch group", err)
		}
		if owner != nil {
			return nil, model.Registration{}, validationf("group id %s is used by both subsystems", groupID)
		}
		owner, found = src, Normalize(src.Kind(), rec)
	}
	if owner == nil {
		return nil, model.Registration{}, notFoundf("group %s not found", groupID)
	}
	return owner, found, nil
}
