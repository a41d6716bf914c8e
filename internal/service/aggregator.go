package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/fest-registration/internal/metrics"
	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/repository"
)

// SortKey selects the order of an aggregated listing.
type SortKey string

const (
	SortCreatedDesc SortKey = "created_desc"
	SortCreatedAsc  SortKey = "created_asc"
	SortName        SortKey = "name"
	SortStatus      SortKey = "status"
	SortAmountDesc  SortKey = "amount_desc"
)

// ListOptions filters, sorts and pages an aggregated listing.  Zero values
// mean "no filter"; Page and PageSize of zero return everything.
type ListOptions struct {
	Status    model.Status
	Kind      model.Kind
	EventName string
	Search    string
	Sort      SortKey
	WithStats bool
	Page      int
	PageSize  int
}

// MaxPageSize bounds ListOptions.PageSize.
const MaxPageSize = 500

// ListResult is one page of the unified view.  Total counts every record
// that passed the filters.  Stats, when requested, is computed over the
// records that passed the kind, event and search filters but before the
// status filter, so dashboard counters stay meaningful while a status tab
// is selected.
type ListResult struct {
	Items []model.Registration `json:"items"`
	Total int                  `json:"total"`
	Stats *Stats               `json:"stats,omitempty"`
}

// Aggregator builds the unified view over both subsystems.
type Aggregator struct {
	sources Sources
	metrics *metrics.Metrics
}

// NewAggregator returns an Aggregator.  m may be nil.
func NewAggregator(sources Sources, m *metrics.Metrics) *Aggregator {
	return &Aggregator{sources: sources, metrics: m}
}

// List fetches both subsystems concurrently, normalises every row, applies
// the filters and a stable sort.  If either fetch fails the whole call
// fails; a partial merge would produce misleading statistics.
func (a *Aggregator) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	if err := opts.validate(); err != nil {
		return ListResult{}, err
	}
	start := time.Now()
	all, err := a.fetchAll(ctx, opts.Kind)
	if err != nil {
		return ListResult{}, err
	}
	a.metrics.ObserveList(time.Since(start))

	scoped := make([]model.Registration, 0, len(all))
	for _, rec := range all {
		if opts.matchesScope(rec) {
			scoped = append(scoped, rec)
		}
	}
	var res ListResult
	if opts.WithStats {
		st := ComputeStats(scoped)
		res.Stats = &st
	}
	items := scoped
	if opts.Status != "" {
		items = make([]model.Registration, 0, len(scoped))
		for _, rec := range scoped {
			if rec.Status == opts.Status {
				items = append(items, rec)
			}
		}
	}
	SortRegistrations(items, opts.Sort)
	res.Total = len(items)
	res.Items = paginate(items, opts.Page, opts.PageSize)
	return res, nil
}

// Stats computes dashboard statistics over every registration.
func (a *Aggregator) Stats(ctx context.Context) (Stats, error) {
	all, err := a.fetchAll(ctx, "")
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(all), nil
}

// fetchAll reads one or both subsystems.  The result keeps fetch order:
// tier/pass rows first, each subsystem newest first.
func (a *Aggregator) fetchAll(ctx context.Context, kind model.Kind) ([]model.Registration, error) {
	srcs := a.sources.all()
	if kind != "" {
		srcs = []Source{a.sources.byKind(kind)}
	}
	results := make([][]model.Registration, len(srcs))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range srcs {
		i, src := i, src
		g.Go(func() error {
			rows, err := src.FetchAll(gctx, repository.GroupFilter{})
			if err != nil {
				return err
			}
			out := make([]model.Registration, 0, len(rows))
			for _, row := range rows {
				out = append(out, Normalize(src.Kind(), row))
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, storeUnavailable("aggregate registrations", err)
	}
	var merged []model.Registration
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}

func (o ListOptions) validate() error {
	if o.Status != "" && !o.Status.Valid() {
		return validationf("unknown status %q", o.Status)
	}
	if o.Kind != "" && !o.Kind.Valid() {
		return validationf("unknown kind %q", o.Kind)
	}
	switch o.Sort {
	case "", SortCreatedDesc, SortCreatedAsc, SortName, SortStatus, SortAmountDesc:
	default:
		return validationf("unknown sort %q", o.Sort)
	}
	if o.Page < 0 || o.PageSize < 0 {
		return validationf("page and page_size must not be negative")
	}
	if o.PageSize > MaxPageSize {
		return validationf("page_size must be at most %d", MaxPageSize)
	}
	return nil
}

// matchesScope applies every filter except status.
func (o ListOptions) matchesScope(rec model.Registration) bool {
	if o.Kind != "" && rec.Kind != o.Kind {
		return false
	}
	if o.EventName != "" && !strings.EqualFold(rec.EventName, strings.TrimSpace(o.EventName)) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(o.Search)); q != "" {
		return matchesText(rec, q)
	}
	return true
}

// matchesText does a substring match over group id and the name, email and
// phone of the contact and every member.
func matchesText(rec model.Registration, q string) bool {
	fields := []string{rec.GroupID, rec.Contact.Name, rec.Contact.Email, rec.Contact.Phone}
	for _, m := range rec.Members {
		fields = append(fields, m.Name, m.Email, m.Phone)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

var statusRank = map[model.Status]int{
	model.StatusPending:  0,
	model.StatusApproved: 1,
	model.StatusRejected: 2,
}

// SortRegistrations orders recs in place.  The sort is stable: records
// with equal keys keep their fetch order.
func SortRegistrations(recs []model.Registration, key SortKey) {
	var less func(a, b model.Registration) bool
	switch key {
	case SortCreatedAsc:
		less = func(a, b model.Registration) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortName:
		less = func(a, b model.Registration) bool {
			return strings.ToLower(a.Contact.Name) < strings.ToLower(b.Contact.Name)
		}
	case SortStatus:
		less = func(a, b model.Registration) bool { return rank(a.Status) < rank(b.Status) }
	case SortAmountDesc:
		less = func(a, b model.Registration) bool { return a.TotalAmount > b.TotalAmount }
	default:
		less = func(a, b model.Registration) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(recs, func(i, j int) bool { return less(recs[i], recs[j]) })
}

func rank(s model.Status) int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return len(statusRank)
}

func paginate(recs []model.Registration, page, size int) []model.Registration {
	if size <= 0 {
		return recs
	}
	if page < 1 {
		page = 1
	}
	if page-1 >= (len(recs)+size-1)/size {
		return []model.Registration{}
	}
	from := (page - 1) * size
	to := from + size
	if to > len(recs) {
		to = len(recs)
	}
	return recs[from:to]
}
