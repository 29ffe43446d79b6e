package source

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/harbor-legal/docketwatch/internal/model"
	"github.com/harbor-legal/docketwatch/internal/resolve"
)

// Querier is the subset of the source client the fetcher needs.
type Querier interface {
	QueryByName(ctx context.Context, term string) ([]Record, error)
}

// FetchResult is the merged outcome of one fetch pass.
type FetchResult struct {
	// Records deduplicated by ticket number, in first-seen order.
	Records []Record
	// Observed is the set of ticket numbers seen this pass; the ghost
	// detector compares stored records against it.
	Observed map[string]bool
	// Terms is the number of distinct search terms queried.
	Terms int
	// TermErrors counts per-term query failures that were skipped.
	TermErrors int
}

// Fetcher derives search terms from the client roster and merges per-term
// query results.
type Fetcher struct {
	client Querier
}

// NewFetcher creates a Fetcher over the given source client.
func NewFetcher(client Querier) *Fetcher {
	return &Fetcher{client: client}
}

// FetchAll queries the source once per derived search term and merges the
// results, deduplicating by ticket number. An individual term failure is
// logged and counted but never aborts the pass.
func (f *Fetcher) FetchAll(ctx context.Context, clients []model.Client) (*FetchResult, error) {
	log := zap.L().With(zap.String("component", "source.fetcher"))

	terms := SearchTerms(clients)
	result := &FetchResult{
		Observed: make(map[string]bool),
		Terms:    len(terms),
	}

	for _, term := range terms {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		records, err := f.client.QueryByName(ctx, term)
		if err != nil {
			result.TermErrors++
			log.Warn("term query failed, skipping",
				zap.String("term", term),
				zap.Error(err),
			)
			continue
		}

		for _, rec := range records {
			ticket := strings.TrimSpace(rec.TicketNumber)
			if ticket == "" || result.Observed[ticket] {
				continue
			}
			rec.TicketNumber = ticket
			result.Observed[ticket] = true
			result.Records = append(result.Records, rec)
		}
	}

	log.Info("fetch pass complete",
		zap.Int("terms", result.Terms),
		zap.Int("term_errors", result.TermErrors),
		zap.Int("records", len(result.Records)),
	)
	return result, nil
}

// SearchTerms derives the deduplicated, sorted set of search terms for a
// client roster: each client's core name minus its legal suffix, plus each
// alternate name's core. Terms shorter than 3 characters are dropped to
// avoid unbounded LIKE scans.
func SearchTerms(clients []model.Client) []string {
	seen := make(map[string]bool)
	var terms []string

	add := func(name string) {
		term := strings.ToUpper(resolve.CoreName(name))
		if len(term) < 3 || seen[term] {
			return
		}
		seen[term] = true
		terms = append(terms, term)
	}

	for _, c := range clients {
		add(c.Name)
		for _, aka := range c.AKAs {
			add(aka)
		}
	}

	sort.Strings(terms)
	return terms
}
