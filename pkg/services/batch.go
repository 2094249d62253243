package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/vpnda/cardless-sync/pkg/http/lm"
	"github.com/vpnda/cardless-sync/pkg/models"
)

// DefaultBatchSize is the most transactions the ledger accepts per insert.
const DefaultBatchSize = 500

type BatchSubmitter struct {
	ledger lm.LunchMoneyClientInterface
	size   int
}

func NewBatchSubmitter(ledger lm.LunchMoneyClientInterface) *BatchSubmitter {
	return &BatchSubmitter{
		ledger: ledger,
		size:   DefaultBatchSize,
	}
}

// Submit sends the transactions in order, one chunk at a time. The first
// failing chunk stops the run; chunks already sent stay in the ledger and
// their results are returned with the error.
func (b *BatchSubmitter) Submit(ctx context.Context, transactions []models.Transaction) ([]models.BatchResult, error) {
	if len(transactions) == 0 {
		return nil, nil
	}

	chunks := lo.Chunk(transactions, b.size)
	results := make([]models.BatchResult, 0, len(chunks))
	for i, chunk := range chunks {
		res, err := b.ledger.InsertTransactions(ctx, chunk)
		if err != nil {
			return results, fmt.Errorf("%w: chunk %d/%d: %w", ErrSubmissionFailure, i+1, len(chunks), err)
		}
		log.Debug().Int("chunk", i+1).Int("chunks", len(chunks)).Int("size", len(chunk)).
			Int("ids", len(res.Ids)).Msg("submitted transactions")
		results = append(results, *res)
	}
	return results, nil
}

// SubmittedCount totals the transactions sent across results.
func SubmittedCount(results []models.BatchResult) int {
	return lo.SumBy(results, func(r models.BatchResult) int { return r.Submitted })
}
