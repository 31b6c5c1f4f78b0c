package registry

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

// DefaultTable is the registry table read by the similarity lookups.
const DefaultTable = "public.registry_companies"

// DefaultBatchSize bounds the rows held in memory per COPY.
const DefaultBatchSize = 5000

// Columns is the column order used for COPY.
var Columns = []string{
	"company_number", "company_name", "company_status",
	"sic_code_1", "sic_code_2", "sic_code_3", "sic_code_4",
	"accounts_category", "num_mort_charges",
	"reg_address_post_town", "reg_address_country", "reg_address_postcode",
	"incorporation_date",
}

// Importer batch-upserts registry rows keyed on company number.
type Importer struct {
	pool      Pool
	table     string
	batchSize int
	merger    *merger
	logger    *zap.Logger
}

// NewImporter creates an importer. Non-positive batch sizes use
// DefaultBatchSize; an empty table uses DefaultTable.
func NewImporter(pool Pool, table string, batchSize int, logger *zap.Logger) *Importer {
	if table == "" {
		table = DefaultTable
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Importer{
		pool:      pool,
		table:     table,
		batchSize: batchSize,
		merger:    newMerger(table),
		logger:    logger,
	}
}

// ImportResult summarizes one import.
type ImportResult struct {
	Read       int
	Duplicates int   // rows superseded by a later row for the same company in their batch
	Upserted   int64 // rows inserted or changed
	Batches    int
	Duration   time.Duration
}

// Import streams the CSV and upserts it in batches. A failed batch aborts
// the import; earlier batches stay committed, so re-running is safe.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	start := time.Now()
	reader, err := NewReader(r)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{}
	b := newBatch(im.batchSize)

	flush := func() error {
		if b.size() == 0 {
			return nil
		}
		n, err := im.merger.apply(ctx, im.pool, b.rows)
		if err != nil {
			return eris.Wrapf(err, "registry: batch %d", res.Batches+1)
		}
		res.Batches++
		res.Upserted += n
		im.logger.Debug("registry batch upserted",
			zap.Int("batch", res.Batches),
			zap.Int("rows", b.size()),
			zap.Int64("affected", n),
		)
		b.reset()
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "registry: import cancelled")
		}
		c, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, err
		}
		res.Read++
		if b.add(c) {
			res.Duplicates++
		}
		if b.size() >= im.batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := flush(); err != nil {
		return res, err
	}

	res.Duration = time.Since(start)
	im.logger.Info("registry import complete",
		zap.String("table", im.table),
		zap.Int("read", res.Read),
		zap.Int("duplicates", res.Duplicates),
		zap.Int64("upserted", res.Upserted),
		zap.Int("batches", res.Batches),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// Row flattens a company into COPY values in Columns order.
func Row(c *domain.Company) []any {
	return []any{
		c.Number, c.Name, c.Status,
		nullable(c.SICCode1), nullable(c.SICCode2), nullable(c.SICCode3), nullable(c.SICCode4),
		c.AccountsCategory, c.MortgageCharges,
		c.PostTown, c.Country, c.Postcode,
		nullableTime(c.IncorporationDate),
	}
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
