package services

import (
	"context"
	"fmt"
	"log/slog"

	"caja/internal/amqp"
	"caja/internal/sheets"
)

// StagedPublisher sends staged transaction candidates to the broker.
type StagedPublisher interface {
	PublishStagedTransaction(ctx context.Context, msg *amqp.StagedTransactionMessage) error
}

// Importer pumps candidate rows from an external source into the staging
// queue via the broker. The worker on the other side persists them; rows
// with a TxRef already seen are deduplicated at insert time.
type Importer struct {
	source    sheets.StagedSource
	publisher StagedPublisher
	sourceTag string
}

func NewImporter(source sheets.StagedSource, publisher StagedPublisher, sourceTag string) *Importer {
	if sourceTag == "" {
		sourceTag = "import"
	}
	return &Importer{source: source, publisher: publisher, sourceTag: sourceTag}
}

// Run reads every row from the source and publishes it. It returns the
// number of rows published; a publish failure aborts the run so a broken
// broker connection does not silently drop the tail of the sheet.
func (i *Importer) Run(ctx context.Context) (int, error) {
	rows, err := i.source.ListRows(ctx)
	if err != nil {
		return 0, fmt.Errorf("list source rows: %w", err)
	}

	published := 0
	for _, row := range rows {
		msg := amqp.NewStagedTransactionMessage(row.TxRef, row.Date, row.Type, row.Amount, row.Description, i.sourceTag)
		msg.Category = row.Category

		if err := i.publisher.PublishStagedTransaction(ctx, msg); err != nil {
			return published, fmt.Errorf("publish row %q: %w", row.TxRef, err)
		}
		published++
	}

	slog.InfoContext(ctx, "Import run finished",
		"source", i.sourceTag,
		"rows", len(rows),
		"published", published)

	return published, nil
}
