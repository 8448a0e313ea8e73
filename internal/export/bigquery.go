package export

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/option"

	"bankpipe/internal/ledger"
)

// TransactionRow is the BigQuery shape of one transaction.
type TransactionRow struct {
	TransactionID string     `bigquery:"transaction_id"`
	RunID         string     `bigquery:"run_id"`
	Date          civil.Date `bigquery:"transaction_date"`
	Description   string     `bigquery:"description"`
	Amount        float64    `bigquery:"amount"`
	Category      string     `bigquery:"category"`
	AnomalyScore  float64    `bigquery:"anomaly_score"`
	Anomalous     bool       `bigquery:"anomalous"`
	Statement     string     `bigquery:"statement"`
	Page          int        `bigquery:"page"`
	ExportedAt    time.Time  `bigquery:"exported_ts"`
}

// BigQueryExporter streams the run's transaction table into a BigQuery
// table. Like the GCS uploader it is optional and non-fatal.
type BigQueryExporter struct {
	project string
	dataset string
	table   string
	opts    []option.ClientOption
}

// NewBigQueryExporter creates an exporter targeting project.dataset.table.
func NewBigQueryExporter(project, dataset, table, credentialsFile string) *BigQueryExporter {
	e := &BigQueryExporter{project: project, dataset: dataset, table: table}
	if credentialsFile != "" {
		e.opts = append(e.opts, option.WithCredentialsFile(credentialsFile))
	}
	return e
}

// Export inserts one row per transaction.
func (e *BigQueryExporter) Export(ctx context.Context, runID string, txs []ledger.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	client, err := bigquery.NewClient(ctx, e.project, e.opts...)
	if err != nil {
		return fmt.Errorf("export: bigquery client: %w", err)
	}
	defer client.Close()

	rows := make([]*TransactionRow, len(txs))
	now := time.Now()
	for i := range txs {
		rows[i] = &TransactionRow{
			TransactionID: txs[i].ID,
			RunID:         runID,
			Date:          txs[i].Date,
			Description:   txs[i].Description,
			Amount:        txs[i].AmountFloat(),
			Category:      string(txs[i].Category),
			AnomalyScore:  txs[i].AnomalyScore,
			Anomalous:     txs[i].Anomalous,
			Statement:     txs[i].Statement,
			Page:          txs[i].Page,
			ExportedAt:    now,
		}
	}

	inserter := client.DatasetInProject(e.project, e.dataset).Table(e.table).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("export: inserting %d rows: %w", len(rows), err)
	}
	return nil
}
