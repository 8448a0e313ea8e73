package anomaly

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"bankpipe/internal/ledger"
)

func makeTxs(amounts ...float64) []ledger.Transaction {
	txs := make([]ledger.Transaction, len(amounts))
	for i, a := range amounts {
		txs[i] = ledger.Transaction{
			Date:     civil.Date{Year: 2024, Month: 1, Day: i%28 + 1},
			Amount:   decimal.NewFromFloat(a),
			Category: ledger.CategoryExpense,
		}
	}
	return txs
}

func TestAnnotate_ContaminationScenario(t *testing.T) {
	// The canonical scenario: $100 deposit, -$20 expense, -$15000 expense
	// with contamination 0.33 flags only the wire-sized expense.
	txs := makeTxs(100, -20, -15000)

	result := Annotate(txs, RobustDetector{}, 0.33, 3)

	if !result.Applied {
		t.Fatal("Applied = false, want true")
	}
	if result.Flagged != 1 {
		t.Fatalf("Flagged = %d, want 1", result.Flagged)
	}
	if txs[0].Anomalous || txs[1].Anomalous {
		t.Errorf("ordinary transactions flagged: %v %v", txs[0].Anomalous, txs[1].Anomalous)
	}
	if !txs[2].Anomalous {
		t.Error("the -15000 transaction was not flagged")
	}
	if txs[2].AnomalyScore <= txs[0].AnomalyScore {
		t.Errorf("extreme score %f not above ordinary score %f",
			txs[2].AnomalyScore, txs[0].AnomalyScore)
	}
}

func TestAnnotate_BelowMinFitUsesNeutralDefaults(t *testing.T) {
	txs := makeTxs(100, -15000)

	result := Annotate(txs, RobustDetector{}, 0.05, 10)

	if result.Applied {
		t.Error("Applied = true below min fit size")
	}
	for i := range txs {
		if txs[i].AnomalyScore != 0 {
			t.Errorf("tx %d score = %f, want neutral 0", i, txs[i].AnomalyScore)
		}
		if txs[i].Anomalous {
			t.Errorf("tx %d flagged despite skipped detection", i)
		}
	}
}

func TestAnnotate_UniformAmountsFlagNothing(t *testing.T) {
	txs := makeTxs(50, 50, 50, 50, 50)

	result := Annotate(txs, RobustDetector{}, 0.2, 3)

	if !result.Applied {
		t.Fatal("Applied = false, want true")
	}
	if result.Flagged != 0 {
		t.Errorf("Flagged = %d, want 0 for a uniform population", result.Flagged)
	}
}

func TestAnnotate_FlagCountFollowsContamination(t *testing.T) {
	// 20 ordinary amounts and 2 extremes; contamination 0.1 → flag 2.
	amounts := make([]float64, 0, 22)
	for i := 0; i < 20; i++ {
		amounts = append(amounts, -40-float64(i))
	}
	amounts = append(amounts, 9000, -12000)
	txs := makeTxs(amounts...)

	result := Annotate(txs, RobustDetector{}, 0.1, 5)

	if result.Flagged != 3 { // ceil(0.1*22) = 3
		t.Fatalf("Flagged = %d, want 3", result.Flagged)
	}
	if !txs[20].Anomalous || !txs[21].Anomalous {
		t.Error("the two extreme amounts must be among the flagged set")
	}
}

func TestRobustDetector_Scores(t *testing.T) {
	d := RobustDetector{}

	scores := d.Scores([]float64{100, -20, -15000})
	if len(scores) != 3 {
		t.Fatalf("got %d scores", len(scores))
	}
	// Median is -20, MAD is 120: the middle value scores exactly 0.
	if scores[1] != 0 {
		t.Errorf("median element score = %f, want 0", scores[1])
	}
	if scores[2] < scores[0] {
		t.Errorf("extreme value must out-score ordinary one: %v", scores)
	}

	if got := d.Scores(nil); len(got) != 0 {
		t.Errorf("Scores(nil) = %v, want empty", got)
	}
}
