package savings

import "testing"

func TestLedgerAccumulatesRates(t *testing.T) {
	ledger := NewLedger(nil)

	entry := ledger.Record("web-od", "c3.large", "us-east-1b", 2, 0.075, 0.105)
	if !roughly(entry.HourlyRate, 0.06) {
		t.Errorf("HourlyRate = %v, want 0.06", entry.HourlyRate)
	}

	ledger.Record("web-od", "m3.large", "us-east-1a", 1, 0.10, 0.14)
	ledger.Record("api-od", "c3.large", "us-east-1b", 3, 0.075, 0.105)

	if got, want := ledger.GroupRate("web-od"), 0.06+0.04; !roughly(got, want) {
		t.Errorf("GroupRate(web-od) = %v, want %v", got, want)
	}
	if got, want := ledger.HourlyRate(), 0.06+0.04+0.09; !roughly(got, want) {
		t.Errorf("HourlyRate = %v, want %v", got, want)
	}
	if len(ledger.History()) != 3 {
		t.Errorf("history = %d entries, want 3", len(ledger.History()))
	}
}

func TestLedgerClampsNegativeSavings(t *testing.T) {
	ledger := NewLedger(nil)

	entry := ledger.Record("web-od", "c3.large", "us-east-1b", 2, 0.50, 0.10)
	if entry.HourlyRate != 0 {
		t.Errorf("HourlyRate = %v, want 0 for spot above on-demand", entry.HourlyRate)
	}
	if ledger.HourlyRate() != 0 {
		t.Errorf("HourlyRate = %v, want 0", ledger.HourlyRate())
	}
}

func TestLedgerUnknownGroup(t *testing.T) {
	ledger := NewLedger(nil)
	if rate := ledger.GroupRate("nope"); rate != 0 {
		t.Errorf("GroupRate = %v, want 0", rate)
	}
}

func roughly(got, want float64) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}
