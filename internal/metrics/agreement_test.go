package metrics

import "testing"

func TestComputeAgreement_Empty(t *testing.T) {
	if got := ComputeAgreement(nil); got != nil {
		t.Errorf("ComputeAgreement(nil) = %+v, want nil", got)
	}
}

func TestComputeAgreement_PerfectAgreement(t *testing.T) {
	pairs := []VerdictPair{
		{Baseline: true, Candidate: true},
		{Baseline: true, Candidate: true},
		{Baseline: false, Candidate: false},
	}

	m := ComputeAgreement(pairs)
	if m == nil {
		t.Fatal("expected metrics, got nil")
	}
	if m.TP != 2 || m.TN != 1 || m.FP != 0 || m.FN != 0 {
		t.Errorf("counts = TP%d FP%d TN%d FN%d, want TP2 FP0 TN1 FN0", m.TP, m.FP, m.TN, m.FN)
	}
	if m.Precision != 1.0 || m.Recall != 1.0 || m.F1 != 1.0 || m.Accuracy != 1.0 {
		t.Errorf("expected all metrics 1.0, got %+v", m)
	}
}

func TestComputeAgreement_Mixed(t *testing.T) {
	pairs := []VerdictPair{
		{Baseline: true, Candidate: true},   // TP
		{Baseline: true, Candidate: false},  // FN
		{Baseline: false, Candidate: true},  // FP
		{Baseline: false, Candidate: false}, // TN
	}

	m := ComputeAgreement(pairs)
	if m == nil {
		t.Fatal("expected metrics, got nil")
	}
	if m.TP != 1 || m.FP != 1 || m.TN != 1 || m.FN != 1 {
		t.Errorf("counts = TP%d FP%d TN%d FN%d, want all 1", m.TP, m.FP, m.TN, m.FN)
	}
	if !approxEqual(m.Precision, 0.5) || !approxEqual(m.Recall, 0.5) {
		t.Errorf("precision/recall = %f/%f, want 0.5/0.5", m.Precision, m.Recall)
	}
	if !approxEqual(m.F1, 0.5) {
		t.Errorf("F1 = %f, want 0.5", m.F1)
	}
	if !approxEqual(m.Accuracy, 0.5) {
		t.Errorf("accuracy = %f, want 0.5", m.Accuracy)
	}
}

func TestComputeAgreement_NoPositivePredictions(t *testing.T) {
	pairs := []VerdictPair{
		{Baseline: true, Candidate: false},
		{Baseline: false, Candidate: false},
	}

	m := ComputeAgreement(pairs)
	if m.Precision != 0 {
		t.Errorf("precision with no positive predictions = %f, want 0", m.Precision)
	}
	if m.F1 != 0 {
		t.Errorf("F1 = %f, want 0", m.F1)
	}
	if !approxEqual(m.Accuracy, 0.5) {
		t.Errorf("accuracy = %f, want 0.5", m.Accuracy)
	}
}

func TestComputeAgreement_Rounding(t *testing.T) {
	// 2 TP, 1 FP: precision = 2/3 = 0.6667 after rounding
	pairs := []VerdictPair{
		{Baseline: true, Candidate: true},
		{Baseline: true, Candidate: true},
		{Baseline: false, Candidate: true},
	}

	m := ComputeAgreement(pairs)
	if m.Precision != 0.6667 {
		t.Errorf("precision = %v, want 0.6667", m.Precision)
	}
}
