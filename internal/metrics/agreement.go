package metrics

import "math"

// AgreementMetrics holds classification metrics comparing one result set's
// per-criterion verdicts against a baseline result set's verdicts for the
// same tasks.
type AgreementMetrics struct {
	TP        int     `json:"true_positives"`
	FP        int     `json:"false_positives"`
	TN        int     `json:"true_negatives"`
	FN        int     `json:"false_negatives"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Accuracy  float64 `json:"accuracy"`
}

// VerdictPair pairs a baseline autorating with a candidate autorating for
// the same (task, criterion).
type VerdictPair struct {
	Baseline  bool // verdict in the baseline results
	Candidate bool // verdict in the candidate results
}

// ComputeAgreement calculates precision, recall, F1, and accuracy of the
// candidate verdicts, treating the baseline verdicts as ground truth.
// Returns nil when pairs is empty.
func ComputeAgreement(pairs []VerdictPair) *AgreementMetrics {
	if len(pairs) == 0 {
		return nil
	}

	var tp, fp, tn, fn int
	for _, p := range pairs {
		switch {
		case p.Baseline && p.Candidate:
			tp++
		case !p.Baseline && p.Candidate:
			fp++
		case !p.Baseline && !p.Candidate:
			tn++
		case p.Baseline && !p.Candidate:
			fn++
		}
	}

	total := tp + fp + tn + fn

	precision := safeDivide(float64(tp), float64(tp+fp))
	recall := safeDivide(float64(tp), float64(tp+fn))

	var f1 float64
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	accuracy := safeDivide(float64(tp+tn), float64(total))

	return &AgreementMetrics{
		TP:        tp,
		FP:        fp,
		TN:        tn,
		FN:        fn,
		Precision: roundTo4(precision),
		Recall:    roundTo4(recall),
		F1:        roundTo4(f1),
		Accuracy:  roundTo4(accuracy),
	}
}

func safeDivide(num, den float64) float64 {
	if den == 0 {
		return 0.0
	}
	return num / den
}

func roundTo4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
