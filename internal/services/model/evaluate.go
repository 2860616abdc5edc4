package model

// WeightedF1 scores predictions against truth as the support-weighted mean
// of per-class F1. Classes absent from the truth contribute nothing.
func WeightedF1(truth, pred []int) float64 {
	if len(truth) == 0 || len(truth) != len(pred) {
		return 0
	}
	var tp, fp, fn [NumClasses]int
	var support [NumClasses]int
	for i := range truth {
		support[truth[i]]++
		if pred[i] == truth[i] {
			tp[truth[i]]++
		} else {
			fp[pred[i]]++
			fn[truth[i]]++
		}
	}

	var weighted float64
	for c := 0; c < NumClasses; c++ {
		if support[c] == 0 {
			continue
		}
		var precision, recall float64
		if tp[c]+fp[c] > 0 {
			precision = float64(tp[c]) / float64(tp[c]+fp[c])
		}
		if tp[c]+fn[c] > 0 {
			recall = float64(tp[c]) / float64(tp[c]+fn[c])
		}
		var f1 float64
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		weighted += f1 * float64(support[c]) / float64(len(truth))
	}
	return weighted
}

// Accuracy is the plain share of exact matches.
func Accuracy(truth, pred []int) float64 {
	if len(truth) == 0 || len(truth) != len(pred) {
		return 0
	}
	hits := 0
	for i := range truth {
		if truth[i] == pred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(truth))
}
