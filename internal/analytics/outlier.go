package analytics

import "sort"

// iqrFactor scales the interquartile range into outlier fences.
const iqrFactor = 1.5

// RemoveOutliers drops values outside [Q1 - 1.5*IQR, Q3 + 1.5*IQR].
//
// Quartiles are taken by position in the sorted data (indices n/4 and 3n/4),
// not interpolated. Fewer than 4 values are returned unchanged. Retained
// values keep their input order.
func RemoveOutliers(values []float64) []float64 {
	n := len(values)
	if n < 4 {
		return values
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 := sorted[n/4]
	q3 := sorted[3*n/4]
	iqr := q3 - q1
	lower := q1 - iqrFactor*iqr
	upper := q3 + iqrFactor*iqr

	kept := make([]float64, 0, n)
	for _, v := range values {
		if v >= lower && v <= upper {
			kept = append(kept, v)
		}
	}
	return kept
}
