package validation

import "math"

// chiSquare2x2 computes the chi-square statistic for a 2x2 win/loss
// contingency table (rule vs control) and the corresponding p-value at one
// degree of freedom. Returns p=1 when any marginal is empty, so a degenerate
// table can never look significant.
func chiSquare2x2(ruleWins, ruleLosses, ctrlWins, ctrlLosses float64) (stat, p float64) {
	a, b, c, d := ruleWins, ruleLosses, ctrlWins, ctrlLosses
	n := a + b + c + d
	if n == 0 {
		return 0, 1
	}
	row1, row2 := a+b, c+d
	col1, col2 := a+c, b+d
	if row1 == 0 || row2 == 0 || col1 == 0 || col2 == 0 {
		return 0, 1
	}

	diff := a*d - b*c
	stat = n * diff * diff / (row1 * row2 * col1 * col2)
	return stat, chiSquarePValueDF1(stat)
}

// chiSquarePValueDF1 is the survival function of the chi-square distribution
// with one degree of freedom: P(X >= x) = erfc(sqrt(x/2)).
func chiSquarePValueDF1(x float64) float64 {
	if x <= 0 {
		return 1
	}
	return math.Erfc(math.Sqrt(x / 2))
}
