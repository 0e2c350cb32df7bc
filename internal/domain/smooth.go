package domain

import "math"

// DefaultSmoothFraction is the share of points in each local regression.
const DefaultSmoothFraction = 0.15

// Smooth fits a LOWESS curve through s, using the position 0..n-1 as the
// independent variable. Each point is replaced by a tricube-weighted local
// linear fit over its k nearest neighbours, k = floor(fraction*n) raised to 2
// and capped at n. There are no robustifying iterations.
//
// Series shorter than 2 points are returned unchanged (as a copy).
func Smooth(s Series, fraction float64) (Series, error) {
	if fraction <= 0 || fraction > 1 || math.IsNaN(fraction) {
		return nil, ErrInvalidFraction
	}

	n := len(s)
	out := make(Series, n)
	if n < 2 {
		copy(out, s)
		return out, nil
	}

	k := int(fraction*float64(n) + 1e-10)
	if k < 2 {
		k = 2
	}
	if k > n {
		k = n
	}

	left, right := 0, k-1
	for i := 0; i < n; i++ {
		// Slide the neighbourhood while the next point on the right is closer
		// than the current leftmost one.
		for right < n-1 && float64(i-left) > float64(right+1-i) {
			left++
			right++
		}
		out[i] = localFit(s, i, left, right)
	}
	return out, nil
}

// localFit evaluates the weighted least-squares line through s[left..right] at
// position i.
func localFit(s Series, i, left, right int) float64 {
	radius := math.Max(float64(i-left), float64(right-i))
	if radius == 0 {
		return s[i]
	}

	var sumW, sumWX, sumWY float64
	weights := make([]float64, right-left+1)
	for j := left; j <= right; j++ {
		w := tricube(math.Abs(float64(j-i)) / radius)
		weights[j-left] = w
		sumW += w
		sumWX += w * float64(j)
		sumWY += w * s[j]
	}
	if sumW <= 0 {
		return s[i]
	}

	xBar := sumWX / sumW
	yBar := sumWY / sumW

	var sxx, sxy float64
	for j := left; j <= right; j++ {
		w := weights[j-left]
		dx := float64(j) - xBar
		sxx += w * dx * dx
		sxy += w * dx * (s[j] - yBar)
	}

	// All weight on one point: the fit degenerates to the weighted mean.
	if sxx < 1e-12 {
		return yBar
	}
	return yBar + sxy/sxx*(float64(i)-xBar)
}

func tricube(r float64) float64 {
	if r >= 1 {
		return 0
	}
	c := 1 - r*r*r
	return c * c * c
}
