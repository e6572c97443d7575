package domain

import "math"

// ComputeReviewStats пересчитывает количество отзывов и средний рейтинг
// по полному набору рейтингов аккаунта. Среднее округляется до одного
// знака после запятой.
func ComputeReviewStats(ratings []int) (totalReviews int, avgRating float64) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, rating := range ratings {
		sum += rating
	}
	avg := float64(sum) / float64(len(ratings))
	return len(ratings), math.Round(avg*10) / 10
}

// ValidRating проверяет, что рейтинг — целое число в диапазоне [1,5].
func ValidRating(rating float64) bool {
	if rating != math.Trunc(rating) {
		return false
	}
	return rating >= 1 && rating <= 5
}
