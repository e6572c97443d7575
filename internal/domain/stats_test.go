package domain

import "testing"

func TestComputeReviewStats(t *testing.T) {
	total, avg := ComputeReviewStats([]int{5, 4, 5})
	if total != 3 {
		t.Fatalf("ожидали 3 отзыва, получили %d", total)
	}
	if avg != 4.7 {
		t.Fatalf("ожидали средний рейтинг 4.7, получили %v", avg)
	}
}

func TestComputeReviewStatsEmpty(t *testing.T) {
	total, avg := ComputeReviewStats(nil)
	if total != 0 || avg != 0 {
		t.Fatalf("ожидали нули для пустого набора, получили %d и %v", total, avg)
	}
}

func TestValidRating(t *testing.T) {
	cases := map[float64]bool{
		1:   true,
		5:   true,
		3:   true,
		0:   false,
		6:   false,
		4.5: false,
		-2:  false,
	}
	for rating, expected := range cases {
		if ValidRating(rating) != expected {
			t.Fatalf("рейтинг %v: ожидали %v", rating, expected)
		}
	}
}

func TestPlanForPrice(t *testing.T) {
	if PlanForPrice("price_1RdBhb08DTKTigBID2XBJCPH") != PlanBoost {
		t.Fatalf("ожидали тариф boost")
	}
	if PlanForPrice("price_1RdBiD08DTKTigBIynIPIVMP") != PlanPro {
		t.Fatalf("ожидали тариф pro")
	}
	if PlanForPrice("price_unknown") != PlanStarter {
		t.Fatalf("для неизвестной цены ожидали starter")
	}
}
