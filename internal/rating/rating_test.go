package rating

import "testing"

func TestUpdateEqualRatingsPlayer1Wins(t *testing.T) {
	r1, r2 := Update(1200, 1200, 1)
	if r1 != 1216 {
		t.Fatalf("expected winner rating 1216, got %d", r1)
	}
	if r2 != 1184 {
		t.Fatalf("expected loser rating 1184, got %d", r2)
	}
}

func TestUpdateIsZeroSumForEqualRatings(t *testing.T) {
	r1, r2 := Update(1200, 1200, 1)
	if (r1 - 1200) != (1200 - r2) {
		t.Fatalf("expected symmetric movement, got +%d / -%d", r1-1200, 1200-r2)
	}
}

func TestUpdateUpsetGainsMoreThanExpectedWin(t *testing.T) {
	underdogGain, _ := Update(1000, 1400, 1)
	favoriteGain, _ := Update(1400, 1000, 1)
	if underdogGain-1000 <= favoriteGain-1400 {
		t.Fatalf("expected underdog win to gain more than favorite win: %d vs %d", underdogGain-1000, favoriteGain-1400)
	}
}

func TestUpdateDraw(t *testing.T) {
	r1, r2 := Update(1200, 1200, 0.5)
	if r1 != 1200 || r2 != 1200 {
		t.Fatalf("expected unchanged ratings on a draw between equals, got %d/%d", r1, r2)
	}
}
