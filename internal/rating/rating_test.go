package rating

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestExpectedComplement(t *testing.T) {
	pairs := [][2]float64{
		{1000, 1000},
		{1200, 1200},
		{1200, 1800},
		{2400, 1000},
		{1000, 5000},
	}
	for _, p := range pairs {
		sum := Expected(p[0], p[1]) + Expected(p[1], p[0])
		if !almostEqual(sum, 1) {
			t.Fatalf("Expected(%v,%v)+Expected(%v,%v) = %v, want 1", p[0], p[1], p[1], p[0], sum)
		}
	}
}

func TestDeltaSign(t *testing.T) {
	// result equal to expectation yields zero change
	if d := Delta(1200, 1200, ScoreDraw); !almostEqual(d, 0) {
		t.Fatalf("equal ratings draw delta = %v, want 0", d)
	}
	// result above expectation is positive, below is negative
	if d := Delta(1200, 1200, ScoreWin); d <= 0 {
		t.Fatalf("win delta = %v, want > 0", d)
	}
	if d := Delta(1200, 1200, ScoreLoss); d >= 0 {
		t.Fatalf("loss delta = %v, want < 0", d)
	}
	// an underdog win pays more than a favorite win
	if Delta(1200, 1800, ScoreWin) <= Delta(1800, 1200, ScoreWin) {
		t.Fatalf("underdog win should outpay favorite win")
	}
}

func TestPrecomputeEqualRatings(t *testing.T) {
	d := Precompute(1200, 1200)
	if !almostEqual(d.WhiteWin, 16) || !almostEqual(d.BlackWin, 16) {
		t.Fatalf("equal ratings win delta = %v / %v, want 16", d.WhiteWin, d.BlackWin)
	}
	if !almostEqual(d.WhiteLose, -16) || !almostEqual(d.BlackLose, -16) {
		t.Fatalf("equal ratings lose delta = %v / %v, want -16", d.WhiteLose, d.BlackLose)
	}
	if !almostEqual(d.WhiteDraw, 0) || !almostEqual(d.BlackDraw, 0) {
		t.Fatalf("equal ratings draw delta = %v / %v, want 0", d.WhiteDraw, d.BlackDraw)
	}
}

func TestPrecomputeMirrors(t *testing.T) {
	d := Precompute(1450, 1210)
	if !almostEqual(d.WhiteWin, Delta(1450, 1210, ScoreWin)) {
		t.Fatalf("white win delta mismatch")
	}
	if !almostEqual(d.BlackWin, Delta(1210, 1450, ScoreWin)) {
		t.Fatalf("black win delta mismatch")
	}
	// win+lose deltas of opposite sides cancel out under fixed K
	if !almostEqual(d.WhiteWin+d.BlackLose, 0) {
		t.Fatalf("WhiteWin %v and BlackLose %v should cancel", d.WhiteWin, d.BlackLose)
	}
	if !almostEqual(d.BlackWin+d.WhiteLose, 0) {
		t.Fatalf("BlackWin %v and WhiteLose %v should cancel", d.BlackWin, d.WhiteLose)
	}
}
