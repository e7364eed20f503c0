package exchange

import "testing"

func TestKlinesWeightBands(t *testing.T) {
	cases := map[int]int{1: 1, 99: 1, 100: 2, 499: 2, 500: 5, 1000: 5, 1001: 10, 5000: 10}
	for limit, want := range cases {
		if got := klinesWeight(limit); got != want {
			t.Errorf("klinesWeight(%d) = %d, want %d", limit, got, want)
		}
	}
}

func TestDepthWeightBands(t *testing.T) {
	cases := map[int]int{1: 2, 100: 2, 101: 5, 500: 5, 501: 10, 1000: 10, 1001: 50, 5000: 50}
	for limit, want := range cases {
		if got := depthWeight(limit); got != want {
			t.Errorf("depthWeight(%d) = %d, want %d", limit, got, want)
		}
	}
}
