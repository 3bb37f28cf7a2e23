package rank

import (
	"context"
	"testing"

	"github.com/rushteam/unitrec/core"
)

func TestScoreSortNode(t *testing.T) {
	tests := []struct {
		name   string
		scores map[string]float64
		order  []string
		want   []string
	}{
		{
			name:   "score descending",
			scores: map[string]float64{"a": 0.1, "b": 0.9, "c": 0.5},
			order:  []string{"a", "b", "c"},
			want:   []string{"b", "c", "a"},
		},
		{
			name:   "ties broken by product id",
			scores: map[string]float64{"p3": 1, "p10": 1, "p1": 1},
			order:  []string{"p3", "p10", "p1"},
			want:   []string{"p1", "p10", "p3"},
		},
		{
			name:   "mixed",
			scores: map[string]float64{"z": 0.8, "y": 0.8, "x": 0.2},
			order:  []string{"x", "z", "y"},
			want:   []string{"y", "z", "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make([]*core.Item, 0, len(tt.order))
			for _, id := range tt.order {
				it := core.NewItem(id)
				it.Score = tt.scores[id]
				in = append(in, it)
			}
			in = append(in, nil)

			out, err := (&ScoreSortNode{}).Process(context.Background(), nil, in)
			if err != nil {
				t.Fatal(err)
			}
			if len(out) != len(tt.want) {
				t.Fatalf("got %d items, want %d", len(out), len(tt.want))
			}
			for i, id := range tt.want {
				if out[i].ID != id {
					t.Errorf("position %d: got %s, want %s", i, out[i].ID, id)
				}
			}
		})
	}
}
