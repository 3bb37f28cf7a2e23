package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordIngest(t *testing.T) {
	tests := []struct {
		name           string
		outcome        string
		catalogCreated bool
	}{
		{name: "logged with new product", outcome: OutcomeOK, catalogCreated: true},
		{name: "logged existing product", outcome: OutcomeOK, catalogCreated: false},
		{name: "partial", outcome: OutcomePartial, catalogCreated: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(IngestTotal.WithLabelValues(tt.outcome))
			placeholders := testutil.ToFloat64(CatalogPlaceholdersCreated)

			RecordIngest(tt.outcome, tt.catalogCreated)

			if got := testutil.ToFloat64(IngestTotal.WithLabelValues(tt.outcome)); got != before+1 {
				t.Errorf("IngestTotal[%s] = %v, want %v", tt.outcome, got, before+1)
			}
			want := placeholders
			if tt.catalogCreated {
				want++
			}
			if got := testutil.ToFloat64(CatalogPlaceholdersCreated); got != want {
				t.Errorf("CatalogPlaceholdersCreated = %v, want %v", got, want)
			}
		})
	}
}

func TestRecordRecommend(t *testing.T) {
	before := testutil.ToFloat64(RecommendTotal.WithLabelValues(OutcomeUserNotFound))
	RecordRecommend(OutcomeUserNotFound, 3*time.Millisecond, 0)
	if got := testutil.ToFloat64(RecommendTotal.WithLabelValues(OutcomeUserNotFound)); got != before+1 {
		t.Errorf("RecommendTotal[user_not_found] = %v, want %v", got, before+1)
	}

	RecordRecommend(OutcomeOK, 5*time.Millisecond, 3)
	if n := testutil.CollectAndCount(RecommendReturnedItems); n != 1 {
		t.Errorf("RecommendReturnedItems collected %d series, want 1", n)
	}
}
