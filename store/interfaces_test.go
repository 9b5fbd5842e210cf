package store

import (
	"testing"

	"github.com/normindex/normindex/core"
)

func TestFiltersMatch(t *testing.T) {
	payload := &core.Payload{
		DocumentId:    42,
		Text:          "5.2 Требования к материалам",
		HierarchyPath: []string{"СП 63.13330.2018", "5", "5.2"},
		Entities:      []string{"ГОСТ 27751"},
	}

	tests := []struct {
		name    string
		filters Filters
		want    bool
	}{
		{"empty filters match everything", Filters{}, true},
		{"matching document", Filters{DocumentIds: []core.ID{42}}, true},
		{"other document", Filters{DocumentIds: []core.ID{7}}, false},
		{"matching hierarchy prefix", Filters{HierarchyPrefix: []string{"СП 63.13330.2018", "5"}}, true},
		{"full hierarchy prefix", Filters{HierarchyPrefix: []string{"СП 63.13330.2018", "5", "5.2"}}, true},
		{"prefix longer than path", Filters{HierarchyPrefix: []string{"СП 63.13330.2018", "5", "5.2", "5.2.1"}}, false},
		{"wrong prefix", Filters{HierarchyPrefix: []string{"СП 63.13330.2018", "6"}}, false},
		{"matching entity", Filters{Entities: []string{"ГОСТ 27751"}}, true},
		{"entity case-insensitive", Filters{Entities: []string{"гост 27751"}}, true},
		{"missing entity", Filters{Entities: []string{"СП 20.13330"}}, false},
		{
			"all conditions must hold",
			Filters{DocumentIds: []core.ID{42}, Entities: []string{"СП 20.13330"}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filters.Match(42, payload); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFiltersEmpty(t *testing.T) {
	if !(Filters{}).Empty() {
		t.Error("zero filters not reported empty")
	}
	if (Filters{Entities: []string{"ГОСТ 27751"}}).Empty() {
		t.Error("entity filter reported empty")
	}
}

func TestQueryValidate(t *testing.T) {
	valid := &Query{Vector: []float32{0.1, 0.2}, Limit: 10}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid query rejected: %v", err)
	}

	if err := (&Query{Limit: 10}).Validate(); err != ErrInvalidQuery {
		t.Errorf("empty vector: err = %v", err)
	}
	if err := (&Query{Vector: []float32{1}, Limit: 0}).Validate(); err != ErrInvalidQuery {
		t.Errorf("zero limit: err = %v", err)
	}
}
