package service

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/recipeapp/recipe-api/internal/validation"
)

func TestOptional_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantSet  bool
		wantNull bool
		want     string
	}{
		{"absent", `{}`, false, false, ""},
		{"null", `{"price":null}`, true, true, ""},
		{"number", `{"price":5.5}`, true, false, "5.50"},
		{"string", `{"price":"12.25"}`, true, false, "12.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in UpdateRecipeInput
			if err := json.Unmarshal([]byte(tt.body), &in); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if in.Price.Set != tt.wantSet || in.Price.Null != tt.wantNull {
				t.Fatalf("Set/Null = %v/%v, want %v/%v", in.Price.Set, in.Price.Null, tt.wantSet, tt.wantNull)
			}
			if tt.want != "" {
				if got := in.Price.Ptr(); got == nil || got.StringFixed(2) != tt.want {
					t.Errorf("value = %v, want %s", got, tt.want)
				}
			}
		})
	}

	if Null[decimal.Decimal]().Ptr() != nil {
		t.Error("Null().Ptr() should be nil")
	}
}

func TestCreateRecipeInput_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"absent", `{"name":"Soup","time_minutes":5}`, ""},
		{"null", `{"name":"Soup","time_minutes":5,"price":null}`, ""},
		{"number", `{"name":"Soup","time_minutes":5,"price":1.2}`, "1.20"},
		{"string", `{"name":"Soup","time_minutes":5,"price":"7.5"}`, "7.50"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var in CreateRecipeInput
			if err := json.Unmarshal([]byte(tt.body), &in); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if in.Name != "Soup" || in.TimeMinutes == nil || *in.TimeMinutes != 5 {
				t.Errorf("other fields not decoded: %+v", in)
			}
			switch {
			case tt.want == "" && in.Price != nil:
				t.Errorf("price = %v, want nil", in.Price)
			case tt.want != "" && (in.Price == nil || in.Price.StringFixed(2) != tt.want):
				t.Errorf("price = %v, want %s", in.Price, tt.want)
			}
		})
	}
}

func TestRecipeInput_InvalidPrice(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`{"price":"abc"}`, `{"price":true}`, `{"price":""}`, `{"price":{}}`} {
		var create CreateRecipeInput
		errs, ok := validation.As(json.Unmarshal([]byte(body), &create))
		if !ok || len(errs["price"]) == 0 {
			t.Errorf("create %s: want price field error, got %v", body, errs)
		}

		var update UpdateRecipeInput
		errs, ok = validation.As(json.Unmarshal([]byte(body), &update))
		if !ok || len(errs["price"]) == 0 {
			t.Errorf("update %s: want price field error, got %v", body, errs)
		}
	}
}
