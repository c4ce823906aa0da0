package validation

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

type itemInput struct {
	Name string `json:"name" validate:"required,max=5"`
}

type sampleInput struct {
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=8"`
	Minutes  *int        `json:"time_minutes" validate:"required,gte=0"`
	Items    []itemInput `json:"items" validate:"dive"`
	Ignored  string      `json:"-"`
}

func intPtr(v int) *int { return &v }

func TestStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      sampleInput
		wantFields []string
	}{
		{
			name:  "valid",
			input: sampleInput{Email: "a@example.com", Password: "password123", Minutes: intPtr(0)},
		},
		{
			name:       "missing everything",
			input:      sampleInput{},
			wantFields: []string{"email", "password", "time_minutes"},
		},
		{
			name:       "bad email and short password",
			input:      sampleInput{Email: "nope", Password: "short", Minutes: intPtr(5)},
			wantFields: []string{"email", "password"},
		},
		{
			name:       "negative minutes",
			input:      sampleInput{Email: "a@example.com", Password: "password123", Minutes: intPtr(-1)},
			wantFields: []string{"time_minutes"},
		},
		{
			name: "nested item",
			input: sampleInput{
				Email: "a@example.com", Password: "password123", Minutes: intPtr(1),
				Items: []itemInput{{Name: "ok"}, {Name: "toolong"}},
			},
			wantFields: []string{"items[1].name"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			errs := Struct(tt.input)
			if len(errs) != len(tt.wantFields) {
				t.Fatalf("Struct() = %v, want fields %v", errs, tt.wantFields)
			}
			for _, f := range tt.wantFields {
				if len(errs[f]) == 0 {
					t.Errorf("missing error for field %q in %v", f, errs)
				}
			}
		})
	}
}

func TestStruct_Messages(t *testing.T) {
	t.Parallel()

	errs := Struct(sampleInput{Email: "a@example.com", Password: "short", Minutes: intPtr(1)})
	got := errs["password"]
	if len(got) != 1 || got[0] != "Ensure this field has at least 8 characters." {
		t.Errorf("password message = %v", got)
	}
}

func TestErrors_AsAndErr(t *testing.T) {
	t.Parallel()

	var empty Errors
	if empty.Err() != nil {
		t.Error("empty Errors should produce a nil error")
	}

	errs := Field("email", "user with this email already exists.")
	errs.Add("email", "second")
	errs.Merge(Errors{"name": {"This field is required."}})

	wrapped := fmt.Errorf("register: %w", errs.Err())
	got, ok := As(wrapped)
	if !ok {
		t.Fatal("As should unwrap Errors")
	}
	if len(got["email"]) != 2 || len(got["name"]) != 1 {
		t.Errorf("unexpected errors: %v", got)
	}
	if !strings.Contains(wrapped.Error(), "email: user with this email already exists. second") {
		t.Errorf("Error() = %q", wrapped.Error())
	}

	if _, ok := As(errors.New("plain")); ok {
		t.Error("As should reject plain errors")
	}
}

func TestVar(t *testing.T) {
	t.Parallel()

	if errs := Var("email", "a@example.com", "email"); errs != nil {
		t.Errorf("valid email rejected: %v", errs)
	}

	errs := Var("email", "not-an-email", "email")
	if got := errs["email"]; len(got) != 1 || got[0] != "Enter a valid email address." {
		t.Errorf("Var() = %v", errs)
	}

	errs = Var("password", "short", "min=8")
	if got := errs["password"]; len(got) != 1 || got[0] != "Ensure this field has at least 8 characters." {
		t.Errorf("Var() = %v", errs)
	}
}
