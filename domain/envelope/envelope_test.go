package envelope

import (
	"errors"
	"testing"
)

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		shape   Shape
		want    string
		wantErr string
	}{
		{"raw array passes through", `[{"vehicle_id":1}]`, ShapeList, `[{"vehicle_id":1}]`, ""},
		{"raw object passes through", `{"vehicle_id":42,"status":"Available"}`, ShapeObject, `{"vehicle_id":42,"status":"Available"}`, ""},
		{"success data", `{"success":true,"data":{"vehicle_id":42}}`, ShapeObject, `{"vehicle_id":42}`, ""},
		{"success list data", `{"success":true,"data":[1,2]}`, ShapeList, `[1,2]`, ""},
		{"success without data list", `{"success":true}`, ShapeList, `[]`, ""},
		{"success without data object", `{"success":true}`, ShapeObject, `{}`, ""},
		{"success null data", `{"success":true,"data":null}`, ShapeList, `[]`, ""},
		{"failure with error", `{"success":false,"error":"X"}`, ShapeObject, "", "X"},
		{"failure with message", `{"success":false,"message":"Not allowed"}`, ShapeObject, "", "Not allowed"},
		{"failure prefers error", `{"success":false,"error":"E","message":"M"}`, ShapeObject, "", "E"},
		{"failure with nothing", `{"success":false}`, ShapeList, "", DefaultMessage},
		{"failure empty strings", `{"success":false,"error":"","message":""}`, ShapeList, "", DefaultMessage},
		{"empty body list", ``, ShapeList, `[]`, ""},
		{"empty body object", "  \n", ShapeObject, `{}`, ""},
		{"non-bool success passes through", `{"success":"yes","data":1}`, ShapeObject, `{"success":"yes","data":1}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unwrap([]byte(tt.raw), tt.shape)
			if tt.wantErr != "" {
				var envErr *Error
				if !errors.As(err, &envErr) {
					t.Fatalf("Unwrap() error = %v, want *Error", err)
				}
				if envErr.Message != tt.wantErr {
					t.Errorf("Message = %q, want %q", envErr.Message, tt.wantErr)
				}
				if got != nil {
					t.Errorf("payload = %s, want nil", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unwrap() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Unwrap() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWrapThenUnwrap(t *testing.T) {
	raw, err := Wrap(map[string]int{"vehicle_id": 42})
	if err != nil {
		t.Fatalf("Wrap() error = %v", err)
	}
	got, err := Unwrap(raw, ShapeObject)
	if err != nil {
		t.Fatalf("Unwrap() error = %v", err)
	}
	if string(got) != `{"vehicle_id":42}` {
		t.Errorf("got %s", got)
	}
}

func TestFail(t *testing.T) {
	_, err := Unwrap(Fail("", "bad dates"), ShapeObject)
	if err == nil || err.Error() != "bad dates" {
		t.Errorf("err = %v, want bad dates", err)
	}
}
