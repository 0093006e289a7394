package jsontime

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLenient_UnmarshalJSON(t *testing.T) {
	want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339", `"2024-01-15T10:30:00Z"`, want},
		{"rfc3339 offset", `"2024-01-15T13:30:00+03:00"`, want},
		{"naive iso", `"2024-01-15T10:30:00"`, want},
		{"naive iso micros", `"2024-01-15T10:30:00.000000"`, want},
		{"space separated", `"2024-01-15 10:30:00"`, want},
		{"unix seconds", `1705314600`, want},
		{"unix fractional", `1705314600.5`, want.Add(500 * time.Millisecond)},
		{"null", `null`, time.Time{}},
		{"empty string", `""`, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l Lenient
			if err := json.Unmarshal([]byte(tt.input), &l); err != nil {
				t.Fatalf("UnmarshalJSON(%s) error: %v", tt.input, err)
			}
			if !l.Time().Equal(tt.want) {
				t.Errorf("UnmarshalJSON(%s) = %v, want %v", tt.input, l.Time(), tt.want)
			}
		})
	}
}

func TestLenient_UnmarshalJSON_Invalid(t *testing.T) {
	for _, input := range []string{`"yesterday"`, `true`, `{}`} {
		var l Lenient
		if err := json.Unmarshal([]byte(input), &l); err == nil {
			t.Errorf("UnmarshalJSON(%s) expected error, got %v", input, l)
		}
	}
}

func TestLenient_MarshalJSON(t *testing.T) {
	l := Lenient(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("MarshalJSON error: %v", err)
	}
	if string(data) != `"2024-01-15T10:30:00Z"` {
		t.Errorf("MarshalJSON = %s", data)
	}

	data, err = json.Marshal(Lenient{})
	if err != nil {
		t.Fatalf("MarshalJSON zero error: %v", err)
	}
	if string(data) != "null" {
		t.Errorf("MarshalJSON zero = %s, want null", data)
	}
}

func TestLenient_InStruct(t *testing.T) {
	var v struct {
		ID        int     `json:"id"`
		CreatedAt Lenient `json:"created_at"`
	}
	if err := json.Unmarshal([]byte(`{"id":7,"created_at":"2024-03-01T08:00:00"}`), &v); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if v.CreatedAt.Time().Month() != time.March || v.CreatedAt.Time().Hour() != 8 {
		t.Errorf("CreatedAt = %v", v.CreatedAt)
	}
}

func TestLenient_Comparisons(t *testing.T) {
	t1 := Lenient(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	t2 := Lenient(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))

	if !t1.Before(t2) {
		t.Error("t1 should be before t2")
	}
	if !t2.After(t1) {
		t.Error("t2 should be after t1")
	}
	if t1.Equal(t2) {
		t.Error("t1 should not equal t2")
	}
	if (Lenient{}).String() != "-" {
		t.Errorf("zero String = %q", (Lenient{}).String())
	}
}
