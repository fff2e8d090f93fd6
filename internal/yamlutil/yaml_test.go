package yamlutil

import (
	"errors"
	"strings"
	"testing"
)

type testDoc struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func TestUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		want    testDoc
		wantErr error
	}{
		{
			name: "valid document",
			data: "name: site\ncount: 3\n",
			want: testDoc{Name: "site", Count: 3},
		},
		{
			name:    "empty input",
			data:    "",
			wantErr: ErrNilData,
		},
		{
			name: "unknown fields tolerated",
			data: "name: site\nextra: ignored\n",
			want: testDoc{Name: "site"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got testDoc
			err := Unmarshal([]byte(tt.data), &got)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Unmarshal() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Unmarshal() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestUnmarshalNilDestination(t *testing.T) {
	t.Parallel()

	if err := Unmarshal([]byte("name: x"), nil); !errors.Is(err, ErrNilDestination) {
		t.Errorf("Unmarshal(nil dest) error = %v, want ErrNilDestination", err)
	}
}

func TestUnmarshalTooLarge(t *testing.T) {
	t.Parallel()

	big := "name: " + strings.Repeat("x", MaxInputSize)
	var got testDoc
	if err := Unmarshal([]byte(big), &got); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("Unmarshal(oversized) error = %v, want ErrInputTooLarge", err)
	}
}

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	var got testDoc
	err := UnmarshalStrict([]byte("name: site\nextra: boom\n"), &got)
	if err == nil {
		t.Error("UnmarshalStrict() accepted unknown field, want error")
	}
}
