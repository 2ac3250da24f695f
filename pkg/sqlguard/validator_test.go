package sqlguard

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidateAndNormalize(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		want    string
		wantErr error
	}{
		{
			"plain select",
			"SELECT gid FROM mods",
			"SELECT gid FROM mods",
			nil,
		},
		{
			"trailing semicolon stripped",
			"SELECT gid FROM mods;",
			"SELECT gid FROM mods",
			nil,
		},
		{
			"trailing semicolon with whitespace",
			"SELECT gid FROM mods ;  \n",
			"SELECT gid FROM mods",
			nil,
		},
		{
			"with query allowed",
			"WITH g AS (SELECT gid FROM mods) SELECT * FROM g",
			"WITH g AS (SELECT gid FROM mods) SELECT * FROM g",
			nil,
		},
		{
			"multiple statements rejected",
			"SELECT gid FROM mods; DROP TABLE mods",
			"",
			ErrMultipleStatements,
		},
		{
			"semicolon inside literal allowed",
			"SELECT gid FROM mods WHERE eng_name ILIKE 'a;b'",
			"SELECT gid FROM mods WHERE eng_name ILIKE 'a;b'",
			nil,
		},
		{
			"update rejected",
			"UPDATE mods SET region = 'x'",
			"",
			ErrNotReadOnly,
		},
		{
			"delete rejected",
			"DELETE FROM mods",
			"",
			ErrNotReadOnly,
		},
		{
			"empty rejected",
			"   ",
			"",
			ErrEmptyStatement,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateAndNormalize(tt.sql)
			if tt.wantErr != nil {
				if !errors.Is(got.Error, tt.wantErr) {
					t.Errorf("error = %v, want %v", got.Error, tt.wantErr)
				}
				return
			}
			if got.Error != nil {
				t.Fatalf("unexpected error: %v", got.Error)
			}
			if got.NormalizedSQL != tt.want {
				t.Errorf("normalized = %q, want %q", got.NormalizedSQL, tt.want)
			}
		})
	}
}

func TestCheckLiteralsForInjection(t *testing.T) {
	clean := []string{
		"SELECT gid FROM mods WHERE major_comm ILIKE '%gold%'",
		"SELECT gid FROM mods WHERE region ILIKE '%Riyadh Region%'",
		"SELECT gid FROM mods",
	}
	for _, sql := range clean {
		if result := CheckLiteralsForInjection(sql); result != nil {
			t.Errorf("false positive for %q: %v", sql, result)
		}
	}

	malicious := "SELECT gid FROM mods WHERE eng_name ILIKE '''; DROP TABLE users--'"
	result := CheckLiteralsForInjection(malicious)
	if result == nil {
		t.Fatal("injection not detected")
	}
	if result.Fingerprint == "" {
		t.Error("fingerprint missing")
	}
	if result.Error() == "" {
		t.Error("empty error message")
	}
}

func TestExtractLiterals(t *testing.T) {
	tests := []struct {
		sql  string
		want []string
	}{
		{"SELECT 1", nil},
		{"WHERE a = 'x'", []string{"x"}},
		{"WHERE a = 'x' AND b = 'y'", []string{"x", "y"}},
		{"WHERE a = 'it''s'", []string{"it's"}},
		{"WHERE a = ''", []string{""}},
	}

	for _, tt := range tests {
		if got := extractLiterals(tt.sql); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("extractLiterals(%q) = %v, want %v", tt.sql, got, tt.want)
		}
	}
}
