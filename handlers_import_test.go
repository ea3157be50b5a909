package main

import (
	"strings"
	"testing"
)

func TestParseGuestCSV(t *testing.T) {
	input := "NOME,NUMERO\nMaria,(11) 99999-0000\nJoão,11 98888-7777\n"

	parsed, err := parseGuestCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(parsed.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(parsed.Rows))
	}
	if len(parsed.RowErrors) != 0 {
		t.Fatalf("expected no row errors, got %v", parsed.RowErrors)
	}

	if parsed.Rows[0].Name != "Maria" || parsed.Rows[0].Phone != "11999990000" {
		t.Errorf("row 0 = %+v", parsed.Rows[0])
	}
	if parsed.Rows[1].Name != "João" || parsed.Rows[1].Phone != "11988887777" {
		t.Errorf("row 1 = %+v", parsed.Rows[1])
	}
	if parsed.Rows[0].Line != 2 {
		t.Errorf("first data row should be line 2, got %d", parsed.Rows[0].Line)
	}
}

func TestParseGuestCSVHeaderSynonyms(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"english", "name,phone\nAna,11999990000\n"},
		{"accented numero", "Nome,Número\nAna,11999990000\n"},
		{"telefone", "NOME,TELEFONE\nAna,11999990000\n"},
		{"celular mixed case", "nome,Celular\nAna,11999990000\n"},
		{"extra columns", "email,NOME,idade,NUMERO\na@b.com,Ana,30,11999990000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := parseGuestCSV(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(parsed.Rows) != 1 || parsed.Rows[0].Name != "Ana" || parsed.Rows[0].Phone != "11999990000" {
				t.Errorf("rows = %+v", parsed.Rows)
			}
		})
	}
}

func TestParseGuestCSVMissingColumns(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no phone column", "NOME,EMAIL\nMaria,a@b.com\n"},
		{"no name column", "NUMERO\n11999990000\n"},
		{"unrelated headers", "foo,bar\n1,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseGuestCSV(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error for missing columns")
			}
		})
	}
}

func TestParseGuestCSVRowErrors(t *testing.T) {
	input := "NOME,NUMERO\nMaria,11999990000\n,11988887777\nJoão,\nAna,sem-numero\n"

	parsed, err := parseGuestCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(parsed.Rows) != 1 {
		t.Errorf("expected 1 usable row, got %d: %+v", len(parsed.Rows), parsed.Rows)
	}
	if len(parsed.RowErrors) != 3 {
		t.Errorf("expected 3 row errors, got %v", parsed.RowErrors)
	}

	// Row errors must carry the original line number.
	if len(parsed.RowErrors) > 0 && !strings.Contains(parsed.RowErrors[0], "line 3") {
		t.Errorf("row error should reference line 3: %v", parsed.RowErrors[0])
	}
}

func TestParseGuestCSVEmpty(t *testing.T) {
	if _, err := parseGuestCSV(strings.NewReader("")); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := parseGuestCSV(strings.NewReader("NOME,NUMERO\n")); err == nil {
		t.Error("expected error for header-only input")
	}
}

func TestParseGuestCSVShortRows(t *testing.T) {
	// A row shorter than the header must not panic; it fails as a row error.
	input := "NOME,NUMERO\nMaria\n"

	parsed, err := parseGuestCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parsed.Rows) != 0 {
		t.Errorf("expected no usable rows, got %+v", parsed.Rows)
	}
	if len(parsed.RowErrors) != 1 {
		t.Errorf("expected 1 row error, got %v", parsed.RowErrors)
	}
}
