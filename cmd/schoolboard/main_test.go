package main

import (
	"bytes"
	"testing"

	"github.com/MarcoPoloResearchLab/schoolboard/internal/records"
)

func TestRootCommandRegistersSubcommands(testContext *testing.T) {
	rootCmd := newRootCommand()
	for _, path := range [][]string{
		{"serve"},
		{"students", "list"},
		{"students", "update"},
		{"notices", "create"},
		{"announcements", "delete"},
		{"export"},
		{"import"},
	} {
		found, _, err := rootCmd.Find(path)
		if err != nil || found == rootCmd {
			testContext.Fatalf("expected subcommand %v, got %v", path, err)
		}
	}
}

func TestParseAssignments(testContext *testing.T) {
	assignments, err := parseAssignments([]string{"name=Ana", " class =5A", "notice=a=b", "birthDate="})
	if err != nil {
		testContext.Fatalf("unexpected error: %v", err)
	}
	want := []assignment{
		{field: "name", value: "Ana"},
		{field: "class", value: "5A"},
		{field: "notice", value: "a=b"},
		{field: "birthDate", value: ""},
	}
	if len(assignments) != len(want) {
		testContext.Fatalf("unexpected assignments %#v", assignments)
	}
	for index := range want {
		if assignments[index] != want[index] {
			testContext.Fatalf("assignment %d: got %#v want %#v", index, assignments[index], want[index])
		}
	}

	for _, invalid := range []string{"name", "=value"} {
		if _, err := parseAssignments([]string{invalid}); err == nil {
			testContext.Fatalf("expected error for %q", invalid)
		}
	}
}

func TestPrintRecordsUsesSummary(testContext *testing.T) {
	buffer := &bytes.Buffer{}
	students := []records.Student{{ID: "s1", Name: "Ana", Class: "5A", RegistrationNumber: "42"}}
	if err := printRecords(buffer, students); err != nil {
		testContext.Fatalf("unexpected error: %v", err)
	}
	if got := buffer.String(); got != "s1\tAna - 5A (Registration: 42)\n" {
		testContext.Fatalf("unexpected output %q", got)
	}
}
