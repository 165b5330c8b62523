package main

import (
	"strings"
	"testing"
)

func TestRunAdminUnknownCommand(t *testing.T) {
	err := runAdmin([]string{"frobnicate"})
	if err == nil || !strings.Contains(err.Error(), "unknown admin command") {
		t.Fatalf("err = %v", err)
	}
}

func TestRunAdminHelp(t *testing.T) {
	for _, args := range [][]string{nil, {"help"}, {"--help"}} {
		if err := runAdmin(args); err != nil {
			t.Errorf("runAdmin(%v) = %v", args, err)
		}
	}
}

func TestRunAdminFlagValidation(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"create-tenant"}, "--subdomain is required"},
		{[]string{"create-operator", "--tenant", "acme"}, "are required"},
		{[]string{"issue-token"}, "--email is required"},
		{[]string{"rollback", "--steps", "0"}, "--steps must be >= 1"},
	}
	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			err := runAdmin(tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestOriginPatterns(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"http://localhost:3000", []string{"localhost:3000"}},
		{"https://ui.example.com", []string{"ui.example.com"}},
		{"ui.example.com", []string{"ui.example.com"}},
	}
	for _, tt := range tests {
		got := originPatterns(tt.in)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("originPatterns(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
