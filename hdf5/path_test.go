package hdf5

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseAttrPath(t *testing.T) {
	tests := []struct {
		path       string
		wantObject string
		wantAttr   string
		wantErr    bool
	}{
		{"/@root_attr", "/", "root_attr", false},
		{"/data@units", "/data", "units", false},
		{"data/temp@cal", "/data/temp", "cal", false},
		{"/a@b@c", "/a@b", "c", false},
		{"", "", "", true},
		{"/data", "", "", true},
		{"/data@", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			obj, attr, err := ParseAttrPath(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("expected ErrInvalidPath, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if obj != tt.wantObject || attr != tt.wantAttr {
				t.Errorf("got (%q, %q), want (%q, %q)", obj, attr, tt.wantObject, tt.wantAttr)
			}
		})
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"", []string{}},
		{"/", []string{}},
		{"/foo", []string{"foo"}},
		{"foo//bar/", []string{"foo", "bar"}},
	}
	for _, tt := range tests {
		if got := SplitPath(tt.path); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestCleanPath(t *testing.T) {
	tests := map[string]string{
		"":          "/",
		"/":         "/",
		"a":         "/a",
		"/a/b/":     "/a/b",
		"//a///b//": "/a/b",
	}
	for in, want := range tests {
		if got := CleanPath(in); got != want {
			t.Errorf("CleanPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLinkKindString(t *testing.T) {
	if LinkHard.String() != "hard" || LinkSoft.String() != "soft" || LinkExternal.String() != "external" {
		t.Error("unexpected link kind names")
	}
	if LinkKind(9).String() != "LinkKind(9)" {
		t.Errorf("got %q", LinkKind(9).String())
	}
}
