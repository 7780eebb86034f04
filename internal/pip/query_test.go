package pip

import (
	"reflect"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Flask", "flask"},
		{"charset_normalizer", "charset-normalizer"},
		{"zope.interface", "zope-interface"},
		{"Foo__Bar..Baz", "foo-bar-baz"},
		{"  six  ", "six"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFreeze(t *testing.T) {
	output := `six==1.16.0
# comment line
urllib3==2.0.4

Requests==2.28.0
mypkg @ git+https://example.com/mypkg.git@abc123
-e /home/dev/localpkg
`
	pkgs := ParseFreeze(output)

	wantNames := []string{"localpkg", "mypkg", "requests", "six", "urllib3"}
	var gotNames []string
	for _, p := range pkgs {
		gotNames = append(gotNames, p.Name)
	}
	if !reflect.DeepEqual(gotNames, wantNames) {
		t.Fatalf("ParseFreeze names = %v, want %v", gotNames, wantNames)
	}

	byName := make(map[string]Package)
	for _, p := range pkgs {
		byName[p.Name] = p
	}
	if byName["six"].Version != "1.16.0" {
		t.Errorf("six version = %q, want 1.16.0", byName["six"].Version)
	}
	if byName["six"].Provenance != "" {
		t.Errorf("six provenance = %q, want empty (default index)", byName["six"].Provenance)
	}
	if byName["mypkg"].Provenance != "git+https://example.com/mypkg.git@abc123" {
		t.Errorf("mypkg provenance = %q", byName["mypkg"].Provenance)
	}
	if byName["localpkg"].Provenance != "/home/dev/localpkg" {
		t.Errorf("localpkg provenance = %q", byName["localpkg"].Provenance)
	}
}

func TestParseFreeze_Empty(t *testing.T) {
	if pkgs := ParseFreeze(""); len(pkgs) != 0 {
		t.Errorf("ParseFreeze(\"\") = %v, want empty", pkgs)
	}
}

func TestParseFreezeLine_EditableEgg(t *testing.T) {
	pkg, ok := ParseFreezeLine("-e git+https://example.com/repo.git#egg=My_Pkg")
	if !ok {
		t.Fatal("expected editable line to parse")
	}
	if pkg.Name != "my-pkg" {
		t.Errorf("name = %q, want my-pkg", pkg.Name)
	}
}

func TestParseRequires(t *testing.T) {
	output := `Name: requests
Version: 2.28.0
Requires: certifi, charset_normalizer, idna, urllib3
Required-by: `
	got := parseRequires(output)
	want := []string{"certifi", "charset-normalizer", "idna", "urllib3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseRequires = %v, want %v", got, want)
	}

	if deps := parseRequires("Name: six\nRequires: \n"); len(deps) != 0 {
		t.Errorf("empty Requires should yield no deps, got %v", deps)
	}
}
