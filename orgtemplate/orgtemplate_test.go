package orgtemplate

import "testing"

func TestRenderBasicPlaceholders(t *testing.T) {
	ctx := Context{Name: "Super Mario Bros", Extension: "nes", Region: "USA"}
	got, warnings, err := Render("{name} ({region}).{extension}", ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	want := "Super Mario Bros (USA).nes"
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestRenderModifiers(t *testing.T) {
	ctx := Context{Name: "Castlevania: Rondo"}
	got, _, err := Render("{name:safe}", ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Castlevania_ Rondo" {
		t.Fatalf("Render() = %q", got)
	}

	got, _, err = Render("{name:upper}", ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != "CASTLEVANIA: RONDO" {
		t.Fatalf("Render() = %q", got)
	}
}

func TestRenderUnknownPlaceholderWarnsAndRendersEmpty(t *testing.T) {
	got, warnings, err := Render("{name}-{bogus}", Context{Name: "Foo"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "Foo-" {
		t.Fatalf("Render() = %q, want %q", got, "Foo-")
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
}

func TestUnmatchedBraceFailsParse(t *testing.T) {
	_, _, err := Render("{name", Context{})
	if err == nil {
		t.Fatal("expected template_parse_error")
	}
	if !TemplateParseError.Contains(err) {
		t.Fatalf("expected TemplateParseError class, got %v", err)
	}
}

func TestValidateAcceptsWellFormedTemplate(t *testing.T) {
	if err := Validate("{system}/{clean_name}/{name:safe}.{extension}"); err != nil {
		t.Fatal(err)
	}
}
