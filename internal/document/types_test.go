package document

import "testing"

func TestTypeForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want FileType
		ok   bool
	}{
		{".pdf", TypePDF, true},
		{".docx", TypeDOCX, true},
		{".txt", TypePlain, true},
		{".md", TypeMarkdown, true},
		{".doc", "", false},
		{".html", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := TypeForExtension(tt.ext)
		if ok != tt.ok || got != tt.want {
			t.Errorf("TypeForExtension(%q) = (%q, %v), want (%q, %v)", tt.ext, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTypeForContentType(t *testing.T) {
	if got, ok := TypeForContentType("application/pdf"); !ok || got != TypePDF {
		t.Errorf("application/pdf = (%q, %v)", got, ok)
	}
	if _, ok := TypeForContentType("image/png"); ok {
		t.Error("image/png should not be supported")
	}
}

func TestFileTypeValid(t *testing.T) {
	for _, ft := range []FileType{TypePDF, TypeDOCX, TypePlain, TypeMarkdown} {
		if !ft.Valid() {
			t.Errorf("%q should be valid", ft)
		}
	}
	if FileType("exe").Valid() {
		t.Error("exe should be invalid")
	}
}
