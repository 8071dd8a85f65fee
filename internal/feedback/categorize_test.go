package feedback

import "testing"

func TestCategorizeErrorPriority(t *testing.T) {
	cases := []struct {
		name string
		text string
		want Category
	}{
		{"type error", "error TS2304: Cannot find name 'foo'.", CategoryTypeError},
		{"dependency error", "Cannot find module 'lodash' or its corresponding type declarations.", CategoryDependencyError},
		{"compilation error", "SyntaxError: Unexpected token '}'", CategoryCompilationError},
		{"test failure", "FAIL src/foo.test.ts\n  expect(received).toEqual(expected)", CategoryTestFailure},
		{"lint error", "ESLint: 'x' is defined but never used", CategoryLintError},
		{"timeout", "Error: operation timed out after 60000ms", CategoryTimeout},
		{"runtime error", "TypeError: Cannot read properties of null", CategoryRuntimeError},
		{"unknown", "something bizarre happened that matches nothing", CategoryUnknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := CategorizeError(c.text)
			if got != c.want {
				t.Fatalf("CategorizeError(%q) = %q, want %q", c.text, got, c.want)
			}
		})
	}
}

func TestSuggestTypeErrorFixTS2304(t *testing.T) {
	got := suggestTypeErrorFix("error TS2304: Cannot find name 'Widget'.")
	want := "Import or declare 'Widget'"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSuggestTypeErrorFixTS2339(t *testing.T) {
	got := suggestTypeErrorFix("error TS2339: Property 'bar' does not exist on type 'Foo'.")
	want := "Property 'bar' missing on 'Foo'"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSuggestDependencyFixExtractsModuleName(t *testing.T) {
	got := suggestDependencyFix(`Cannot find module 'left-pad' or its corresponding type declarations.`)
	want := "install or vendor 'left-pad'"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
