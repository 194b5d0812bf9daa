package doctree

import "testing"

func TestPages_DocumentOrderAndTermination(t *testing.T) {
	tree := &DocTree{
		Title: "Course",
		Children: []*DocNode{
			{Title: "Chapter 1", Text: "Intro.", Children: []*DocNode{
				{Title: "1.1", Text: "Variables store data.\n\n"},
			}},
			{Text: "   "},
			{Title: "Chapter 2"},
		},
	}

	got := tree.Pages()
	want := []string{
		"Chapter 1\nIntro.\n",
		"1.1\nVariables store data.\n",
		"Chapter 2\n",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d pages, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("page[%d]: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestPlainText_LengthIsSumOfPages(t *testing.T) {
	tree := &DocTree{Children: []*DocNode{
		{Text: "page one", Page: 1},
		{Text: "", Page: 2},
		{Text: "page three", Page: 3},
	}}

	sum := 0
	for _, p := range tree.Pages() {
		sum += len(p)
	}
	if got := len(tree.PlainText()); got != sum {
		t.Errorf("expected plain text length %d, got %d", sum, got)
	}
	if tree.PlainText() != "page one\npage three\n" {
		t.Errorf("unexpected plain text %q", tree.PlainText())
	}
}

func TestPages_EmptyTree(t *testing.T) {
	tree := &DocTree{Title: "Empty"}
	if len(tree.Pages()) != 0 {
		t.Errorf("expected no pages, got %d", len(tree.Pages()))
	}
}
