package render

import "testing"

func TestParseClassifiesLines(t *testing.T) {
	markdown := "# Jane Doe\n\n## Experience\n- Led a team of 5\n* Cut costs by 20%\nPlain paragraph\n#Title\n### Deep heading\n   \n  ## Skills  \n-not a bullet\n"

	got := Parse(markdown)
	want := []Block{
		{Kind: BlockHeading1, Text: "Jane Doe"},
		{Kind: BlockHeading2, Text: "Experience"},
		{Kind: BlockBullet, Text: "Led a team of 5"},
		{Kind: BlockBullet, Text: "Cut costs by 20%"},
		{Kind: BlockParagraph, Text: "Plain paragraph"},
		{Kind: BlockParagraph, Text: "#Title"},
		{Kind: BlockParagraph, Text: "### Deep heading"},
		{Kind: BlockHeading2, Text: "Skills"},
		{Kind: BlockParagraph, Text: "-not a bullet"},
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d blocks, got %d: %#v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("block %d: got %v %q, want %v %q", i, got[i].Kind, got[i].Text, want[i].Kind, want[i].Text)
		}
	}
}

func TestParseHandlesCRLFAndEmpty(t *testing.T) {
	got := Parse("# Name\r\n\r\n- item\r\n")
	if len(got) != 2 || got[0].Text != "Name" || got[1].Text != "item" {
		t.Fatalf("unexpected blocks %#v", got)
	}
	if blocks := Parse("\n \n\t\n"); len(blocks) != 0 {
		t.Fatalf("expected no blocks, got %#v", blocks)
	}
}

func TestParseKeepsInlineMarkupVerbatim(t *testing.T) {
	got := Parse("- **Bold** and _italic_ | table |")
	if len(got) != 1 || got[0].Text != "**Bold** and _italic_ | table |" {
		t.Fatalf("unexpected blocks %#v", got)
	}
}
