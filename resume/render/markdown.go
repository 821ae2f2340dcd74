package render

import "strings"

// BlockKind identifies how a markdown line is laid out in the document.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading1
	BlockHeading2
	BlockBullet
)

func (k BlockKind) String() string {
	switch k {
	case BlockHeading1:
		return "heading1"
	case BlockHeading2:
		return "heading2"
	case BlockBullet:
		return "bullet"
	default:
		return "paragraph"
	}
}

// Block is one rendered paragraph.
type Block struct {
	Kind BlockKind
	Text string
}

// Parse classifies each non-blank line by its prefix. Only "# ", "## ", "- " and "* "
// are recognized; everything else, including "### " and "#Title", is a paragraph
// rendered verbatim.
func Parse(markdown string) []Block {
	lines := strings.Split(markdown, "\n")
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "# "):
			blocks = append(blocks, Block{Kind: BlockHeading1, Text: line[2:]})
		case strings.HasPrefix(line, "## "):
			blocks = append(blocks, Block{Kind: BlockHeading2, Text: line[3:]})
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
			blocks = append(blocks, Block{Kind: BlockBullet, Text: line[2:]})
		default:
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: line})
		}
	}
	return blocks
}
