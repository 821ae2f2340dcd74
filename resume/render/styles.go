package render

import "fmt"

// Layout constants shared by every rendered document.
const (
	FontFamily = "Arial"
	// FontSizeHalfPoints is 11pt expressed in OOXML half-points.
	FontSizeHalfPoints = 22
	// MarginTwips is one inch on every side.
	MarginTwips = 1440

	pageWidthTwips  = 12240
	pageHeightTwips = 15840
	bulletNumID     = 1
)

// Paragraph style ids.
const (
	styleNormal   = "Normal"
	styleHeading1 = "Heading1"
	styleHeading2 = "Heading2"
	styleBullet   = "ListBullet"
)

// RunStyle captures the inline run formatting of a block kind.
type RunStyle struct {
	StyleID string
	Bold    bool
}

// StyleMap centralizes the formatting for each block kind.
var StyleMap = map[BlockKind]RunStyle{
	BlockParagraph: {StyleID: styleNormal},
	BlockHeading1:  {StyleID: styleHeading1, Bold: true},
	BlockHeading2:  {StyleID: styleHeading2, Bold: true},
	BlockBullet:    {StyleID: styleBullet},
}

var runFonts = fmt.Sprintf(`<w:rFonts w:ascii="%[1]s" w:hAnsi="%[1]s" w:eastAsia="%[1]s" w:cs="%[1]s"/>`, FontFamily)

var runSize = fmt.Sprintf(`<w:sz w:val="%[1]d"/><w:szCs w:val="%[1]d"/>`, FontSizeHalfPoints)

var stylesXML = xmlHeader +
	`<w:styles xmlns:w="` + wmlNamespace + `">` +
	`<w:docDefaults><w:rPrDefault><w:rPr>` + runFonts + runSize + `</w:rPr></w:rPrDefault>` +
	`<w:pPrDefault><w:pPr><w:spacing w:after="120" w:line="264" w:lineRule="auto"/></w:pPr></w:pPrDefault></w:docDefaults>` +
	paragraphStyle(styleNormal, "Normal", false, true, "") +
	paragraphStyle(styleHeading1, "heading 1", true, false, `<w:keepNext/><w:spacing w:before="240" w:after="120"/><w:outlineLvl w:val="0"/>`) +
	paragraphStyle(styleHeading2, "heading 2", true, false, `<w:keepNext/><w:spacing w:before="200" w:after="80"/><w:outlineLvl w:val="1"/>`) +
	paragraphStyle(styleBullet, "List Bullet", false, false, fmt.Sprintf(`<w:numPr><w:numId w:val="%d"/></w:numPr><w:ind w:left="720" w:hanging="360"/>`, bulletNumID)) +
	`</w:styles>`

func paragraphStyle(id, name string, bold, isDefault bool, pPr string) string {
	def := ""
	if isDefault {
		def = ` w:default="1"`
	}
	basedOn := ""
	if id != styleNormal {
		basedOn = `<w:basedOn w:val="` + styleNormal + `"/><w:qFormat/>`
	}
	b := ""
	if bold {
		b = `<w:b/><w:bCs/>`
	}
	if pPr != "" {
		pPr = `<w:pPr>` + pPr + `</w:pPr>`
	}
	return `<w:style w:type="paragraph"` + def + ` w:styleId="` + id + `">` +
		`<w:name w:val="` + name + `"/>` + basedOn + pPr +
		`<w:rPr>` + runFonts + b + runSize + `</w:rPr></w:style>`
}

var numberingXML = xmlHeader +
	`<w:numbering xmlns:w="` + wmlNamespace + `">` +
	`<w:abstractNum w:abstractNumId="0"><w:multiLevelType w:val="singleLevel"/>` +
	`<w:lvl w:ilvl="0"><w:start w:val="1"/><w:numFmt w:val="bullet"/><w:lvlText w:val="•"/><w:lvlJc w:val="left"/>` +
	`<w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr>` +
	`<w:rPr>` + runFonts + runSize + `</w:rPr></w:lvl></w:abstractNum>` +
	fmt.Sprintf(`<w:num w:numId="%d"><w:abstractNumId w:val="0"/></w:num>`, bulletNumID) +
	`</w:numbering>`
