package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	ParsePaperDescription = `Parse a scientific paper PDF into a structured document.

**When to use:** You need the sections, sentences, figures, citations or bibliography of a research paper rather than a flat text dump.

**Why it's useful:** Removes running headers, footers, line numbers and figure interiors using page geometry, then rebuilds paragraphs and splits the paper into named sections (abstract, introduction, methods, results, discussion, references).

**Examples:**
• Summarize a paper: "Parse paper.pdf and give me the abstract and conclusion"
• Check citations: "Parse preprint.pdf as json and list which sentences cite [12]"
• Get clean text: "Parse paper.pdf in markdown format"

**Formats:**
• summary (default): title, section list with sentence counts, figures and validation flags
• json: the complete parsed document including sentence ids and character offsets
• markdown: the reconstructed markdown with ### **Section** headers

**Best practices:** Run validate_paper first on untrusted input. Sentence ids are stable across parses of the same file, so they can be stored and referenced later.`

	ValidatePaperDescription = `Verify that a PDF file exists, is readable and contains extractable text.

**When to use:** Before parsing files from user uploads or unknown directories.

**Why it's useful:** Catches missing files, wrong extensions, oversized inputs and corrupt PDFs before the full layout analysis runs.

**Examples:**
• Upload check: "Validate upload.pdf before parsing"
• Batch safety: "Validate every file in /papers/ and report the broken ones"

**Best practices:** A scanned paper with no text layer passes file validation but fails parse_paper with UNSUPPORTED_DOCUMENT.`

	ParseDirectoryDescription = `Parse every PDF in a directory concurrently and report per-file results.

**When to use:** Processing a folder of papers in one call.

**Why it's useful:** Runs independent parses on a bounded worker pool and returns one summary line per paper in a stable order.

**Examples:**
• "Parse all papers in ./corpus and tell me which ones lack a methods section"

**Best practices:** Large directories are truncated to the scan limit; check the truncated flag in the result.`

	ServerInfoDescription = `Report server version, available tools, limits and the papers found in the default directory.

**When to use:** At the start of a session to discover what the server can do and which files are available.

**Best practices:** Directory contents are cached for a few minutes; the result says when it came from the cache.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"parse_paper":     ParsePaperDescription,
	"validate_paper":  ValidatePaperDescription,
	"parse_directory": ParseDirectoryDescription,
	"server_info":     ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns every tool name in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
