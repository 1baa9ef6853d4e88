package pipeline

import "fmt"

// Stage identifies one step of a parse.
type Stage int

const (
	StageLoad Stage = iota
	StageAnalyzeStructure
	StageGeometry
	StageExtract
	StageReflow
	StageCleanup
	StageLabelSections
	StageSplitSections
	StageValidate
	StageIndexSentences
	StageExtractMetadata
	StageAssemble
)

var stageNames = [...]string{
	StageLoad:             "load",
	StageAnalyzeStructure: "analyze_structure",
	StageGeometry:         "geometry",
	StageExtract:          "extract",
	StageReflow:           "reflow",
	StageCleanup:          "cleanup",
	StageLabelSections:    "label_sections",
	StageSplitSections:    "split_sections",
	StageValidate:         "validate",
	StageIndexSentences:   "index_sentences",
	StageExtractMetadata:  "extract_metadata",
	StageAssemble:         "assemble",
}

// String returns the snake_case stage name.
func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Stages returns every stage in execution order.
func Stages() []Stage {
	out := make([]Stage, len(stageNames))
	for i := range out {
		out[i] = Stage(i)
	}
	return out
}
