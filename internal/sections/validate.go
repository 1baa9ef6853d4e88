package sections

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/a3tai/mcp-paper-parser/internal/model"
	pdferrors "github.com/a3tai/mcp-paper-parser/internal/pdf/errors"
)

// Validator checks a split document for the required section groups.
type Validator struct {
	cfg    Config
	logger *slog.Logger
}

// NewValidator creates a validator. A nil logger uses slog.Default().
func NewValidator(cfg Config, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{cfg: cfg, logger: logger.With("component", "Validator")}
}

// Validate reports has_<group> for every required group plus has_title and
// has_authors, which come from the caller. Each failed check is logged and
// filed in ec as a ValidationWarning; none is returned as an error.
func (v *Validator) Validate(sections map[string]*model.ParsedSection, title string, hasAuthors bool, ec *pdferrors.ErrorCollection) map[string]bool {
	result := make(map[string]bool, len(v.cfg.RequiredGroups)+2)

	groups := make([]string, 0, len(v.cfg.RequiredGroups))
	for g := range v.cfg.RequiredGroups {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	for _, group := range groups {
		names := v.cfg.RequiredGroups[group]
		found := false
		for key := range sections {
			if slices.Contains(names, strings.ToLower(key)) {
				found = true
				break
			}
		}
		result["has_"+group] = found
		if !found {
			v.warn(ec, fmt.Sprintf("missing required section group %q, expected one of %v", group, names))
		}
	}

	t := strings.TrimSpace(title)
	result["has_title"] = t != "" && t != "Unknown"
	if !result["has_title"] {
		v.warn(ec, "missing title")
	}
	result["has_authors"] = hasAuthors
	if !hasAuthors {
		v.warn(ec, "missing authors information")
	}
	return result
}

func (v *Validator) warn(ec *pdferrors.ErrorCollection, msg string) {
	v.logger.Warn("validation failed", "check", msg)
	ec.Add(pdferrors.NewPDFError(pdferrors.ErrorTypeValidationWarning, msg).WithStage("validate"))
}
