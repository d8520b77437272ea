// Package loader discovers pipeline documents on disk and normalizes them
// into the format-agnostic model. Two front-ends are supported: the native
// HCL format (.hcl) and a workflow-style YAML format (.yml/.yaml). A path
// may be a single document or a directory searched recursively; multiple
// documents merge into one pipeline, in file order.
package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/matrixci/internal/ctxlog"
	"github.com/vk/matrixci/internal/fsutil"
	"github.com/vk/matrixci/internal/model"
)

// Load reads every pipeline document under path into a single Document.
func Load(ctx context.Context, path string) (*model.Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading pipeline documents.", "path", path)

	files, err := fsutil.FindFilesByExtensions(path, ".hcl", ".yml", ".yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to find pipeline files in %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no pipeline documents found in %s", path)
	}

	doc := &model.Document{}
	parser := hclparse.NewParser()
	for _, file := range files {
		logger.Debug("Parsing pipeline document.", "file", file)
		switch {
		case strings.HasSuffix(file, ".hcl"):
			err = mergeHCLFile(doc, file, parser)
		default:
			err = mergeYAMLFile(doc, file)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline: %w", err)
	}

	logger.Debug("Pipeline documents loaded.",
		"files", len(files),
		"dimensions", len(doc.Dimensions),
		"excludes", len(doc.Excludes),
		"includes", len(doc.Includes),
		"steps", len(doc.Steps),
	)
	return doc, nil
}
