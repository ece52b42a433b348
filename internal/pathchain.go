package internal

import (
	"strings"

	"github.com/lychee-technology/metagraph"
)

// parsePathChain decomposes a delimited path string into its scheme
// segment, ordered folder segments and leaf segment. The scheme segment
// keeps its trailing delimiter ("s3://"), folder and leaf segments are
// bare names; qualified names are accumulated by the materializer.
func parsePathChain(path string, cfg metagraph.PathConfig) (*metagraph.PathChain, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, metagraph.NewMalformedPathError(path, "path is empty")
	}

	chain := &metagraph.PathChain{}
	remainder := trimmed

	if idx := strings.Index(trimmed, cfg.SchemeDelimiter); idx >= 0 {
		if idx == 0 {
			return nil, metagraph.NewMalformedPathError(path, "path has a scheme delimiter but no scheme")
		}
		chain.Scheme = trimmed[:idx+len(cfg.SchemeDelimiter)]
		remainder = trimmed[idx+len(cfg.SchemeDelimiter):]
	}

	remainder = strings.Trim(remainder, cfg.Separator)
	if remainder == "" {
		if !chain.HasScheme() {
			return nil, metagraph.NewMalformedPathError(path, "path has no segments")
		}
		return chain, nil
	}

	segments := strings.Split(remainder, cfg.Separator)
	if len(segments) > cfg.MaxSegments {
		return nil, metagraph.NewMalformedPathError(path, "path exceeds maximum segment count")
	}
	for _, seg := range segments {
		if seg == "" {
			return nil, metagraph.NewMalformedPathError(path, "path contains an empty segment")
		}
	}

	if len(segments) > 1 {
		chain.Folders = segments[:len(segments)-1]
	}
	chain.Leaf = segments[len(segments)-1]
	return chain, nil
}

// leafLooksLikeFile decides the node kind for a newly created leaf: a
// segment with a dot extension becomes a data file, anything else a data
// folder.
func leafLooksLikeFile(leaf string) bool {
	dot := strings.LastIndex(leaf, ".")
	return dot > 0 && dot < len(leaf)-1
}
