package document

import (
	"sort"
)

// Status is the outcome of processing one source file.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded" // processed with warnings
	StatusErrored  Status = "errored"  // excluded from the graph
)

// Result carries either a processed document or the error that stopped it.
// Document-local failures never abort the batch; they are aggregated here.
type Result struct {
	RelativePath string
	Doc          *Document
	Stage        string
	Err          error
}

// Status derives the outcome of the result.
func (r Result) Status() Status {
	switch {
	case r.Err != nil || r.Doc == nil:
		return StatusErrored
	case len(r.Doc.Warnings) > 0 || r.Doc.FrontMatterError != nil:
		return StatusDegraded
	default:
		return StatusOK
	}
}

// Results is the aggregate of a per-document stage.
type Results []Result

// Documents returns the documents that survived, ordered by slug.
func (rs Results) Documents() []*Document {
	docs := make([]*Document, 0, len(rs))
	for _, r := range rs {
		if r.Err == nil && r.Doc != nil {
			docs = append(docs, r.Doc)
		}
	}
	SortBySlug(docs)
	return docs
}

// Failed returns the errored results ordered by path.
func (rs Results) Failed() Results {
	var out Results
	for _, r := range rs {
		if r.Status() == StatusErrored {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelativePath < out[j].RelativePath })
	return out
}

// SortBySlug orders documents by slug in place.
func SortBySlug(docs []*Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].Slug < docs[j].Slug })
}
