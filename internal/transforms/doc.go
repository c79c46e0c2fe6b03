// Package transforms implements the transformer chain: named units that enrich
// or rewrite a parsed document before rendering.
//
// Transformers are grouped into fixed stages. The parse, enrich, normalize and
// markup stages form the document phase, which runs per document with no
// access to other documents. The links and derive stages form the corpus
// phase, which runs only after every document finished the document phase and
// can consult the read-only Corpus.
//
// Within a stage, execution order is resolved from declared dependencies with
// a topological sort. A chain whose configuration contradicts the declared
// dependencies is rejected with a *DependencyError before any document is
// read.
package transforms
