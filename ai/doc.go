// Package ai defines the extraction adapter contract: given raw document
// text and the current ontology, produce candidate entities and
// relationships with confidence scores and source spans.
//
// The openai subpackage implements the contract against OpenAI-compatible
// chat APIs; the mock subpackage provides test doubles. Candidates are
// always re-validated against the live ontology at merge time, so the
// adapter never needs to be exactly right about types.
package ai
