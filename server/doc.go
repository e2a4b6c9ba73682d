// Package server exposes the HTTP JSON API: ontology administration,
// batch job submission and tracking, and the single-document graph
// build endpoint.
package server
