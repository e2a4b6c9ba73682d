// Package openai implements the extraction adapter against any
// OpenAI-compatible chat API (Ollama, LocalAI, vLLM, OpenAI itself).
// Extraction runs in JSON mode at temperature 0; malformed responses are
// repaired and retried before giving up.
package openai
