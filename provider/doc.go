// Package provider defines the contract between the analysis pipeline and a
// chat completion backend.
//
// A Completer turns a short conversation into a single completion string. When
// CompletionParams.ResponseSchema is set the backend is asked to answer with a
// JSON document matching that schema; callers still validate what comes back.
//
// Concrete backends live in subpackages, see provider/openai.
package provider
