// Package pipeline turns one free-form question about a company into a
// financial analysis.
//
// A run has three strictly sequential stages:
//
//  1. Extract asks the model to name the company, its ticker and a search
//     query, and validates the answer into a CompanyInfo.
//  2. Search runs the query against the web search collaborator and keeps the
//     raw response as Evidence.
//  3. Generate asks the model for a critical analysis grounded in that
//     evidence.
//
// Every stage reports progress through a Publisher before it calls out and
// after it gets an answer. A failing stage publishes a step event describing
// the failure and returns a *StageError; later stages never run. Each stage is
// bounded by the configured stage timeout.
//
// The stage methods are exported so that a durable runner can execute them one
// at a time. Run composes them for in-process use.
package pipeline
