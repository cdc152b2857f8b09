// Package report writes pipeline run summaries.
//
// This package contains writers for different output formats:
//   - SimpleWriter: the completion banner and next steps for the terminal
//   - JSONWriter: the run report as JSON for tool integration
//   - MarkdownWriter: a stage table and status alert for sharing
//
// Writers implement the Writer interface, so they can be used
// interchangeably and composed with MultiWriter.
package report
