// Package extraction turns uploaded files into Documents of page text.
//
// PDFs are read with pdfcpu: each page's content stream is extracted and
// the text-showing operators are decoded into plain text. Plain text and
// Markdown files are taken as UTF-8. The result is passed through Clean
// before chunking.
//
// A file that cannot be parsed fails with ErrUnreadablePDF (or
// ErrUnsupportedType); callers isolate such failures per file. A readable
// file with no text yields a Document with empty pages, which chunks to
// nothing.
package extraction
