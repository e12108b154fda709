package notify

import (
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

var funcs = map[string]any{
	"percent": func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
	"join":    strings.Join,
	"inc":     func(i int) int { return i + 1 },
}

const reportText = `MediChat Pro - Medical Document Analysis Report
Generated: {{.Generated.Format "2006-01-02 15:04:05"}}

SESSION SUMMARY
Session: {{.SessionID}}
Documents: {{.Documents}}
Indexed sections: {{.Chunks}}
Questions asked: {{.TotalTurns}}

QUERY
{{.Question}}

RESPONSE
{{.Answer}}
{{with .Insight}}
ANALYTICS
Relevant sections: {{.RelevantDocsCount}}
Confidence: {{percent .ConfidenceScore}}
Response time: {{.ResponseTime}} ({{.Elapsed}})
Query complexity: {{.QueryComplexity}}
Medical keywords: {{if .MedicalKeywords}}{{join .MedicalKeywords ", "}}{{else}}none{{end}}
Document coverage: {{.DocumentCoverage}} - {{.CoverageSummary}}
{{end}}
RECENT CONVERSATION
{{range $i, $t := .Recent}}{{inc $i}}. Q: {{$t.Question}}
   A: {{$t.Answer}}
{{else}}No previous questions.
{{end}}
TECHNICAL DETAILS
Language model: {{.LLMModel}}
Embedding model: {{.EmbeddingModel}}
Chunking: {{.ChunkWindow}} characters, {{.ChunkOverlap}} overlap
`

const reportHTML = `<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #222;">
<h1>MediChat Pro - Medical Document Analysis Report</h1>
<p>Generated: {{.Generated.Format "2006-01-02 15:04:05"}}</p>
<h2>Session Summary</h2>
<ul>
<li>Session: {{.SessionID}}</li>
<li>Documents: {{.Documents}}</li>
<li>Indexed sections: {{.Chunks}}</li>
<li>Questions asked: {{.TotalTurns}}</li>
</ul>
<h2>Query</h2>
<p>{{.Question}}</p>
<h2>Response</h2>
<p style="white-space: pre-wrap;">{{.Answer}}</p>
{{with .Insight}}<h2>Analytics</h2>
<table>
<tr><td>Relevant sections</td><td>{{.RelevantDocsCount}}</td></tr>
<tr><td>Confidence</td><td>{{percent .ConfidenceScore}}</td></tr>
<tr><td>Response time</td><td>{{.ResponseTime}} ({{.Elapsed}})</td></tr>
<tr><td>Query complexity</td><td>{{.QueryComplexity}}</td></tr>
<tr><td>Medical keywords</td><td>{{if .MedicalKeywords}}{{join .MedicalKeywords ", "}}{{else}}none{{end}}</td></tr>
<tr><td>Document coverage</td><td>{{.DocumentCoverage}} - {{.CoverageSummary}}</td></tr>
</table>
{{end}}<h2>Recent Conversation</h2>
{{if .Recent}}<ol>
{{range .Recent}}<li><strong>{{.Question}}</strong><br>{{.Answer}}</li>
{{end}}</ol>{{else}}<p>No previous questions.</p>{{end}}
<h2>Technical Details</h2>
<ul>
<li>Language model: {{.LLMModel}}</li>
<li>Embedding model: {{.EmbeddingModel}}</li>
<li>Chunking: {{.ChunkWindow}} characters, {{.ChunkOverlap}} overlap</li>
</ul>
</body></html>
`

const ticketText = `MediChat Pro Support Ticket
Ticket ID: {{.TicketID}}
Created: {{.Created.Format "2006-01-02 15:04:05"}}
Priority: {{.Priority}}
Category: {{.Category}}
Session: {{.SessionID}}
User email: {{if .UserEmail}}{{.UserEmail}}{{else}}not provided{{end}}

QUESTION
{{.Question}}

ANSWER GIVEN
{{if .Answer}}{{.Answer}}{{else}}(none){{end}}

DETAILS
{{if .Description}}{{.Description}}{{else}}(none){{end}}
`

const ticketHTML = `<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #222;">
<h1>MediChat Pro Support Ticket</h1>
<table>
<tr><td>Ticket ID</td><td>{{.TicketID}}</td></tr>
<tr><td>Created</td><td>{{.Created.Format "2006-01-02 15:04:05"}}</td></tr>
<tr><td>Priority</td><td>{{.Priority}}</td></tr>
<tr><td>Category</td><td>{{.Category}}</td></tr>
<tr><td>Session</td><td>{{.SessionID}}</td></tr>
<tr><td>User email</td><td>{{if .UserEmail}}{{.UserEmail}}{{else}}not provided{{end}}</td></tr>
</table>
<h2>Question</h2>
<p>{{.Question}}</p>
<h2>Answer Given</h2>
<p style="white-space: pre-wrap;">{{if .Answer}}{{.Answer}}{{else}}(none){{end}}</p>
<h2>Details</h2>
<p>{{if .Description}}{{.Description}}{{else}}(none){{end}}</p>
</body></html>
`

var (
	reportTextTmpl = texttemplate.Must(texttemplate.New("report.txt").Funcs(funcs).Parse(reportText))
	reportHTMLTmpl = htmltemplate.Must(htmltemplate.New("report.html").Funcs(funcs).Parse(reportHTML))
	ticketTextTmpl = texttemplate.Must(texttemplate.New("ticket.txt").Parse(ticketText))
	ticketHTMLTmpl = htmltemplate.Must(htmltemplate.New("ticket.html").Parse(ticketHTML))
)
