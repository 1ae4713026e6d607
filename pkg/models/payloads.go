package models

import "encoding/json"

// ContentPayload is the Data shape for ContentGeneration.
type ContentPayload struct {
	ContentType string          `json:"type"`
	Details     json.RawMessage `json:"details"`
	Context     string          `json:"context,omitempty"`
}

// DocumentPayload is the Data shape for DocumentAnalysis. The document body
// may arrive under either content or text; content wins when both are set.
type DocumentPayload struct {
	DocumentType string `json:"documentType"`
	Content      string `json:"content"`
	Text         string `json:"text"`
}

// Body returns the document body from whichever field carries it.
func (p DocumentPayload) Body() string {
	if p.Content != "" {
		return p.Content
	}
	return p.Text
}

// TranslationPayload is the Data shape for Translation.
type TranslationPayload struct {
	Text         string `json:"text"`
	FromLanguage string `json:"fromLanguage"`
	ToLanguage   string `json:"toLanguage"`
	Context      string `json:"context,omitempty"`
}

// ResumePayload is the Data shape for ResumeParsing.
type ResumePayload struct {
	ResumeText string `json:"resumeText"`
	Format     string `json:"format,omitempty"`
}

// InterviewPayload is the Data shape for InterviewPrep.
type InterviewPayload struct {
	JobDetails     json.RawMessage `json:"jobDetails"`
	TeacherProfile json.RawMessage `json:"teacherProfile"`
	InterviewType  string          `json:"interviewType,omitempty"`
}
