package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kru-ai/kru/pkg/models"
)

// View structs decode just the payload fields the prompt templates
// interpolate; unknown fields pass through untouched.

type teacherProfileView struct {
	Qualifications []string `json:"qualifications"`
	Experience     []struct {
		Position    string `json:"position"`
		Institution string `json:"institution"`
	} `json:"experience"`
	Skills []struct {
		Name  string `json:"name"`
		Level string `json:"level"`
	} `json:"skills"`
	Languages []string `json:"languages"`
	Location  struct {
		City    string `json:"city"`
		Country string `json:"country"`
	} `json:"location"`
	Preferences struct {
		SalaryRange struct {
			Min      float64 `json:"min"`
			Max      float64 `json:"max"`
			Currency string  `json:"currency"`
		} `json:"salaryRange"`
	} `json:"preferences"`
}

type jobRequirementsView struct {
	Title          string   `json:"title"`
	Qualifications []string `json:"qualifications"`
	Experience     string   `json:"experience"`
	Skills         []string `json:"skills"`
	Languages      []string `json:"languages"`
	Location       struct {
		City    string `json:"city"`
		Country string `json:"country"`
	} `json:"location"`
	Salary struct {
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
		Currency string  `json:"currency"`
	} `json:"salary"`
}

type jobDetailsView struct {
	Position     string   `json:"position"`
	School       string   `json:"school"`
	Location     string   `json:"location"`
	Requirements []string `json:"requirements"`
	Benefits     []string `json:"benefits"`
	Salary       string   `json:"salary"`
}

// orUnspecified joins a list for interpolation, standing in a marker when
// the payload omitted the field.
func orUnspecified(items []string) string {
	if len(items) == 0 {
		return "Not specified"
	}
	return strings.Join(items, ", ")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func buildMatchPrompt(teacher, job json.RawMessage) ([]models.ChatMessage, error) {
	var tp teacherProfileView
	if err := json.Unmarshal(teacher, &tp); err != nil {
		return nil, fmt.Errorf("decode teacher profile: %w", err)
	}
	var jr jobRequirementsView
	if err := json.Unmarshal(job, &jr); err != nil {
		return nil, fmt.Errorf("decode job requirements: %w", err)
	}

	exp := make([]string, 0, len(tp.Experience))
	for _, e := range tp.Experience {
		exp = append(exp, fmt.Sprintf("%s at %s", e.Position, e.Institution))
	}
	skills := make([]string, 0, len(tp.Skills))
	for _, s := range tp.Skills {
		skills = append(skills, fmt.Sprintf("%s (%s)", s.Name, s.Level))
	}

	prompt := fmt.Sprintf(`Analyze the compatibility between a teacher profile and job requirements.

Teacher Profile:
- Qualifications: %s
- Experience: %s
- Skills: %s
- Languages: %s
- Location: %s, %s
- Salary Expectations: %.0f-%.0f %s

Job Requirements:
- Title: %s
- Required Qualifications: %s
- Required Experience: %s
- Required Skills: %s
- Required Languages: %s
- Location: %s, %s
- Salary Range: %.0f-%.0f %s

Provide:
1. A match score (0-100)
2. Key strengths that make this a good match
3. Potential concerns or gaps
4. Cultural fit assessment
5. Specific recommendations for the teacher
6. Interview preparation tips

Respond in JSON with this structure:
{"matchScore": number, "strengths": string[], "concerns": string[], "culturalFit": number, "recommendations": string[], "interviewTips": string[], "skillGaps": string[], "overallAssessment": string}`,
		orUnspecified(tp.Qualifications),
		orUnspecified(exp),
		orUnspecified(skills),
		orUnspecified(tp.Languages),
		orDefault(tp.Location.City, "Unknown"), orDefault(tp.Location.Country, "Not specified"),
		tp.Preferences.SalaryRange.Min, tp.Preferences.SalaryRange.Max,
		orDefault(tp.Preferences.SalaryRange.Currency, "USD"),
		jr.Title,
		orUnspecified(jr.Qualifications),
		orDefault(jr.Experience, "Not specified"),
		orUnspecified(jr.Skills),
		orUnspecified(jr.Languages),
		orDefault(jr.Location.City, "Unknown"), orDefault(jr.Location.Country, "Not specified"),
		jr.Salary.Min, jr.Salary.Max, orDefault(jr.Salary.Currency, "USD"),
	)

	return []models.ChatMessage{{Role: "user", Content: prompt}}, nil
}

func buildContentPrompt(p models.ContentPayload) []models.ChatMessage {
	var prompt string
	switch p.ContentType {
	case "job_posting":
		var d jobDetailsView
		_ = json.Unmarshal(p.Details, &d)
		prompt = fmt.Sprintf(`Create an engaging job posting for a teaching position in Cambodia.

Job Details:
- Position: %s
- School: %s
- Location: %s
- Requirements: %s
- Benefits: %s
- Salary: %s

Create an attention-grabbing title, a compelling description, detailed
requirements and benefits sections, a call-to-action, and SEO keywords.
Make it professional and appealing to international teachers, with notes on
Cambodia's culture and education system.`,
			d.Position, d.School, d.Location,
			orUnspecified(d.Requirements), orUnspecified(d.Benefits), d.Salary)
	case "school_profile":
		prompt = fmt.Sprintf(`Create an attractive school profile description.

School Details:
%s

Write a compelling profile highlighting the school's unique qualities,
educational approach, and benefits for teachers.`, string(p.Details))
	default:
		prompt = fmt.Sprintf("Generate content for: %s\n\nDetails: %s", p.ContentType, string(p.Details))
	}
	return []models.ChatMessage{{Role: "user", Content: prompt}}
}

func buildDocumentPrompt(p models.DocumentPayload) []models.ChatMessage {
	body := p.Body()
	var prompt string
	switch p.DocumentType {
	case "resume":
		prompt = fmt.Sprintf(`Analyze this resume and extract key information:

%s

Extract and structure: personal information, education history, work
experience, skills and certifications, languages, key achievements, and
contact information. Respond in JSON.`, body)
	case "certificate":
		prompt = fmt.Sprintf(`Analyze this certificate and extract key information:

%s

Extract: certificate name, issuing organization, issue date, expiry date if
any, verification status, and credential level. Respond in JSON.`, body)
	default:
		prompt = fmt.Sprintf("Analyze this %s document and respond in JSON:\n\n%s", p.DocumentType, body)
	}
	return []models.ChatMessage{{Role: "user", Content: prompt}}
}

func buildTranslationPrompt(p models.TranslationPayload) []models.ChatMessage {
	prompt := fmt.Sprintf(`Translate the following text from %s to %s.

Context: %s

Text to translate:
%s

Provide the translated text, any cultural considerations, alternative
translations if applicable, and a confidence level. Respond in JSON with
{"translation": string, "culturalNotes": string[], "alternatives": string[], "confidence": number}.`,
		p.FromLanguage, p.ToLanguage, orDefault(p.Context, "General"), p.Text)
	return []models.ChatMessage{{Role: "user", Content: prompt}}
}

func buildChatMessages(p models.ChatPayload) []models.ChatMessage {
	system := fmt.Sprintf(`You are an AI assistant for a platform connecting teachers with
opportunities in Cambodia.

User Type: %s
Context: %s

Guidelines:
- Be helpful, professional, and friendly
- Provide accurate information about teaching in Cambodia
- Help with job search, applications, and cultural adaptation
- If you don't know something, suggest contacting support
- Keep responses concise but informative`,
		orDefault(p.UserType, "teacher"), orDefault(p.Context, "general"))

	messages := make([]models.ChatMessage, 0, len(p.ConversationHistory)+2)
	messages = append(messages, models.ChatMessage{Role: "system", Content: system})
	messages = append(messages, p.ConversationHistory...)
	messages = append(messages, models.ChatMessage{Role: "user", Content: p.Message})
	return messages
}

func buildResumePrompt(p models.ResumePayload) []models.ChatMessage {
	prompt := fmt.Sprintf(`Parse and structure this resume into a standardized format:

%s

Extract: personal information (name, email, phone, location), summary,
education (degree, institution, year), work experience (position, company,
dates, responsibilities), skills, certifications, awards, and references if
available. Respond as structured JSON.`, p.ResumeText)
	return []models.ChatMessage{{Role: "user", Content: prompt}}
}

func buildInterviewPrompt(p models.InterviewPayload) []models.ChatMessage {
	var d jobDetailsView
	_ = json.Unmarshal(p.JobDetails, &d)
	var tp teacherProfileView
	_ = json.Unmarshal(p.TeacherProfile, &tp)

	prompt := fmt.Sprintf(`Provide interview preparation guidance for a teacher applying to a
position in Cambodia.

Job Details:
- Position: %s
- School: %s
- Requirements: %s

Teacher Profile:
- Experience entries: %d
- Qualifications: %s
- Languages: %s

Interview Type: %s

Cover: common interview questions for this position, sample answers,
cultural considerations for interviews in Cambodia, questions the teacher
should ask, preparation tips, what to bring, and follow-up advice.`,
		d.Position, d.School, orUnspecified(d.Requirements),
		len(tp.Experience), orUnspecified(tp.Qualifications), orUnspecified(tp.Languages),
		orDefault(p.InterviewType, "general"))
	return []models.ChatMessage{{Role: "user", Content: prompt}}
}
