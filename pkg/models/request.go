package models

import (
	"encoding/json"
	"fmt"
)

// RequestType identifies an AI task.
type RequestType string

const (
	JobMatching       RequestType = "job_matching"
	ContentGeneration RequestType = "content_generation"
	DocumentAnalysis  RequestType = "document_analysis"
	Translation       RequestType = "translation"
	Chatbot           RequestType = "chatbot"
	ResumeParsing     RequestType = "resume_parsing"
	InterviewPrep     RequestType = "interview_prep"
)

// RequestTypes lists every valid task type.
func RequestTypes() []RequestType {
	return []RequestType{
		JobMatching,
		ContentGeneration,
		DocumentAnalysis,
		Translation,
		Chatbot,
		ResumeParsing,
		InterviewPrep,
	}
}

// Valid reports whether t is a known task type.
func (t RequestType) Valid() bool {
	switch t {
	case JobMatching, ContentGeneration, DocumentAnalysis, Translation,
		Chatbot, ResumeParsing, InterviewPrep:
		return true
	}
	return false
}

// ParseRequestType converts a wire string into a RequestType.
func ParseRequestType(s string) (RequestType, error) {
	t := RequestType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown request type %q", s)
	}
	return t, nil
}

// Options override the dispatcher's model defaults for a single request.
type Options struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"maxTokens,omitempty"`
	Language    string   `json:"language,omitempty"`
}

// Request is a typed AI task. Data is the task payload; its shape depends on
// Type. Immutable once constructed.
type Request struct {
	Type    RequestType     `json:"type"`
	Data    json.RawMessage `json:"data"`
	Options *Options        `json:"options,omitempty"`
}

// ChatMessage is a single turn in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MatchPayload is the Data shape for JobMatching.
type MatchPayload struct {
	TeacherProfile  json.RawMessage `json:"teacherProfile"`
	JobRequirements json.RawMessage `json:"jobRequirements"`
}

// ChatPayload is the Data shape for Chatbot.
type ChatPayload struct {
	Message             string        `json:"message"`
	Context             string        `json:"context,omitempty"`
	UserType            string        `json:"userType,omitempty"`
	ConversationHistory []ChatMessage `json:"conversationHistory,omitempty"`
}

// MatchResult is the structured output of a JobMatching request.
type MatchResult struct {
	MatchScore        float64  `json:"matchScore"`
	Strengths         []string `json:"strengths"`
	Concerns          []string `json:"concerns"`
	CulturalFit       float64  `json:"culturalFit"`
	Recommendations   []string `json:"recommendations"`
	InterviewTips     []string `json:"interviewTips"`
	SkillGaps         []string `json:"skillGaps"`
	OverallAssessment string   `json:"overallAssessment"`
}
