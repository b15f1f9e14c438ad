package api

import (
	"nexus/internal/catalog"
	"nexus/internal/storage"
)

// FileRequest is the body of create, edit and delete requests. Content is
// ignored by delete.
type FileRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Location string `json:"location"`
}

// ExecuteRequest is the body of an execute request. Action is "compile",
// "run" or anything else for both.
type ExecuteRequest struct {
	Filename string `json:"filename"`
	Action   string `json:"action"`
	Location string `json:"location"`
}

// ExecuteResponse reports the outcome of a command. Error is set only when
// Success is false.
type ExecuteResponse struct {
	Success  bool   `json:"success"`
	Output   string `json:"output"`
	ExitCode int    `json:"exitCode"`
	Error    string `json:"error,omitempty"`
}

type FilesResponse struct {
	Files []string `json:"files"`
}

type ContentResponse struct {
	Content string `json:"content"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ExistsResponse struct {
	Exists bool `json:"exists"`
}

type KnownResponse struct {
	Files []catalog.Entry `json:"files"`
}

// LanguageInfo describes one supported language.
type LanguageInfo struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
	Compiled   bool     `json:"compiled"`
}

type LanguagesResponse struct {
	Languages []LanguageInfo `json:"languages"`
}

type HistoryResponse struct {
	Executions []storage.Execution `json:"executions"`
}

// ErrorResponse is returned for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status     string `json:"status"`
	Database   bool   `json:"database"`
	KnownFiles int    `json:"knownFiles"`
	Uptime     string `json:"uptime"`
}
