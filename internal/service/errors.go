package service

import "errors"

// Service errors mapped to response codes by the handlers.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrSessionNotFound     = errors.New("no active session")
	ErrSessionExpired      = errors.New("session expired")
	ErrNotFound            = errors.New("not found")
	ErrUnsupportedFileType = errors.New("only PDF or DOCX files are allowed")
	ErrFileTooLarge        = errors.New("file exceeds the upload limit")
	ErrFlowNotStarted      = errors.New("no answer flow for this interview")
	ErrSnapshotInvalid     = errors.New("flow snapshot is unreadable")
	ErrNoQuestions         = errors.New("interview has no questions")
)
